package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-structure/src/helpers"
	"market-structure/src/logger"
	"market-structure/src/models"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 30 * time.Second

// publisher is the slice of the redis client the broadcaster needs
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// -----------------------------------------------------------------------------

// RedisPublisher broadcasts envelopes as JSON on a redis pub/sub channel
type RedisPublisher struct {
	Channel string
	Logger  *logger.Logger
	client  *redis.Client
	pub     publisher
}

// -----------------------------------------------------------------------------

// NewRedisPublisher connects and pings the server, retrying with backoff
func NewRedisPublisher(ctx context.Context, cfg models.MRedisConfig, log *logger.Logger) (*RedisPublisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	err := helpers.RetryWithBackoff(ctx, log, "redis ping", connectTimeout, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, helpers.NewSinkError("redis", err)
	}

	log.Info("Redis publisher connected to %s, channel %q", cfg.Address, cfg.Channel)
	return &RedisPublisher{
		Channel: cfg.Channel,
		Logger:  log,
		client:  client,
		pub:     client,
	}, nil
}

// -----------------------------------------------------------------------------

func (r *RedisPublisher) Name() string { return "redis" }

// -----------------------------------------------------------------------------

func (r *RedisPublisher) Publish(ctx context.Context, env models.MEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return r.pub.Publish(ctx, r.Channel, payload).Err()
}

// -----------------------------------------------------------------------------

func (r *RedisPublisher) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
