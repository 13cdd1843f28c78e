package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"market-structure/src/logger"
	"market-structure/src/models"

	"github.com/redis/go-redis/v9"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestPublishEncodesEnvelope(t *testing.T) {
	fake := &fakePublisher{}
	r := &RedisPublisher{Channel: "structures", Logger: logger.Nop(), pub: fake}

	env := models.MEnvelope{
		Type:       string(models.BreakOfStructure),
		Symbol:     "EURUSD",
		Resolution: "5m",
		Value:      models.MOneDStructure{Price: 1.1},
	}
	if err := r.Publish(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if fake.channel != "structures" {
		t.Errorf("channel = %q", fake.channel)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(fake.payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["type"] != "Break Of Structure" || decoded["timerange"] != "5m" {
		t.Errorf("payload = %s", fake.payload)
	}
}

func TestPublishSurfacesError(t *testing.T) {
	r := &RedisPublisher{Channel: "c", Logger: logger.Nop(), pub: &fakePublisher{err: errors.New("conn reset")}}
	if err := r.Publish(context.Background(), models.MEnvelope{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDisabledRedis(t *testing.T) {
	if _, err := NewRedisPublisher(context.Background(), models.MRedisConfig{}, logger.Nop()); err == nil {
		t.Fatal("expected error when redis is disabled")
	}
}
