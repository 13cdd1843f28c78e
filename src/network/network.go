package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"market-structure/src/logger"
	"market-structure/src/models"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// -----------------------------------------------------------------------------

// AsyncNetworkManager is a rate-limited HTTP GET client with retries, shared
// by every polling source.
type AsyncNetworkManager struct {
	Config  *models.MConfig
	Client  *http.Client
	Logger  *logger.Logger
	limiter *rate.Limiter
	backoff func() backoff.BackOff
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	rps := cfg.Network.RequestsPerSecond
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &AsyncNetworkManager{
		Config: cfg,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
		Logger:  log,
		limiter: rate.NewLimiter(limit, burst),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return b
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with rate limiting and exponential backoff.
// 4xx answers other than 429 are not retried.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	userAgent := nm.Config.Network.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxRetries := nm.Config.Network.MaxRetries
	attempt := 0
	var body []byte

	op := func() error {
		attempt++
		if err := nm.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := nm.Client.Do(req)
		if err != nil {
			nm.Logger.Info("Request failed (attempt %d/%d): %v", attempt, maxRetries+1, err)
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			nm.Logger.Info("Bad status %d (attempt %d/%d)", resp.StatusCode, attempt, maxRetries+1)
			return fmt.Errorf("bad status: %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("bad status: %d", resp.StatusCode))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	strategy := backoff.WithContext(backoff.WithMaxRetries(nm.backoff(), uint64(maxRetries)), ctx)
	if err := backoff.Retry(op, strategy); err != nil {
		return nil, fmt.Errorf("GET %s failed after %d attempts: %w", reqURL.Path, attempt, err)
	}
	return body, nil
}
