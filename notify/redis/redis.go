// Package redis implements a Redis pub/sub notifier.
//
// Publishes poster notifications, JSON or msgpack encoded, to a
// configurable Redis channel.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/posters/notify"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "posters:poster_published"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// Config configures the Redis pub/sub notifier.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: posters:poster_published).
	Channel string
	// Encoding is the payload encoding: json (default) or msgpack.
	Encoding string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 0).
	Retries int
}

// Notifier publishes poster notifications via Redis PUBLISH.
type Notifier struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub notifier from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis notifier requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if _, _, err := notify.Encode(&notify.PosterPublishedEvent{}, cfg.Encoding); err != nil {
		return nil, fmt.Errorf("redis notifier: %w", err)
	}

	return &Notifier{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Notify publishes the encoded event to the configured channel.
func (n *Notifier) Notify(ctx context.Context, event *notify.PosterPublishedEvent) error {
	body, _, err := notify.Encode(event, n.config.Encoding)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return notify.Retry(ctx, "redis", n.config.Retries, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
		return n.client.Publish(publishCtx, n.config.Channel, body).Err()
	}, nil)
}

// Close releases notifier resources.
func (n *Notifier) Close() error {
	return n.client.Close()
}

var _ notify.Notifier = (*Notifier)(nil)
