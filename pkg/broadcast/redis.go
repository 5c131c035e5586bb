package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/warehouselabs/fulfillment-backend/pkg/config"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
)

// RedisPublisher fans events out over a Redis pub/sub channel. Subscribers
// (the websocket gateway, dashboards) listen on the same channel; anything
// not connected at publish time misses the event.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to Redis and verifies connectivity.
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig, channel string, logg *logger.Logger) (*RedisPublisher, error) {
	if channel == "" {
		return nil, errors.New("broadcast channel is required")
	}
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "broadcast publisher connected")
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Publish marshals the event and pushes it on the channel. No retry, no
// acknowledgement.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return errors.New("broadcast publisher not initialized")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling broadcast event: %w", err)
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Ping verifies the Redis connection for readiness checks.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if p == nil || p.client == nil {
		return errors.New("broadcast publisher not initialized")
	}
	return p.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
