// Package redis persists gateway keys as Redis string values.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"momentum/pkg/domain"
)

var _ domain.Gateway = (*Gateway)(nil)

// DefaultPrefix namespaces every key written by the gateway.
const DefaultPrefix = "momentum:"

// Options configures the Redis client built by New.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// Gateway stores each key under Prefix+key.
type Gateway struct {
	client goredis.UniversalClient
	prefix string
	owned  bool
}

// New dials Redis with opts and verifies the connection.
func New(ctx context.Context, opts Options) (*Gateway, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	g := NewWithClient(client, opts.Prefix)
	g.owned = true
	return g, nil
}

// NewWithClient wraps an existing client. The caller keeps ownership.
func NewWithClient(client goredis.UniversalClient, prefix string) *Gateway {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Gateway{client: client, prefix: prefix}
}

func (g *Gateway) key(k string) string { return g.prefix + k }

// Get implements domain.Gateway.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := g.client.Get(ctx, g.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements domain.Gateway. Values never expire.
func (g *Gateway) Set(ctx context.Context, key, value string) error {
	if err := g.client.Set(ctx, g.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove implements domain.Gateway.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the client when the gateway created it.
func (g *Gateway) Close() error {
	if !g.owned {
		return nil
	}
	return g.client.Close()
}
