// Package redis stores sessions in Redis so several web instances can share them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"expensetracker/internal/session"
)

type Options struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type Backend struct {
	client *goredis.Client
	ttl    time.Duration
}

var _ session.Backend = (*Backend)(nil)

// New connects to Redis and verifies the connection with a bounded ping.
func New(ctx context.Context, opts Options) (*Backend, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Address, err)
	}
	return &Backend{client: client, ttl: opts.TTL}, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, key, value, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Backend) Close() error {
	return b.client.Close()
}
