// Package redis implements the account directory on Redis. Accounts are kept under the key account:<account>
// with the wallet as value.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tarancss/canoed/lib/config"
	"github.com/tarancss/canoed/lib/store"
)

// KeyPrefix prefixes every account key.
const KeyPrefix = "account:"

// Redis implements a connection to a Redis server.
type Redis struct {
	c *redis.Client
}

// New returns a client to the Redis server in conf and checks the server answers.
func New(ctx context.Context, conf config.RedisConfig) (*Redis, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     conf.Addr(),
		Password: conf.Password,
		DB:       conf.DB,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()

		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", conf.Addr(), err)
	}

	return &Redis{c: c}, nil
}

// Close closes the connection pool. Must be called at termination time.
func (r *Redis) Close() error {
	return r.c.Close()
}

// Wallet returns the wallet owning account.
func (r *Redis) Wallet(ctx context.Context, account string) (string, error) {
	w, err := r.c.Get(ctx, KeyPrefix+account).Result()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("cannot get wallet for %s: %w", account, err)
	}

	return w, nil
}

// Register sets wallet as the owner of account. Mappings do not expire.
func (r *Redis) Register(ctx context.Context, account, wallet string) error {
	if err := r.c.Set(ctx, KeyPrefix+account, wallet, 0).Err(); err != nil {
		return fmt.Errorf("cannot set wallet for %s: %w", account, err)
	}

	return nil
}

var _ store.Directory = (*Redis)(nil)
