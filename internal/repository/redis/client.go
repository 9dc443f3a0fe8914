package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOptions returns the settings InitRedis connects with.
//
// Retries are disabled: the link scripts and the rate limiter's INCR are not
// idempotent, and a command whose reply timed out may already have run.
func ClientOptions(addr, password string, db, poolSize int) *redis.Options {
	return &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     poolSize,
		MinIdleConns: 2,
		MaxRetries:   -1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// InitRedis creates a client and checks the server answers.
func InitRedis(addr, password string, db, poolSize int) (*redis.Client, error) {
	client := redis.NewClient(ClientOptions(addr, password, db, poolSize))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
