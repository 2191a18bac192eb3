package common

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"infinite-experiment/logbook/internal/logging"
)

// RedisOptions is the connection part of the service config.
type RedisOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NewRedisClient builds a client and pings it once. A failed ping is logged,
// not returned: the pool keeps reconnecting in the background.
func NewRedisClient(opts RedisOptions) *redis.Client {
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	logging.Info("Initializing Redis client", "addr", addr, "db", opts.DB)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn("Failed to ping Redis", "addr", addr, "error", err)
		return client
	}

	logging.Info("Connected to Redis", "addr", addr)
	return client
}
