package redis

import (
	"context"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Client represents a Redis client.
type Client struct {
	client *goredis.Client
}

// Redis returns the underlying go-redis client.
func (c *Client) Redis() *goredis.Client {
	return c.client
}

// Close closes the connection pool for graceful shutdown.
func (c *Client) Close() error {
	return c.client.Close()
}

// MustNewClient connects to redis.addr. It returns nil when no address is configured.
func MustNewClient() *Client {
	addr := viper.GetString("redis.addr")
	if addr == "" {
		slog.Info("Redis address is not set, order cache disabled")

		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: os.Getenv("ORDERVIEW_REDIS_PASSWORD"),
		DB:       viper.GetInt("redis.db"),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		panic("failed to connect to redis: " + err.Error())
	}

	slog.Info("Redis connected", "addr", addr)

	return &Client{
		client: client,
	}
}
