package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Connect builds the client and fails if redis does not answer a ping.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := New(cfg)

	err := c.Ping(ctx)

	if err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// this ping function checks redis connectivity, also used by /readyz
func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Raw exposes the underlying client for the revocation store and rate limiter.
func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
