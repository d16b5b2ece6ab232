package rdx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the shared Redis connection with the few primitives the
// services use.
type Client struct {
	Conn   *redis.Client
	prefix string
}

func Connect(ctx context.Context, addr, password string) (*Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Conn: conn, prefix: "agromart"}, nil
}

func NewClient(conn *redis.Client, prefix string) *Client {
	return &Client{Conn: conn, prefix: prefix}
}

func (c *Client) Close() error { return c.Conn.Close() }

// Key namespaces parts under the client prefix.
func (c *Client) Key(parts ...string) string {
	key := c.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (c *Client) RdxSetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.Conn.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) RdxExists(ctx context.Context, key string) (bool, error) {
	n, err := c.Conn.Exists(ctx, key).Result()
	return n > 0, err
}

// RdxIncr increments key and refreshes its expiry in one round trip.
func (c *Client) RdxIncr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.Conn.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
