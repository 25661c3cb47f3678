package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfolio/portfolio-server-go/internal/model"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// TokenCacheKey is the cache entry for a resolved bearer token,
// keyed by its SHA-256 hash so plaintext tokens never reach Redis.
func TokenCacheKey(tokenHash string) string {
	return fmt.Sprintf("authcache:%s", tokenHash)
}

// GetCachedUser returns the cached user for a token hash, or nil on a miss.
func (c *Client) GetCachedUser(ctx context.Context, tokenHash string) (*model.User, error) {
	data, err := c.Get(ctx, TokenCacheKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CacheUser(ctx context.Context, tokenHash string, user *model.User, ttl time.Duration) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.Set(ctx, TokenCacheKey(tokenHash), data, ttl).Err()
}

func (c *Client) InvalidateToken(ctx context.Context, tokenHash string) error {
	return c.Del(ctx, TokenCacheKey(tokenHash)).Err()
}
