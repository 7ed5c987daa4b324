package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// NotificationChannel is the pub/sub channel carrying one organization's
// user notifications.
func NotificationChannel(orgID string) string {
	return fmt.Sprintf("notifications:%s", orgID)
}

// CommandRateLimitKey is the sorted-set key counting one user's recent
// commands.
func CommandRateLimitKey(orgID, userKey string) string {
	return fmt.Sprintf("ratelimit:commands:%s:%s", orgID, userKey)
}
