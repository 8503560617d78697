package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
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

// EventChannel is the pub/sub channel carrying live console events for one user.
func EventChannel(userID string) string {
	return fmt.Sprintf("events:%s", userID)
}

func DedupeKey(instanceName, gatewayMessageID string) string {
	return fmt.Sprintf("dedupe:%s:%s", instanceName, gatewayMessageID)
}

func RateLimitKey(operatorID string) string {
	return fmt.Sprintf("ratelimit:operator:%s", operatorID)
}
