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

// SessionKey is where a conversation session for sender is stored.
func SessionKey(sender string) string {
	return fmt.Sprintf("wa:session:%s", sender)
}

// LockKey guards read-modify-write of a sender's session.
func LockKey(sender string) string {
	return fmt.Sprintf("wa:lock:%s", sender)
}

// InboundRateKey counts inbound messages from sender.
func InboundRateKey(sender string) string {
	return fmt.Sprintf("ratelimit:inbound:%s", sender)
}
