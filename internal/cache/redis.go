// Package cache keeps the latest Sample of each playback session in Redis so
// dashboards can read the current vehicle state without subscribing.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"route-simulator/internal/playback"
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// WriteMetrics counts cache writes; nil disables counting.
type WriteMetrics interface {
	CacheWriteInc()
	CacheWriteErrInc()
}

type Client struct {
	client RedisClientInterface
}

// New connects to Redis at addr and verifies the connection.
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Client{client: client}, nil
}

// NewWithClient wraps an existing client (useful for testing).
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func latestKey(sessionID string) string {
	return fmt.Sprintf("playback:%s:latest", sessionID)
}

// StoreSample overwrites the session's latest sample.
func (c *Client) StoreSample(ctx context.Context, sessionID string, s playback.Sample, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	return c.client.Set(ctx, latestKey(sessionID), data, ttl).Err()
}

// LatestSample returns the stored sample, or nil when none exists.
func (c *Client) LatestSample(ctx context.Context, sessionID string) (*playback.Sample, error) {
	data, err := c.client.Get(ctx, latestKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	var s playback.Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
	}
	return &s, nil
}

func (c *Client) DeleteSample(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, latestKey(sessionID)).Err()
}

// Sink is a playback.Observer that stores every Sample for one session.
type Sink struct {
	Client    *Client
	SessionID string
	TTL       time.Duration
	Timeout   time.Duration
	Metrics   WriteMetrics
}

func (s *Sink) OnSample(sample playback.Sample) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.Client.StoreSample(ctx, s.SessionID, sample, s.TTL)
	if s.Metrics != nil {
		if err != nil {
			s.Metrics.CacheWriteErrInc()
		} else {
			s.Metrics.CacheWriteInc()
		}
	}
	if err != nil {
		log.Printf("redis store error for session %s: %v", s.SessionID, err)
	}
}
