// Package events publishes pipeline events on Redis pub/sub so other services
// can react to freshly uploaded job tables.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelJobsUploaded carries JobsUploaded events.
const ChannelJobsUploaded = "EVENT_JOBS_UPLOADED"

// JobsUploaded is published after a scheduled batch lands in storage.
type JobsUploaded struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Role     string `json:"role"`
	URL      string `json:"url"`
	Count    int    `json:"count"`
}

// RedisPublisher publishes JSON events on a Redis client.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher returns a publisher backed by rdb.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish JSON-encodes v and publishes it on channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", channel, err)
	}
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Discard drops every event. Used when Redis is not configured.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(context.Context, string, any) error { return nil }
