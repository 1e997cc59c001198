// Package cache memoizes computed availability in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "heyu:availability:"

// Availability stores slot lists per date and service duration.
// A nil client or a non-positive TTL turns every call into a no-op.
type Availability struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewAvailability(client *redis.Client, ttl time.Duration) *Availability {
	return &Availability{redis: client, ttl: ttl}
}

func (c *Availability) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

func key(date string, durationHours int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, date, durationHours)
}

// Get returns cached slots for date and duration.
func (c *Availability) Get(ctx context.Context, date string, durationHours int) ([]string, bool) {
	if !c.enabled() {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key(date, durationHours)).Bytes()
	if err != nil {
		return nil, false
	}
	var slots []string
	if err := json.Unmarshal(val, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *Availability) Set(ctx context.Context, date string, durationHours int, slots []string) {
	if !c.enabled() {
		return
	}
	if slots == nil {
		slots = []string{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key(date, durationHours), data, c.ttl).Err()
}

// InvalidateDate drops every entry for date.
func (c *Availability) InvalidateDate(ctx context.Context, date string) error {
	return c.deleteMatching(ctx, keyPrefix+date+":*")
}

// InvalidateAll drops every cached entry, e.g. after business hours change.
func (c *Availability) InvalidateAll(ctx context.Context) error {
	return c.deleteMatching(ctx, keyPrefix+"*")
}

func (c *Availability) deleteMatching(ctx context.Context, pattern string) error {
	if !c.enabled() {
		return nil
	}
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}
