// Package cache wraps redis for the three coordination concerns the
// orchestrator needs: short-lived per-wallet locks, webhook event
// deduplication, and best-effort balance caching.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Service struct {
	client *redis.Client
	ttl    time.Duration
}

func NewService(client *redis.Client, defaultTTL time.Duration) *Service {
	return &Service{
		client: client,
		ttl:    defaultTTL,
	}
}

// Set stores a JSON-encoded value with the default TTL.
func (s *Service) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

// SetWithTTL stores a JSON-encoded value with an explicit TTL.
func (s *Service) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get loads a JSON-encoded value. The second return is false on a miss.
func (s *Service) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Delete removes keys.
func (s *Service) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// AcquireLock takes a short-lived exclusive lock via SET NX. It returns false
// when another caller holds the lock. Locks expire on their own; holders
// release early via ReleaseLock.
func (s *Service) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "lock:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseLock drops a lock taken with AcquireLock.
func (s *Service) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, "lock:"+key).Err()
}

// MarkEventSeen records a webhook event id. It returns false when the event
// was already recorded, gating redelivered webhooks to a no-op.
func (s *Service) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	first, err := s.client.SetNX(ctx, "webhook:event:"+eventID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return first, nil
}

// UnmarkEvent releases a MarkEventSeen record so a redelivery of the event
// is processed again.
func (s *Service) UnmarkEvent(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, "webhook:event:"+eventID).Err()
}

// Close shuts down the underlying redis client.
func (s *Service) Close() error {
	return s.client.Close()
}

// FlushAll clears the cache. Used on startup in development.
func (s *Service) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}
