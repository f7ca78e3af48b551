// Package redisstore holds the best-effort counters kept in Redis:
// binder view totals and failed access-code attempt throttling. All
// operations are nil-safe - a Store built without a client degrades to
// no-ops so the service runs without Redis in small deployments.
package redisstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// attemptWindow bounds how long failed access-code attempts count
	// against the limit.
	attemptWindow = 15 * time.Minute

	// maxAttempts is the failed attempts allowed per access code per window.
	maxAttempts = 10
)

// Store wraps the Redis client used for view counters and throttling.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a Store. addr may be empty, in which case every operation
// is a no-op.
func New(addr, password string, db int, logger *slog.Logger) *Store {
	if addr == "" {
		logger.Info("redis not configured, counters and throttling disabled")
		return &Store{logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client, logger: logger}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// IncrViewCount bumps the view counter for a binder.
func (s *Store) IncrViewCount(ctx context.Context, binderID string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, viewKey(binderID)).Err()
}

// ViewCount returns the current view counter for a binder.
func (s *Store) ViewCount(ctx context.Context, binderID string) (int64, error) {
	if s.client == nil {
		return 0, nil
	}
	n, err := s.client.Get(ctx, viewKey(binderID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// AllowAttempt reports whether another access-code attempt is allowed.
// The counter is windowed: the first failure in a window sets the expiry.
// Errors are swallowed as "allowed" - throttling is protection, not a
// correctness gate, and Redis being down must not lock clients out.
func (s *Store) AllowAttempt(ctx context.Context, accessCode string) bool {
	if s.client == nil {
		return true
	}

	n, err := s.client.Get(ctx, attemptKey(accessCode)).Int64()
	if err != nil && err != redis.Nil {
		s.logger.Warn("attempt counter read failed", "error", err)
		return true
	}

	return n < maxAttempts
}

// RecordFailedAttempt counts a failed access-code or password attempt.
func (s *Store) RecordFailedAttempt(ctx context.Context, accessCode string) {
	if s.client == nil {
		return
	}

	key := attemptKey(accessCode)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn("attempt counter write failed", "error", err)
		return
	}
	if n == 1 {
		s.client.Expire(ctx, key, attemptWindow)
	}
}

func viewKey(binderID string) string {
	return fmt.Sprintf("binder:%s:views", binderID)
}

func attemptKey(accessCode string) string {
	return fmt.Sprintf("binder:attempts:%s", accessCode)
}
