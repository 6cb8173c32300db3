package trending

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"felicityevents/internal/domain"
)

const recentWindow = 24 * time.Hour

type redisViewTracker struct {
	rdb *redis.Client
}

// NewRedisViewTracker tracks event page views in Redis. Each event keeps a
// lifetime counter and a rolling counter that expires 24 hours after its
// first hit in the window.
func NewRedisViewTracker(rdb *redis.Client) domain.ViewTracker {
	return &redisViewTracker{rdb: rdb}
}

func totalKey(eventID string) string  { return "views:total:" + eventID }
func recentKey(eventID string) string { return "views:24h:" + eventID }

func (t *redisViewTracker) RecordView(ctx context.Context, eventID string) error {
	pipe := t.rdb.TxPipeline()
	pipe.Incr(ctx, totalKey(eventID))
	recent := pipe.Incr(ctx, recentKey(eventID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	// First hit in the window starts the TTL; later hits leave it alone so
	// the counter resets on a fixed cadence instead of sliding forever.
	if recent.Val() == 1 {
		if err := t.rdb.Expire(ctx, recentKey(eventID), recentWindow).Err(); err != nil {
			return fmt.Errorf("failed to set view window expiry: %w", err)
		}
	}
	return nil
}

func (t *redisViewTracker) Counts(ctx context.Context, eventIDs []string) (map[string]domain.EventViews, error) {
	counts := make(map[string]domain.EventViews, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	keys := make([]string, 0, len(eventIDs)*2)
	for _, id := range eventIDs {
		keys = append(keys, totalKey(id), recentKey(id))
	}
	values, err := t.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read view counts: %w", err)
	}

	for i, id := range eventIDs {
		counts[id] = domain.EventViews{
			Total:  parseCount(values[i*2]),
			Last24: parseCount(values[i*2+1]),
		}
	}
	return counts, nil
}

func parseCount(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type noopViewTracker struct{}

// NewNoopViewTracker returns a ViewTracker that records nothing and reports
// zero views. Used when Redis is not configured.
func NewNoopViewTracker() domain.ViewTracker {
	return noopViewTracker{}
}

func (noopViewTracker) RecordView(ctx context.Context, eventID string) error { return nil }

func (noopViewTracker) Counts(ctx context.Context, eventIDs []string) (map[string]domain.EventViews, error) {
	return map[string]domain.EventViews{}, nil
}
