package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prestadia/prestadia-api/internal/engine"
)

// scheduleCacheTTL bounds how long a simulated schedule stays cached.
// Previews are deterministic for identical terms, so the TTL only limits
// memory usage, not correctness.
const scheduleCacheTTL = 24 * time.Hour

// ScheduleCache caches simulated payment schedules keyed by loan terms.
// A nil *ScheduleCache is a no-op, so callers can run without Redis.
type ScheduleCache struct {
	client *redis.Client
}

// NewScheduleCache creates a schedule cache backed by the given Redis address.
func NewScheduleCache(addr string) *ScheduleCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &ScheduleCache{client: rdb}
}

// Ping verifies connectivity to the Redis server.
func (c *ScheduleCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (c *ScheduleCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

type cachedSchedule struct {
	Installments []engine.Installment   `json:"installments"`
	Summary      engine.ScheduleSummary `json:"summary"`
}

// Get returns a cached schedule for the given key, or false on a miss.
// Redis errors are treated as misses so the caller recomputes.
func (c *ScheduleCache) Get(ctx context.Context, key string) ([]engine.Installment, engine.ScheduleSummary, bool) {
	if c == nil {
		return nil, engine.ScheduleSummary{}, false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, engine.ScheduleSummary{}, false
	}
	var cached cachedSchedule
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, engine.ScheduleSummary{}, false
	}
	return cached.Installments, cached.Summary, true
}

// Set stores a schedule under the given key.
func (c *ScheduleCache) Set(ctx context.Context, key string, installments []engine.Installment, summary engine.ScheduleSummary) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(cachedSchedule{Installments: installments, Summary: summary})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, scheduleCacheTTL).Err()
}

// ScheduleCacheKey derives a stable cache key from loan terms and the
// calendar fingerprint. Terms marshal deterministically, so identical
// simulations share an entry.
func ScheduleCacheKey(terms engine.LoanTerms, calendarFingerprint string) string {
	frequencyType := ""
	if terms.Frequency != nil {
		frequencyType = string(terms.Frequency.FrequencyType())
	}
	payload, _ := json.Marshal(struct {
		Terms         engine.LoanTerms `json:"terms"`
		FrequencyType string           `json:"frequency_type"`
		Calendar      string           `json:"calendar"`
	}{terms, frequencyType, calendarFingerprint})
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("schedule:%s", hex.EncodeToString(sum[:8]))
}
