package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"atmolite.app/config"
	"atmolite.app/metrics"
	"atmolite.app/models"
	"atmolite.app/storage"
)

// Clock abstracts time for expiry checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// LocalTier is the device-local cache tier. Every read and write first
// consults the privacy flag; a denied flag short-circuits this tier only.
// Entries past the expiry window are evicted lazily on read.
type LocalTier struct {
	store   storage.KeyValueStore
	consent *ConsentStore
	expiry  time.Duration
	clock   Clock
	metrics *metrics.CacheMetrics
}

func NewLocalTier(store storage.KeyValueStore, consent *ConsentStore, cfg config.CacheConfig) *LocalTier {
	return NewLocalTierWithClock(store, consent, cfg, systemClock{})
}

func NewLocalTierWithClock(store storage.KeyValueStore, consent *ConsentStore, cfg config.CacheConfig, clock Clock) *LocalTier {
	return &LocalTier{
		store:   store,
		consent: consent,
		expiry:  cfg.Expiry,
		clock:   clock,
		metrics: metrics.NewCacheMetrics("local"),
	}
}

// Read returns the cached visual reference for the key, or absence.
// Storage faults read as a miss: caching is an optimization, never a
// dependency for correctness.
func (t *LocalTier) Read(ctx context.Context, key string) (string, bool) {
	if t.consent.Denied(ctx) {
		t.metrics.RecordMiss()
		return "", false
	}

	raw, found, err := t.store.Get(ctx, key)
	if err != nil {
		slog.Warn("local cache read failed", "error", err, "key", key)
		t.metrics.RecordMiss()
		return "", false
	}
	if !found {
		t.metrics.RecordMiss()
		return "", false
	}

	var cached models.CachedVisual
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		slog.Warn("local cache entry corrupted, evicting", "error", err, "key", key)
		t.evict(ctx, key)
		t.metrics.RecordMiss()
		return "", false
	}

	if cached.Age(t.clock.Now()) > t.expiry {
		slog.Debug("local visual expired", "key", key)
		t.evict(ctx, key)
		t.metrics.RecordMiss()
		return "", false
	}

	t.metrics.RecordHit()
	return cached.ImageURL, true
}

// Write persists the visual under the key with the given provenance tag.
// Failures are logged, never propagated.
func (t *LocalTier) Write(ctx context.Context, key, imageURL, source string) {
	if t.consent.Denied(ctx) {
		return
	}

	entry := models.CachedVisual{
		ImageURL:  imageURL,
		Timestamp: t.clock.Now().UnixMilli(),
		Source:    source,
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		slog.Warn("failed to encode cache entry", "error", err, "key", key)
		return
	}

	if err := t.store.Set(ctx, key, string(data)); err != nil {
		slog.Warn("local cache write failed", "error", err, "key", key)
	}
}

func (t *LocalTier) evict(ctx context.Context, key string) {
	if err := t.store.Delete(ctx, key); err != nil {
		slog.Warn("local cache evict failed", "error", err, "key", key)
	}
}
