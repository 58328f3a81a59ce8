// Package quota implements the usage ledger and the admission gate that
// sits in front of every call to the generation provider.
package quota

import (
	"context"
	"encoding/json"
	"log/slog"

	"atmolite.app/models"
	"atmolite.app/storage"
)

// DateFormat is the device-local calendar day granularity used by the ledger.
const DateFormat = "2006-01-02"

const defaultUsageKey = "atmolite_usage_stats"

// Ledger owns the persisted usage record. No other component mutates it.
type Ledger struct {
	store storage.KeyValueStore
	key   string
}

// NewLedger creates a ledger backed by the given key-value store.
func NewLedger(store storage.KeyValueStore) *Ledger {
	return &Ledger{
		store: store,
		key:   defaultUsageKey,
	}
}

// Load reads the persisted usage stats. When the medium is unavailable or
// the record cannot be decoded, it degrades to a fresh zero-state for the
// given day rather than blocking the caller: the quota system assumes no
// prior usage instead of failing closed.
func (l *Ledger) Load(ctx context.Context, today string) *models.UsageStats {
	raw, found, err := l.store.Get(ctx, l.key)
	if err != nil {
		slog.Warn("usage ledger unavailable, assuming no prior usage", "error", err)
		return models.NewUsageStats(today)
	}
	if !found {
		return models.NewUsageStats(today)
	}

	var stats models.UsageStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		slog.Warn("usage ledger corrupted, assuming no prior usage", "error", err)
		return models.NewUsageStats(today)
	}
	if stats.Timestamps == nil {
		stats.Timestamps = []int64{}
	}

	return &stats
}

// Save persists the usage stats. Failures are logged and swallowed: a
// failed write must not block the in-flight call that already passed the
// gate.
func (l *Ledger) Save(ctx context.Context, stats *models.UsageStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		slog.Warn("failed to encode usage stats", "error", err)
		return
	}

	if err := l.store.Set(ctx, l.key, string(data)); err != nil {
		slog.Warn("failed to persist usage stats", "error", err)
	}
}
