package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"atmolite.app/config"
	"atmolite.app/metrics"
	"atmolite.app/models"
	"atmolite.app/pkg/errors"
)

// Clock abstracts time for the gate so window and reset behavior can be
// tested without waiting real time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Gate enforces the daily quota and the sliding-window rate limit before
// allowing an expensive provider call. Admission is debited and persisted
// before the call runs, so a crash or an overlapping call mid-flight is
// still counted.
type Gate struct {
	cfg     config.QuotaConfig
	ledger  *Ledger
	clock   Clock
	metrics *metrics.QuotaMetrics
	mu      sync.Mutex
}

// NewGate creates a gate on the wall clock.
func NewGate(cfg config.QuotaConfig, ledger *Ledger) *Gate {
	return NewGateWithClock(cfg, ledger, SystemClock())
}

// NewGateWithClock creates a gate with an injectable clock.
func NewGateWithClock(cfg config.QuotaConfig, ledger *Ledger, clock Clock) *Gate {
	return &Gate{
		cfg:     cfg,
		ledger:  ledger,
		clock:   clock,
		metrics: metrics.NewQuotaMetrics(),
	}
}

// Admit evaluates the quota thresholds and, when the call is allowed,
// records the admission and invokes perform. The evaluation and the
// ledger read-modify-write form a critical section: two concurrent calls
// must never both observe the same pre-increment state.
//
// perform's result is returned unchanged; bookkeeping is already
// committed regardless of its outcome and is not refunded on failure.
func (g *Gate) Admit(ctx context.Context, perform func(context.Context) error) error {
	if err := g.record(ctx); err != nil {
		return err
	}

	return perform(ctx)
}

// record runs the admission algorithm under the gate mutex.
func (g *Gate) record(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	today := now.Format(DateFormat)

	stats := g.ledger.Load(ctx, today)

	// Daily reset: counters from a previous calendar day do not carry over.
	if stats.Date != today {
		stats = models.NewUsageStats(today)
	}

	cutoff := g.cfg.DailyCutoff()
	if stats.DailyCount >= cutoff {
		slog.Warn("daily quota reached", "count", stats.DailyCount, "cutoff", cutoff)
		g.metrics.RecordRejected("daily")
		return errors.NewQuotaDailyError("daily free limit reached, try again tomorrow")
	}

	// Sliding window: keep only timestamps within the trailing window.
	nowMillis := now.UnixMilli()
	windowMillis := g.cfg.Window.Milliseconds()
	pruned := make([]int64, 0, len(stats.Timestamps))
	for _, t := range stats.Timestamps {
		if nowMillis-t < windowMillis {
			pruned = append(pruned, t)
		}
	}
	stats.Timestamps = pruned

	if len(stats.Timestamps) >= g.cfg.MaxRPM {
		slog.Warn("rate limit reached", "window_count", len(stats.Timestamps), "max_rpm", g.cfg.MaxRPM)
		g.metrics.RecordRejected("rate")
		return errors.NewQuotaRateError("too many requests, wait a few seconds")
	}

	// Debit before the call runs.
	stats.DailyCount++
	stats.Timestamps = append(stats.Timestamps, nowMillis)
	g.ledger.Save(ctx, stats)

	g.metrics.RecordAdmitted()
	slog.Debug("call admitted",
		"daily_count", stats.DailyCount,
		"daily_cutoff", cutoff,
		"window_count", len(stats.Timestamps),
		"max_rpm", g.cfg.MaxRPM)

	return nil
}

// Snapshot reports the current ledger state without recording an
// admission. The returned window count reflects lazy pruning but nothing
// is persisted.
func (g *Gate) Snapshot(ctx context.Context) *models.UsageReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	today := now.Format(DateFormat)

	stats := g.ledger.Load(ctx, today)
	if stats.Date != today {
		stats = models.NewUsageStats(today)
	}

	nowMillis := now.UnixMilli()
	windowMillis := g.cfg.Window.Milliseconds()
	windowCount := 0
	for _, t := range stats.Timestamps {
		if nowMillis-t < windowMillis {
			windowCount++
		}
	}

	return &models.UsageReport{
		Date:         stats.Date,
		DailyCount:   stats.DailyCount,
		DailyCutoff:  g.cfg.DailyCutoff(),
		WindowCount:  windowCount,
		WindowLimit:  g.cfg.MaxRPM,
		WindowMillis: windowMillis,
	}
}
