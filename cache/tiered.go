package cache

import (
	"context"
	"log/slog"
	"time"

	"atmolite.app/metrics"
)

// Tier provenance values reported on a hit.
const (
	TierLocal  = "local"
	TierRemote = "remote"
)

// TieredCache consults the local tier first, then the remote tier. A
// remote hit is written through to the local tier so subsequent reads are
// served locally.
type TieredCache struct {
	local         *LocalTier
	remote        RemoteTier // nil when no remote tier is configured
	remoteMetrics *metrics.CacheMetrics
	writeTimeout  time.Duration
}

func NewTieredCache(local *LocalTier, remote RemoteTier) *TieredCache {
	return &TieredCache{
		local:         local,
		remote:        remote,
		remoteMetrics: metrics.NewCacheMetrics("remote"),
		writeTimeout:  30 * time.Second,
	}
}

// Read probes the tiers in order; the first hit wins. The returned tier
// tag records which tier served the visual.
func (c *TieredCache) Read(ctx context.Context, key string) (string, string, bool) {
	if imageURL, found := c.local.Read(ctx, key); found {
		slog.Debug("cache hit", "tier", TierLocal, "key", key)
		return imageURL, TierLocal, true
	}

	if c.remote != nil {
		if imageURL, found := c.remote.Fetch(ctx, key); found {
			c.remoteMetrics.RecordHit()
			slog.Debug("cache hit", "tier", TierRemote, "key", key)
			c.local.Write(ctx, key, imageURL, TierRemote)
			return imageURL, TierRemote, true
		}
		c.remoteMetrics.RecordMiss()
	}

	slog.Debug("cache miss", "key", key)
	return "", "", false
}

// Write stores the visual in the local tier synchronously and in the
// remote tier as a detached task whose failure is only logged; the remote
// write must never fail the caller's critical path.
func (c *TieredCache) Write(ctx context.Context, key, imageURL string) {
	c.local.Write(ctx, key, imageURL, TierLocal)

	if c.remote == nil {
		return
	}

	remote := c.remote
	timeout := c.writeTimeout
	go func() {
		detached, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := remote.Store(detached, key, imageURL); err != nil {
			slog.Warn("remote cache upload failed", "error", err, "key", key, "tier", remote.Name())
		}
	}()
}
