package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"atmolite.app/config"
	"atmolite.app/pkg/errors"
)

// RemoteTier is the shared-remote cache tier. Absence of connectivity
// degrades to "no hit", never an error.
type RemoteTier interface {
	Name() string
	Fetch(ctx context.Context, key string) (string, bool)
	Store(ctx context.Context, key, imageURL string) error
}

// NewRemoteTier builds the configured tier. A Redis address selects the
// writable Redis tier; if Redis cannot be reached the community index URL
// is used read-only; with neither, the tier is absent.
func NewRemoteTier(cfg config.RemoteCacheConfig, expiry time.Duration) RemoteTier {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RedisAddr != "" {
		tier, err := NewRedisRemoteTier(cfg, expiry)
		if err == nil {
			return tier
		}
		slog.Warn("redis remote tier unavailable", "error", err, "addr", cfg.RedisAddr)
	}

	if cfg.URL != "" {
		return NewCommunityRemoteTier(cfg.URL)
	}

	return nil
}

// CommunityRemoteTier reads a shared JSON index of community visuals over
// HTTP. The write path is a logged no-op: the community repository is
// read-only in the default configuration.
type CommunityRemoteTier struct {
	url    string
	client *http.Client
}

func NewCommunityRemoteTier(url string) *CommunityRemoteTier {
	return &CommunityRemoteTier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *CommunityRemoteTier) Name() string { return "community" }

func (t *CommunityRemoteTier) Fetch(ctx context.Context, key string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return "", false
	}

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Debug("community cache unreachable", "error", err)
		return "", false
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close community cache response", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("community cache returned non-OK status", "status", resp.StatusCode)
		return "", false
	}

	var index map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		slog.Debug("community cache index unreadable", "error", err)
		return "", false
	}

	imageURL, found := index[key]
	if !found || imageURL == "" {
		return "", false
	}
	return imageURL, true
}

func (t *CommunityRemoteTier) Store(ctx context.Context, key, imageURL string) error {
	slog.Debug("community cache is read-only, skipping upload", "key", key)
	return nil
}

// RedisRemoteTier is a writable shared tier backed by Redis, for
// deployments that operate their own shared visual cache.
type RedisRemoteTier struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRemoteTier(cfg config.RemoteCacheConfig, ttl time.Duration) (*RedisRemoteTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewStorageUnavailableError("failed to connect to remote cache", err)
	}

	slog.Info("redis remote tier connected", "addr", cfg.RedisAddr)

	return &RedisRemoteTier{
		client: client,
		ttl:    ttl,
	}, nil
}

func (t *RedisRemoteTier) Name() string { return "redis" }

func (t *RedisRemoteTier) Fetch(ctx context.Context, key string) (string, bool) {
	val, err := t.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("redis remote tier read failed", "error", err, "key", key)
		}
		return "", false
	}
	return val, true
}

func (t *RedisRemoteTier) Store(ctx context.Context, key, imageURL string) error {
	if err := t.client.Set(ctx, key, imageURL, t.ttl).Err(); err != nil {
		return errors.NewStorageUnavailableError("remote cache write failed", err)
	}
	return nil
}

// Close releases the Redis connection.
func (t *RedisRemoteTier) Close() error {
	return t.client.Close()
}
