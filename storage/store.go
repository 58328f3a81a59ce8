// Package storage implements the device-local persistent key-value store.
package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/allegro/bigcache/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"atmolite.app/config"
	"atmolite.app/database"
	"atmolite.app/models"
	"atmolite.app/pkg/errors"
)

// KeyValueStore defines the contract for the local persistence medium.
// Get reports absence through the bool; the error is reserved for the
// medium itself being unavailable.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// New builds the configured store. Construction failures degrade to a
// disabled store rather than aborting startup: callers are required to
// tolerate StorageUnavailable on every operation.
func New(cfg config.StorageConfig) KeyValueStore {
	switch cfg.Driver {
	case "sqlite":
		store, err := NewSQLiteStore(cfg)
		if err != nil {
			slog.Warn("local store unavailable, persistence disabled", "error", err, "path", cfg.Path)
			return NewDisabledStore()
		}
		return store
	case "memory":
		store, err := NewMemoryStore()
		if err != nil {
			slog.Warn("memory store unavailable, persistence disabled", "error", err)
			return NewDisabledStore()
		}
		return store
	default:
		return NewDisabledStore()
	}
}

// SQLiteStore persists key-value pairs in a local sqlite database.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens the sqlite database and runs migrations.
func NewSQLiteStore(cfg config.StorageConfig) (*SQLiteStore, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to open local store", err)
	}

	if err := database.RunMigrations(db); err != nil {
		return nil, errors.NewStorageUnavailableError("failed to migrate local store", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreWithDB wraps an already opened gorm handle, used in tests.
func NewSQLiteStoreWithDB(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	result := s.db.WithContext(ctx).Where("key = ?", key).First(&entry)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, errors.NewStorageUnavailableError("local store read failed", result.Error)
	}
	return entry.Value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		return errors.NewStorageUnavailableError("local store write failed", result.Error)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).Delete(&models.KVEntry{}, "key = ?", key)
	if result.Error != nil {
		return errors.NewStorageUnavailableError("local store delete failed", result.Error)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return database.CloseDB(s.db)
}

// MemoryStore keeps key-value pairs in process memory. Contents do not
// survive a restart; useful for ephemeral deployments and tests.
type MemoryStore struct {
	cache *bigcache.BigCache
}

// NewMemoryStore builds a bigcache-backed store. The life window is kept
// well past the visual expiry so the cache layers above decide freshness.
func NewMemoryStore() (*MemoryStore, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(72*time.Hour))
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to create memory store", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := m.cache.Get(key)
	if err != nil {
		if err == bigcache.ErrEntryNotFound {
			return "", false, nil
		}
		return "", false, errors.NewStorageUnavailableError("memory store read failed", err)
	}
	return string(data), true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := m.cache.Set(key, []byte(value)); err != nil {
		return errors.NewStorageUnavailableError("memory store write failed", err)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := m.cache.Delete(key); err != nil && err != bigcache.ErrEntryNotFound {
		return errors.NewStorageUnavailableError("memory store delete failed", err)
	}
	return nil
}

// DisabledStore rejects every operation with StorageUnavailable. It stands
// in when the persistence medium cannot be opened or is configured off.
type DisabledStore struct{}

func NewDisabledStore() *DisabledStore {
	return &DisabledStore{}
}

func (d *DisabledStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.NewStorageUnavailableError("local store is disabled", nil)
}

func (d *DisabledStore) Set(ctx context.Context, key, value string) error {
	return errors.NewStorageUnavailableError("local store is disabled", nil)
}

func (d *DisabledStore) Delete(ctx context.Context, key string) error {
	return errors.NewStorageUnavailableError("local store is disabled", nil)
}
