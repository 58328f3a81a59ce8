package cache

import (
	"context"
	"log/slog"

	"atmolite.app/pkg/errors"
	"atmolite.app/pkg/validation"
	"atmolite.app/storage"
)

// Privacy flag states. Unset is treated as not denied: the local tier is
// default-open until the user explicitly denies storage.
const (
	ConsentGranted = "granted"
	ConsentDenied  = "denied"
	ConsentUnset   = ""
)

const consentKey = "atmolite_storage_permission"

// ConsentStore persists the tri-state privacy flag, keyed independently
// of any cache entry.
type ConsentStore struct {
	store storage.KeyValueStore
}

func NewConsentStore(store storage.KeyValueStore) *ConsentStore {
	return &ConsentStore{store: store}
}

// Get returns the current flag. An unavailable store reads as unset.
func (c *ConsentStore) Get(ctx context.Context) string {
	value, found, err := c.store.Get(ctx, consentKey)
	if err != nil {
		slog.Warn("failed to read storage consent, treating as unset", "error", err)
		return ConsentUnset
	}
	if !found {
		return ConsentUnset
	}
	return value
}

// Set records the user's decision. Storage failures are surfaced so the
// consent prompt can tell the user the decision did not stick.
func (c *ConsentStore) Set(ctx context.Context, decision string) error {
	if !validation.IsValidConsent(decision) {
		return errors.NewValidationError("consent decision must be granted or denied")
	}
	return c.store.Set(ctx, consentKey, decision)
}

// Denied reports whether the user has explicitly denied local storage.
func (c *ConsentStore) Denied(ctx context.Context) bool {
	return c.Get(ctx) == ConsentDenied
}
