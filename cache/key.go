// Package cache implements the tiered visual cache: a device-local
// persistent tier consulted first, then a shared-remote tier, with
// write-through on remote hits.
package cache

import (
	"fmt"

	"atmolite.app/config"
	"atmolite.app/pkg/validation"
)

// KeyDeriver maps (city, condition descriptor, day/night flag) to a
// canonical, collision-resistant cache key.
type KeyDeriver struct {
	namespace string
	version   string
}

// NewKeyDeriver creates a deriver for the configured namespace and version.
func NewKeyDeriver(cfg config.CacheConfig) *KeyDeriver {
	return &KeyDeriver{
		namespace: cfg.Namespace,
		version:   cfg.Version,
	}
}

// DeriveKey is pure and deterministic: equal semantic inputs after
// normalization always yield an identical key, so minor formatting
// differences (casing, whitespace) reuse the same cache entry. A city
// that normalizes to the empty string still produces a valid key.
func (d *KeyDeriver) DeriveKey(city, iconDesc string, isDay bool) string {
	timeOfDay := "night"
	if isDay {
		timeOfDay = "day"
	}

	cleanCity := validation.NormalizeCity(city)
	cleanDesc := validation.NormalizeDescriptor(iconDesc)

	return fmt.Sprintf("%s_%s_%s_%s_%s", d.namespace, d.version, cleanCity, cleanDesc, timeOfDay)
}
