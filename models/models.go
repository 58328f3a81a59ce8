// Package models defines data structures used throughout the application
package models

import "time"

// Icon descriptors the formatting stage is allowed to return.
const (
	IconSunny  = "Sunny"
	IconCloudy = "Cloudy"
	IconRainy  = "Rainy"
	IconSnowy  = "Snowy"
	IconStormy = "Stormy"
	IconFoggy  = "Foggy"
)

// ValidIconDescriptions lists the fixed icon enumeration in a stable order.
var ValidIconDescriptions = []string{IconSunny, IconCloudy, IconRainy, IconSnowy, IconStormy, IconFoggy}

// IsValidIconDescription reports whether desc is one of the six enumerated icons.
func IsValidIconDescription(desc string) bool {
	for _, v := range ValidIconDescriptions {
		if v == desc {
			return true
		}
	}
	return false
}

// UsageStats tracks generation calls made today and in the trailing
// 60-second window. Persisted across process restarts.
type UsageStats struct {
	Date       string  `json:"date"`
	DailyCount int     `json:"dailyCount"`
	Timestamps []int64 `json:"timestamps"`
}

// NewUsageStats returns a zero-state ledger for the given day.
func NewUsageStats(date string) *UsageStats {
	return &UsageStats{
		Date:       date,
		DailyCount: 0,
		Timestamps: []int64{},
	}
}

// CachedVisual is one persisted cache entry in the local tier.
type CachedVisual struct {
	ImageURL  string `json:"imageUrl"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"` // "local" or "remote"
}

// Age returns how old the entry is relative to now.
func (c *CachedVisual) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(c.Timestamp))
}

// WeatherData represents current conditions for a city. Constructed fresh on
// every request and never persisted; only its derived visual is cached.
type WeatherData struct {
	CityName        string   `json:"cityName"`
	CityNativeName  string   `json:"cityNativeName"`
	Temperature     string   `json:"temperature"`
	Condition       string   `json:"condition"`
	Date            string   `json:"date"`
	IconDescription string   `json:"iconDescription"`
	IsDay           bool     `json:"isDay"`
	Sources         []string `json:"sources"`
}

// VisualResult is the end-to-end orchestration output.
type VisualResult struct {
	Weather   *WeatherData `json:"weather"`
	ImageURL  string       `json:"imageUrl"`
	CacheHit  bool         `json:"cacheHit"`
	CacheTier string       `json:"cacheTier,omitempty"` // "local" or "remote" on a hit
}

// UsageReport is the ledger snapshot returned by the usage endpoint.
type UsageReport struct {
	Date         string `json:"date"`
	DailyCount   int    `json:"dailyCount"`
	DailyCutoff  int    `json:"dailyCutoff"`
	WindowCount  int    `json:"windowCount"`
	WindowLimit  int    `json:"windowLimit"`
	WindowMillis int64  `json:"windowMillis"`
}

// ConsentRequest represents a privacy consent decision submitted by the user
type ConsentRequest struct {
	Decision string `json:"decision" form:"decision" binding:"required,oneof=granted denied"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}

// KVEntry is one persisted record in the device-local key-value store
type KVEntry struct {
	Key       string `json:"key" gorm:"primaryKey"`
	Value     string `json:"value" gorm:"not null"`
	UpdatedAt time.Time
}
