package service

import (
	"context"

	"atmolite.app/models"
)

// QuotaGate admits generation calls against the usage ledger.
// Implemented by quota.Gate.
type QuotaGate interface {
	Admit(ctx context.Context, perform func(context.Context) error) error
	Snapshot(ctx context.Context) *models.UsageReport
}

// VisualCache is the tiered read/write surface the orchestrator talks to.
// Implemented by cache.TieredCache.
type VisualCache interface {
	Read(ctx context.Context, key string) (imageURL, tier string, ok bool)
	Write(ctx context.Context, key, imageURL string)
}

// VisualServiceInterface defines the orchestration operations exposed to the API layer
type VisualServiceInterface interface {
	GetWeather(ctx context.Context, city string) (*models.WeatherData, error)
	GenerateVisual(ctx context.Context, weather *models.WeatherData) (*models.VisualResult, error)
	GetCityVisual(ctx context.Context, city string) (*models.VisualResult, error)
}
