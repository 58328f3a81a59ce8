package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"atmolite.app/cache"
	"atmolite.app/models"
	"atmolite.app/pkg/errors"
	"atmolite.app/pkg/logger"
	"atmolite.app/pkg/validation"
	"atmolite.app/providers"
)

// maxBlockedSnippet bounds how much model refusal text is surfaced to callers.
const maxBlockedSnippet = 100

// VisualService orchestrates the two-stage pipeline: fresh weather lookup
// followed by cached-or-generated city visual.
type VisualService struct {
	provider providers.GenerationProvider
	gate     QuotaGate
	cache    VisualCache
	keys     *cache.KeyDeriver
	log      *logger.Logger
}

// NewVisualService creates the orchestrator over its collaborators
func NewVisualService(provider providers.GenerationProvider, gate QuotaGate, visualCache VisualCache, keys *cache.KeyDeriver, log *logger.Logger) *VisualService {
	return &VisualService{
		provider: provider,
		gate:     gate,
		cache:    visualCache,
		keys:     keys,
		log:      log,
	}
}

// GetWeather fetches current conditions for a city. The result is built fresh
// on every call and never cached; both upstream calls are quota-gated.
func (s *VisualService) GetWeather(ctx context.Context, city string) (*models.WeatherData, error) {
	city, ok := validation.TrimAndValidate(city)
	if !ok {
		return nil, errors.NewValidationError("city cannot be empty")
	}

	if !s.provider.HasCredential() {
		return nil, errors.NewMissingCredentialError("generation API key is not configured")
	}

	var report *providers.ConditionReport
	err := s.gate.Admit(ctx, func(ctx context.Context) error {
		var admitErr error
		report, admitErr = s.provider.DescribeConditions(ctx, city)
		return admitErr
	})
	if err != nil {
		return nil, err
	}

	var weather *models.WeatherData
	err = s.gate.Admit(ctx, func(ctx context.Context) error {
		var admitErr error
		weather, admitErr = s.provider.ExtractStructured(ctx, report.Text)
		return admitErr
	})
	if err != nil {
		return nil, err
	}

	weather.CityName = city
	weather.Sources = report.Sources

	s.log.Debug("weather retrieved",
		"city", city,
		"condition", weather.Condition,
		"icon", weather.IconDescription,
		"isDay", weather.IsDay,
		"sources", len(weather.Sources))

	return weather, nil
}

// GenerateVisual resolves the visual for already-fetched weather: cache first,
// then a single quota-gated synthesis call. A cache hit issues zero gated calls.
func (s *VisualService) GenerateVisual(ctx context.Context, weather *models.WeatherData) (*models.VisualResult, error) {
	if weather == nil {
		return nil, errors.NewValidationError("weather data is required")
	}

	key := s.keys.DeriveKey(weather.CityName, weather.IconDescription, weather.IsDay)

	if imageURL, tier, ok := s.cache.Read(ctx, key); ok {
		s.log.Info("visual served from cache", "key", key, "tier", tier)
		return &models.VisualResult{
			Weather:   weather,
			ImageURL:  imageURL,
			CacheHit:  true,
			CacheTier: tier,
		}, nil
	}

	if !s.provider.HasCredential() {
		return nil, errors.NewMissingCredentialError("generation API key is not configured")
	}

	prompt := buildVisualPrompt(weather)

	var parts []providers.ContentPart
	err := s.gate.Admit(ctx, func(ctx context.Context) error {
		var admitErr error
		parts, admitErr = s.provider.SynthesizeImage(ctx, prompt)
		return admitErr
	})
	if err != nil {
		return nil, err
	}

	imageURL, err := extractImageURI(parts)
	if err != nil {
		return nil, err
	}

	s.cache.Write(ctx, key, imageURL)
	s.log.Info("visual generated", "key", key)

	return &models.VisualResult{
		Weather:  weather,
		ImageURL: imageURL,
		CacheHit: false,
	}, nil
}

// GetCityVisual chains both stages end to end.
func (s *VisualService) GetCityVisual(ctx context.Context, city string) (*models.VisualResult, error) {
	log := s.log.WithField("requestId", uuid.New().String())
	log.Info("visual request started", "city", city)

	weather, err := s.GetWeather(ctx, city)
	if err != nil {
		log.Warn("weather stage failed", "city", city, "error", err)
		return nil, err
	}

	result, err := s.GenerateVisual(ctx, weather)
	if err != nil {
		log.Warn("visual stage failed", "city", city, "error", err)
		return nil, err
	}

	log.Info("visual request completed", "city", city, "cacheHit", result.CacheHit, "tier", result.CacheTier)
	return result, nil
}

// extractImageURI scans content parts in order and returns the first inline
// image as a data URI. A text-only reply means the model refused; an empty
// part list means it silently produced nothing.
func extractImageURI(parts []providers.ContentPart) (string, error) {
	for _, part := range parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return "data:image/png;base64," + part.InlineData.Data, nil
		}
	}

	for _, part := range parts {
		if part.Text != "" {
			snippet := []rune(part.Text)
			if len(snippet) > maxBlockedSnippet {
				snippet = snippet[:maxBlockedSnippet]
			}
			return "", errors.NewGenerationBlockedError(string(snippet))
		}
	}

	return "", errors.NewNoImageProducedError()
}

func buildVisualPrompt(weather *models.WeatherData) string {
	lighting := "Daylight scene, bright natural lighting, clear visibility."
	if !weather.IsDay {
		lighting = "Night time scene, cinematic evening lighting, windows glowing warm yellow, street lamps illuminated, dark blue ambient sky."
	}

	return fmt.Sprintf(`Start immediately with image generation. Do not output any conversational text.
Request: A vertical (9:16) isometric 3D miniature of %s (%s).
Visual Specs:
- View: 45° top-down.
- Style: 3D cartoon, soft PBR textures, realistic lighting.
- Weather: %s.
- Atmosphere: %s
- Composition: Iconic landmarks centered, solid-colored background, minimalistic.
Output: Single image file.`, weather.CityName, weather.CityNativeName, weather.Condition, lighting)
}
