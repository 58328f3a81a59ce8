package providers

import (
	"context"
	"log/slog"
	"time"

	"atmolite.app/metrics"
	"atmolite.app/models"
)

// LoggingDecorator wraps a GenerationProvider with structured logging and
// latency metrics for every remote call.
type LoggingDecorator struct {
	wrapped GenerationProvider
	metrics *metrics.GenerationMetrics
}

func NewLoggingDecorator(provider GenerationProvider) GenerationProvider {
	return &LoggingDecorator{
		wrapped: provider,
		metrics: metrics.NewGenerationMetrics(),
	}
}

func (d *LoggingDecorator) HasCredential() bool {
	return d.wrapped.HasCredential()
}

func (d *LoggingDecorator) DescribeConditions(ctx context.Context, city string) (*ConditionReport, error) {
	startTime := time.Now()
	report, err := d.wrapped.DescribeConditions(ctx, city)
	duration := time.Since(startTime)

	d.metrics.ObserveDuration("search", duration.Seconds())
	if err != nil {
		slog.Error("condition search failed", "city", city, "error", err, "duration", duration)
		return nil, err
	}

	slog.Debug("condition search completed", "city", city, "sources", len(report.Sources), "duration", duration)
	return report, nil
}

func (d *LoggingDecorator) ExtractStructured(ctx context.Context, freeText string) (*models.WeatherData, error) {
	startTime := time.Now()
	data, err := d.wrapped.ExtractStructured(ctx, freeText)
	duration := time.Since(startTime)

	d.metrics.ObserveDuration("format", duration.Seconds())
	if err != nil {
		slog.Error("weather extraction failed", "error", err, "duration", duration)
		return nil, err
	}

	slog.Debug("weather extraction completed", "icon", data.IconDescription, "is_day", data.IsDay, "duration", duration)
	return data, nil
}

func (d *LoggingDecorator) SynthesizeImage(ctx context.Context, prompt string) ([]ContentPart, error) {
	startTime := time.Now()
	parts, err := d.wrapped.SynthesizeImage(ctx, prompt)
	duration := time.Since(startTime)

	d.metrics.ObserveDuration("synthesize", duration.Seconds())
	if err != nil {
		slog.Error("image synthesis failed", "error", err, "duration", duration)
		return nil, err
	}

	slog.Debug("image synthesis completed", "parts", len(parts), "duration", duration)
	return parts, nil
}
