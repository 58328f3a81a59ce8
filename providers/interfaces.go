package providers

import (
	"context"

	"atmolite.app/models"
)

// ConditionReport is the free-text answer from the grounded search stage
// together with its attribution URIs, order-preserving.
type ConditionReport struct {
	Text    string
	Sources []string
}

// InlineData is base64-encoded binary content returned inside a part.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ContentPart is one part of a generation response, either text or
// inline binary data.
type ContentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// GenerationProvider is the remote condition/synthesis capability. It is
// reachable only with a valid credential; credential absence is detected
// locally before any network attempt.
type GenerationProvider interface {
	HasCredential() bool
	DescribeConditions(ctx context.Context, city string) (*ConditionReport, error)
	ExtractStructured(ctx context.Context, freeText string) (*models.WeatherData, error)
	SynthesizeImage(ctx context.Context, prompt string) ([]ContentPart, error)
}
