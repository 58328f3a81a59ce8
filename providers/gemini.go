package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"atmolite.app/config"
	"atmolite.app/models"
	"atmolite.app/pkg/errors"
)

// GeminiProvider talks to the generative language REST API. It backs all
// three provider operations: grounded search, structured extraction and
// image synthesis.
type GeminiProvider struct {
	apiKey      string
	baseURL     string
	searchModel string
	formatModel string
	imageModel  string
	client      *http.Client
}

// NewGeminiProvider creates a provider from configuration.
func NewGeminiProvider(cfg *config.GeminiConfig) *GeminiProvider {
	return &GeminiProvider{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		searchModel: cfg.SearchModel,
		formatModel: cfg.FormatModel,
		imageModel:  cfg.ImageModel,
		client:      &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// HasCredential reports whether an API key is configured.
func (p *GeminiProvider) HasCredential() bool {
	return p.apiKey != ""
}

// Request/response shapes for the generateContent endpoint.

type generateRequest struct {
	Contents         []requestContent  `json:"contents"`
	Tools            []requestTool     `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings   []safetySetting   `json:"safetySettings,omitempty"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type requestTool struct {
	GoogleSearch struct{} `json:"googleSearch"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
	ImageConfig      *imageConfig    `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content struct {
		Parts []ContentPart `json:"parts"`
	} `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *struct {
		URI string `json:"uri"`
	} `json:"web,omitempty"`
}

// weatherSchema is the fixed extraction schema for the formatting stage.
var weatherSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"temperature": {"type": "STRING"},
		"condition": {"type": "STRING"},
		"date": {"type": "STRING"},
		"cityNativeName": {"type": "STRING"},
		"iconDescription": {"type": "STRING"},
		"isDay": {"type": "BOOLEAN"}
	},
	"required": ["temperature", "condition", "date", "cityNativeName", "iconDescription", "isDay"]
}`)

// uniformSafetySettings applies the same permissive threshold across all
// four harm categories.
var uniformSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
}

// DescribeConditions issues a grounded natural-language query for the
// current conditions at the given city.
func (p *GeminiProvider) DescribeConditions(ctx context.Context, city string) (*ConditionReport, error) {
	if !p.HasCredential() {
		return nil, errors.NewMissingCredentialError("no API key configured")
	}

	prompt := fmt.Sprintf(`Find the current weather for %s.
I need the following current details:
- Temperature range
- Weather condition (e.g. Partly Cloudy)
- Today's date
- The city's native name
- Crucial: Is it currently Day or Night at that location?`, city)

	req := &generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
		Tools:    []requestTool{{}},
	}

	resp, err := p.generateContent(ctx, p.searchModel, req)
	if err != nil {
		return nil, err
	}

	return &ConditionReport{
		Text:    firstText(resp),
		Sources: attributionURIs(resp),
	}, nil
}

// ExtractStructured turns the free-text conditions answer into the fixed
// weather schema. A response that cannot be parsed into the schema is a
// terminal MalformedResponse.
func (p *GeminiProvider) ExtractStructured(ctx context.Context, freeText string) (*models.WeatherData, error) {
	if !p.HasCredential() {
		return nil, errors.NewMissingCredentialError("no API key configured")
	}

	prompt := fmt.Sprintf(`Extract the weather data from the text below and format it as JSON.
Text: %q
Required JSON Structure:
- temperature: string (e.g., "24C - 26C")
- condition: string (e.g., "Partly Cloudy")
- date: string (e.g., "Oct 24")
- cityNativeName: string (the city's name in its native script)
- iconDescription: string (Choose exactly one: "Sunny", "Cloudy", "Rainy", "Snowy", "Stormy", "Foggy")
- isDay: boolean (true if it is currently daytime, false if it is nighttime)`, freeText)

	req := &generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   weatherSchema,
		},
	}

	resp, err := p.generateContent(ctx, p.formatModel, req)
	if err != nil {
		return nil, err
	}

	var data models.WeatherData
	if err := json.Unmarshal([]byte(firstText(resp)), &data); err != nil {
		return nil, errors.NewMalformedResponseError("weather extraction returned unparseable JSON", err)
	}
	if !models.IsValidIconDescription(data.IconDescription) {
		return nil, errors.NewMalformedResponseError(
			fmt.Sprintf("unknown icon description %q", data.IconDescription), nil)
	}

	return &data, nil
}

// SynthesizeImage issues a single image-generation call and returns the
// response content parts in service order.
func (p *GeminiProvider) SynthesizeImage(ctx context.Context, prompt string) ([]ContentPart, error) {
	if !p.HasCredential() {
		return nil, errors.NewMissingCredentialError("no API key configured")
	}

	req := &generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ImageConfig: &imageConfig{AspectRatio: "9:16"},
		},
		SafetySettings: uniformSafetySettings,
	}

	resp, err := p.generateContent(ctx, p.imageModel, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, nil
	}
	return resp.Candidates[0].Content.Parts, nil
}

func (p *GeminiProvider) generateContent(ctx context.Context, model string, payload *generateRequest) (*generateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewGenerationError("failed to encode request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewGenerationError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.NewGenerationError("generation request failed", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			// Ignore close error as it's not critical for the main operation
			_ = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewGenerationError(fmt.Sprintf("generation API returned status code %d", resp.StatusCode), nil)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewGenerationError("failed to decode generation response", err)
	}

	return &result, nil
}

// firstText returns the first text part of the first candidate.
func firstText(resp *generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text
		}
	}
	return ""
}

// attributionURIs collects grounding URIs in service order. Entries
// without a usable URI are filtered; duplicates are kept.
func attributionURIs(resp *generateResponse) []string {
	sources := []string{}
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return sources
	}
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web != nil && chunk.Web.URI != "" {
			sources = append(sources, chunk.Web.URI)
		}
	}
	return sources
}
