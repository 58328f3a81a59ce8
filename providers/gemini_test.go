package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atmolite.app/config"
	"atmolite.app/pkg/errors"
)

func testGeminiConfig(baseURL string) *config.GeminiConfig {
	return &config.GeminiConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		SearchModel:    "search-model",
		FormatModel:    "format-model",
		ImageModel:     "image-model",
		TimeoutSeconds: 5,
	}
}

func TestGeminiProvider_NoCredential(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	cfg := testGeminiConfig(server.URL)
	cfg.APIKey = ""
	provider := NewGeminiProvider(cfg)
	ctx := context.Background()

	assert.False(t, provider.HasCredential())

	_, err := provider.DescribeConditions(ctx, "Kyoto")
	assert.True(t, errors.IsMissingCredentialError(err))

	_, err = provider.ExtractStructured(ctx, "some text")
	assert.True(t, errors.IsMissingCredentialError(err))

	_, err = provider.SynthesizeImage(ctx, "some prompt")
	assert.True(t, errors.IsMissingCredentialError(err))

	// Credential absence is detected before any network attempt.
	assert.Equal(t, 0, requests)
}

func TestGeminiProvider_DescribeConditions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "search-model:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req, "tools")

		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"parts": [{"text": "Sunny in Kyoto, 24C, daytime."}]},
				"groundingMetadata": {"groundingChunks": [
					{"web": {"uri": "https://weather.example.com/kyoto"}},
					{"web": {"uri": ""}},
					{},
					{"web": {"uri": "https://news.example.com/kyoto"}},
					{"web": {"uri": "https://weather.example.com/kyoto"}}
				]}
			}]
		}`))
	}))
	defer server.Close()

	provider := NewGeminiProvider(testGeminiConfig(server.URL))

	report, err := provider.DescribeConditions(context.Background(), "Kyoto")
	require.NoError(t, err)

	assert.Equal(t, "Sunny in Kyoto, 24C, daytime.", report.Text)
	// Unusable entries are filtered; order preserved; duplicates kept.
	assert.Equal(t, []string{
		"https://weather.example.com/kyoto",
		"https://news.example.com/kyoto",
		"https://weather.example.com/kyoto",
	}, report.Sources)
}

func TestGeminiProvider_DescribeConditions_NoGrounding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "answer"}]}}]}`))
	}))
	defer server.Close()

	provider := NewGeminiProvider(testGeminiConfig(server.URL))

	report, err := provider.DescribeConditions(context.Background(), "Kyoto")
	require.NoError(t, err)
	assert.Equal(t, "answer", report.Text)
	assert.Empty(t, report.Sources)
	assert.NotNil(t, report.Sources)
}

func TestGeminiProvider_ExtractStructured(t *testing.T) {
	t.Run("ValidSchema", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "format-model:generateContent")

			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			genCfg, ok := req["generationConfig"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "application/json", genCfg["responseMimeType"])
			assert.Contains(t, genCfg, "responseSchema")

			_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text":
				"{\"temperature\":\"24C - 26C\",\"condition\":\"Clear\",\"date\":\"Aug 29\",\"cityNativeName\":\"Kyoto\",\"iconDescription\":\"Sunny\",\"isDay\":true}"
			}]}}]}`))
		}))
		defer server.Close()

		provider := NewGeminiProvider(testGeminiConfig(server.URL))

		data, err := provider.ExtractStructured(context.Background(), "Sunny in Kyoto")
		require.NoError(t, err)
		assert.Equal(t, "24C - 26C", data.Temperature)
		assert.Equal(t, "Clear", data.Condition)
		assert.Equal(t, "Sunny", data.IconDescription)
		assert.True(t, data.IsDay)
	})

	t.Run("UnparseableJSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "I could not find the weather."}]}}]}`))
		}))
		defer server.Close()

		provider := NewGeminiProvider(testGeminiConfig(server.URL))

		_, err := provider.ExtractStructured(context.Background(), "gibberish")
		assert.True(t, errors.IsMalformedResponseError(err))
	})

	t.Run("IconOutsideEnumeration", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text":
				"{\"temperature\":\"1C\",\"condition\":\"Hail\",\"date\":\"Aug 29\",\"cityNativeName\":\"Oslo\",\"iconDescription\":\"Hailing\",\"isDay\":false}"
			}]}}]}`))
		}))
		defer server.Close()

		provider := NewGeminiProvider(testGeminiConfig(server.URL))

		_, err := provider.ExtractStructured(context.Background(), "hail in oslo")
		assert.True(t, errors.IsMalformedResponseError(err))
	})
}

func TestGeminiProvider_SynthesizeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "image-model:generateContent")

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		genCfg, ok := req["generationConfig"].(map[string]interface{})
		require.True(t, ok)
		imgCfg, ok := genCfg["imageConfig"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "9:16", imgCfg["aspectRatio"])

		safety, ok := req["safetySettings"].([]interface{})
		require.True(t, ok)
		assert.Len(t, safety, 4)

		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [
			{"text": "Here is your image."},
			{"inlineData": {"mimeType": "image/png", "data": "aW1hZ2VieXRlcw=="}}
		]}}]}`))
	}))
	defer server.Close()

	provider := NewGeminiProvider(testGeminiConfig(server.URL))

	parts, err := provider.SynthesizeImage(context.Background(), "a tiny isometric city")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "Here is your image.", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "aW1hZ2VieXRlcw==", parts[1].InlineData.Data)
}

func TestGeminiProvider_TransportFaults(t *testing.T) {
	t.Run("NonOKStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		provider := NewGeminiProvider(testGeminiConfig(server.URL))

		_, err := provider.DescribeConditions(context.Background(), "Kyoto")
		require.Error(t, err)
		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorTypeGeneration, appErr.Type)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		provider := NewGeminiProvider(testGeminiConfig(server.URL))

		_, err := provider.SynthesizeImage(context.Background(), "prompt")
		require.Error(t, err)
		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorTypeGeneration, appErr.Type)
	})

	t.Run("Unreachable", func(t *testing.T) {
		provider := NewGeminiProvider(testGeminiConfig("http://127.0.0.1:1"))

		_, err := provider.ExtractStructured(context.Background(), "text")
		require.Error(t, err)
		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorTypeGeneration, appErr.Type)
	})
}

func TestLoggingDecorator_PassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "search-model") {
			_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "sunny"}]}}]}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewLoggingDecorator(NewGeminiProvider(testGeminiConfig(server.URL)))
	ctx := context.Background()

	assert.True(t, provider.HasCredential())

	report, err := provider.DescribeConditions(ctx, "Kyoto")
	require.NoError(t, err)
	assert.Equal(t, "sunny", report.Text)

	_, err = provider.SynthesizeImage(ctx, "prompt")
	assert.Error(t, err)
}
