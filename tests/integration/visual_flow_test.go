package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"atmolite.app/models"
)

const kyotoKey = "atmolite_v1_kyoto_sunny_day"

func (s *VisualFlowSuite) doJSON(method, target, body string, out interface{}) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func (s *VisualFlowSuite) TestSecondRequestServedFromLocalCache() {
	var first models.VisualResult
	w := s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", &first)
	s.Equal(http.StatusOK, w.Code)

	s.False(first.CacheHit)
	s.Equal("data:image/png;base64,aW1hZ2VieXRlcw==", first.ImageURL)
	s.Equal("Kyoto", first.Weather.CityName)
	s.Equal([]string{"https://weather.example.com/kyoto"}, first.Weather.Sources)
	s.EqualValues(1, s.gemini.imageHits.Load())

	var second models.VisualResult
	w = s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", &second)
	s.Equal(http.StatusOK, w.Code)

	s.True(second.CacheHit)
	s.Equal("local", second.CacheTier)
	s.Equal(first.ImageURL, second.ImageURL)
	// The cached visual must not cost another synthesis call. Weather is
	// refetched every time, so search and format counts still advance.
	s.EqualValues(1, s.gemini.imageHits.Load())
	s.EqualValues(2, s.gemini.searchHits.Load())
	s.EqualValues(2, s.gemini.formatHits.Load())
}

func (s *VisualFlowSuite) TestGeneratedVisualReplicatedToRedis() {
	var result models.VisualResult
	w := s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", &result)
	s.Equal(http.StatusOK, w.Code)
	s.False(result.CacheHit)

	// The remote write is detached from the request.
	s.Eventually(func() bool {
		val, err := s.redis.Get(kyotoKey)
		return err == nil && val == result.ImageURL
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *VisualFlowSuite) TestRemoteSeedPromotedToLocal() {
	s.Require().NoError(s.redis.Set(kyotoKey, "data:image/png;base64,c2VlZGVk"))

	var first models.VisualResult
	w := s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", &first)
	s.Equal(http.StatusOK, w.Code)

	s.True(first.CacheHit)
	s.Equal("remote", first.CacheTier)
	s.Equal("data:image/png;base64,c2VlZGVk", first.ImageURL)
	s.EqualValues(0, s.gemini.imageHits.Load())

	// The remote hit was written through and now serves locally.
	var second models.VisualResult
	s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", &second)
	s.True(second.CacheHit)
	s.Equal("local", second.CacheTier)
	s.EqualValues(0, s.gemini.imageHits.Load())
}

func (s *VisualFlowSuite) TestConsentDeniedSkipsLocalTierOnly() {
	w := s.doJSON(http.MethodPost, "/api/consent", `{"decision":"denied"}`, nil)
	s.Equal(http.StatusOK, w.Code)

	var first models.VisualResult
	s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", &first)
	s.False(first.CacheHit)

	// The detached share to Redis is not gated by local consent.
	s.Eventually(func() bool {
		_, err := s.redis.Get(kyotoKey)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	// With local persistence refused, the repeat request is served by the
	// remote tier instead of device storage.
	var second models.VisualResult
	s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", &second)
	s.True(second.CacheHit)
	s.Equal("remote", second.CacheTier)
	s.EqualValues(1, s.gemini.imageHits.Load())
}

func (s *VisualFlowSuite) TestUsageLedgerTracksGatedCalls() {
	s.doJSON(http.MethodGet, "/api/visual?city=Kyoto", "", nil)

	var report models.UsageReport
	w := s.doJSON(http.MethodGet, "/api/usage", "", &report)
	s.Equal(http.StatusOK, w.Code)

	// One visual request spends three gated calls: search, format, synthesis.
	s.Equal(3, report.DailyCount)
	s.Equal(3, report.WindowCount)
	s.Equal(1425, report.DailyCutoff)
	s.Equal(15, report.WindowLimit)
}

func (s *VisualFlowSuite) TestRateLimitSurfacesRetryAfter() {
	ctx := context.Background()
	noop := func(context.Context) error { return nil }
	for i := 0; i < 15; i++ {
		s.Require().NoError(s.gate.Admit(ctx, noop))
	}

	w := s.doJSON(http.MethodGet, "/api/weather?city=Kyoto", "", nil)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("60", w.Header().Get("Retry-After"))

	var resp models.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.NotEmpty(resp.Error)
}

func (s *VisualFlowSuite) TestQuotaStatePersistsAcrossGateInstances() {
	ctx := context.Background()
	s.Require().NoError(s.gate.Admit(ctx, func(context.Context) error { return nil }))

	// A second gate over the same store observes the spent call.
	report := s.gate.Snapshot(ctx)
	s.Equal(1, report.DailyCount)

	raw, found, err := s.store.Get(ctx, "atmolite_usage_stats")
	s.Require().NoError(err)
	s.Require().True(found)

	var stats models.UsageStats
	s.Require().NoError(json.Unmarshal([]byte(raw), &stats))
	s.Equal(1, stats.DailyCount)
	s.Len(stats.Timestamps, 1)
}

func (s *VisualFlowSuite) TestFailedGenerationIsNotRefunded() {
	s.gemini.server.Close()

	w := s.doJSON(http.MethodGet, "/api/weather?city=Kyoto", "", nil)
	s.Equal(http.StatusBadGateway, w.Code)

	report := s.gate.Snapshot(context.Background())
	s.Equal(1, report.DailyCount)
}

func (s *VisualFlowSuite) TestConsentRoundTrip() {
	w := s.doJSON(http.MethodGet, "/api/consent", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"decision":"unset"}`, w.Body.String())

	s.doJSON(http.MethodPost, "/api/consent", `{"decision":"granted"}`, nil)

	w = s.doJSON(http.MethodGet, "/api/consent", "", nil)
	s.JSONEq(`{"decision":"granted"}`, w.Body.String())
}
