package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atmolite.app/cache"
	"atmolite.app/config"
	"atmolite.app/models"
	apperrors "atmolite.app/pkg/errors"
	"atmolite.app/service"
	"atmolite.app/storage"
)

// Server represents the HTTP server and API handler
type Server struct {
	router        *gin.Engine
	config        *config.Config
	visualService service.VisualServiceInterface
	gate          service.QuotaGate
	consent       *cache.ConsentStore
	store         storage.KeyValueStore
}

// NewServer creates and configures a new HTTP server
func NewServer(
	cfg *config.Config,
	visualService service.VisualServiceInterface,
	gate service.QuotaGate,
	consent *cache.ConsentStore,
	store storage.KeyValueStore,
) *Server {
	router := gin.Default()

	server := &Server{
		router:        router,
		config:        cfg,
		visualService: visualService,
		gate:          gate,
		consent:       consent,
		store:         store,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/visual", s.getVisual)
		api.GET("/weather", s.getWeather)
		api.GET("/usage", s.getUsage)
		api.GET("/consent", s.getConsent)
		api.POST("/consent", s.setConsent)
		api.GET("/debug", s.debugEndpoint)
	}

	s.router.GET("/healthz", s.healthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) getVisual(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		s.handleError(c, apperrors.NewValidationError("city parameter is required"))
		return
	}

	result, err := s.visualService.GetCityVisual(c.Request.Context(), city)
	if err != nil {
		slog.Error("Visual request failed", "error", err, "city", city)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) getWeather(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		s.handleError(c, apperrors.NewValidationError("city parameter is required"))
		return
	}

	slog.Debug("Getting weather for city", "city", city)
	weather, err := s.visualService.GetWeather(c.Request.Context(), city)
	if err != nil {
		slog.Error("Weather request failed", "error", err, "city", city)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, weather)
}

func (s *Server) getUsage(c *gin.Context) {
	c.JSON(http.StatusOK, s.gate.Snapshot(c.Request.Context()))
}

func (s *Server) getConsent(c *gin.Context) {
	decision := s.consent.Get(c.Request.Context())
	if decision == cache.ConsentUnset {
		decision = "unset"
	}
	c.JSON(http.StatusOK, gin.H{"decision": decision})
}

func (s *Server) setConsent(c *gin.Context) {
	var req models.ConsentRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Error("Consent binding error", "error", err)
		s.handleError(c, apperrors.NewValidationError("decision must be 'granted' or 'denied'"))
		return
	}

	if err := s.consent.Set(c.Request.Context(), req.Decision); err != nil {
		slog.Error("Consent update failed", "error", err, "decision", req.Decision)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decision": req.Decision})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) debugEndpoint(c *gin.Context) {
	slog.Debug("Debug endpoint called")

	_, _, storeErr := s.store.Get(c.Request.Context(), "atmolite_storage_permission")

	response := gin.H{
		"storage": map[string]interface{}{
			"driver":    s.config.Storage.Driver,
			"connected": storeErr == nil,
		},
		"generation": map[string]interface{}{
			"credentialPresent": s.config.Gemini.APIKey != "",
			"searchModel":       s.config.Gemini.SearchModel,
			"imageModel":        s.config.Gemini.ImageModel,
		},
		"remoteCache": map[string]interface{}{
			"enabled":      s.config.RemoteCache.Enabled,
			"redisBacked":  s.config.RemoteCache.RedisAddr != "",
			"communityURL": s.config.RemoteCache.URL,
		},
		"usage": s.gate.Snapshot(c.Request.Context()),
	}

	c.JSON(http.StatusOK, response)
}

// handleError maps application error types onto HTTP statuses
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case apperrors.ErrorTypeQuotaDaily:
			statusCode = http.StatusTooManyRequests
			message = appErr.Message
		case apperrors.ErrorTypeQuotaRate:
			statusCode = http.StatusTooManyRequests
			message = appErr.Message
			// Upper bound: the window is clear once the oldest entry ages out.
			c.Header("Retry-After", fmt.Sprintf("%d", int(s.config.Quota.Window.Seconds())))
		case apperrors.ErrorTypeMissingCredential:
			statusCode = http.StatusServiceUnavailable
			message = appErr.Message
		case apperrors.ErrorTypeGenerationBlocked:
			statusCode = http.StatusUnprocessableEntity
			message = appErr.Message
		case apperrors.ErrorTypeMalformedResponse, apperrors.ErrorTypeNoImageProduced, apperrors.ErrorTypeGeneration:
			statusCode = http.StatusBadGateway
			message = appErr.Message
		case apperrors.ErrorTypeStorageUnavailable:
			statusCode = http.StatusServiceUnavailable
			message = "Local storage unavailable"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
