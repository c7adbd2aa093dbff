package server

import (
	"fmt"
	"log"
	"net/http"

	"golang.org/x/time/rate"

	"photostamp-api/internal/config"
	"photostamp-api/internal/handlers"
	"photostamp-api/internal/middleware"
	"photostamp-api/internal/router"
	"photostamp-api/internal/services"
)

// Services holds all initialized services for the application.
type Services struct {
	Store    services.LocationStore
	Geocoder *services.GeocodingService
	Stamper  *services.StampService
	Pipeline *services.PipelineService
}

// InitServices initializes all application services based on configuration.
// Returns the initialized services or an error if initialization fails.
func InitServices(cfg *config.Config) (*Services, error) {
	// The in-memory store is the default; Redis keeps the location cache
	// warm across restarts when configured. Losing either only costs
	// provider round trips.
	var store services.LocationStore
	if cfg.RedisAddr != "" {
		log.Printf("Using Redis location cache at %s", cfg.RedisAddr)
		store = services.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
	} else {
		store = services.NewMemoryStore(cfg.CacheTTL, cfg.CacheCleanupInterval)
	}

	geocoder := services.NewGeocodingService(store, cfg)

	stamper, err := services.NewStampService(cfg.StampFontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stamp renderer: %w", err)
	}

	pipeline := services.NewPipelineService(geocoder, stamper, cfg.WorkerCount)

	return &Services{
		Store:    store,
		Geocoder: geocoder,
		Stamper:  stamper,
		Pipeline: pipeline,
	}, nil
}

// CreateHandler creates an HTTP handler with all middleware applied.
func CreateHandler(svcs *Services, cfg *config.Config) http.Handler {
	h := handlers.New(svcs.Pipeline, svcs.Geocoder, cfg.MaxUploadSize)

	mux := router.Setup(h)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	wrapped := limiter.Limit(mux)
	wrapped = middleware.RequestID(wrapped)
	wrapped = middleware.Logger(wrapped)
	wrapped = middleware.CORS(wrapped, cfg.AllowedOrigins)

	return wrapped
}
