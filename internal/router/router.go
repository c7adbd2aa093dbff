package router

import (
	"net/http"

	"photostamp-api/internal/handlers"
)

// Setup configures and returns the HTTP router with all application routes.
func Setup(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", h.HandleHealth)

	// Geocode boundary
	mux.HandleFunc("/location", h.HandleLocation)

	// Photo stamping
	mux.HandleFunc("/photos", h.HandlePhotos)

	return mux
}
