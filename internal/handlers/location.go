package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"photostamp-api/internal/models"
	"photostamp-api/internal/services"
)

// HandleLocation serves the geocode boundary: GET /location?lat={f}&lng={f}
// answers {"location": string} on success and {"error": string} otherwise.
func (h *Handler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil || lat == 0 || lng == 0 {
		respondError(w, http.StatusBadRequest, "invalid latitude or longitude")
		return
	}

	location, err := h.geocoder.Resolve(r.Context(), models.Coordinates{Lat: lat, Lng: lng})
	if err != nil {
		log.Printf("[Location] Resolution failed for (%f, %f): %v", lat, lng, err)
		if errors.Is(err, services.ErrNoUsableAddress) {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	log.Printf("[Location] Resolved (%f, %f) -> %s in %v", lat, lng, location, time.Since(start))
	respondJSON(w, http.StatusOK, map[string]string{"location": location})
}
