package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"photostamp-api/internal/config"
	apperrors "photostamp-api/internal/errors"
	"photostamp-api/internal/models"

	"golang.org/x/time/rate"
)

// Earth's radius in metres, for great-circle distances.
const earthRadiusMetres = 6371000

// Acceptance thresholds for a nearby point-of-interest candidate.
const (
	poiSearchRadiusMetres = 500.0
	poiMaxDistanceMetres  = 100.0
	poiMinRatingCount     = 50
	poiMaxResults         = 3
	poiRequiredType       = "tourist_attraction"
)

// ErrNoUsableAddress marks a resolution that reached the provider but still
// produced no display tokens. Callers can map it to a not-found response.
var ErrNoUsableAddress = fmt.Errorf("%w: no usable address components", apperrors.ErrResolutionFailed)

// GeocodingService resolves a coordinate to a display place name by
// combining a nearby point-of-interest lookup with an administrative
// reverse-geocode, backed by a time-bounded location cache.
type GeocodingService struct {
	store       LocationStore
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	apiKey      string
	geocodeURL  string
	placesURL   string
	language    string
}

// Returns a fully configured resolver.
// It includes:
//   - an injectable cache store (in-memory or Redis)
//   - shared HTTP client
//   - outbound provider rate limiting
func NewGeocodingService(store LocationStore, cfg *config.Config) *GeocodingService {
	return &GeocodingService{
		store:       store,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.ProviderRPS), 1),
		apiKey:      cfg.GoogleAPIKey,
		geocodeURL:  cfg.GeocodeAPIURL,
		placesURL:   cfg.PlacesAPIURL,
		language:    cfg.Language,
	}
}

// Resolve performs a coordinate -> location lookup.
// The function:
//  1. checks the cache under the rounded-coordinate key
//  2. queries the nearby-places and reverse-geocode providers concurrently
//  3. composes, deduplicates and prioritizes the address parts
//  4. caches & returns the display string
//
// A reverse-geocode failure propagates immediately; the places query only
// ever upgrades the result and its failures are swallowed. No retries.
func (g *GeocodingService) Resolve(ctx context.Context, coords models.Coordinates) (string, error) {
	key := CacheKey(coords)
	if entry, ok := g.store.Get(ctx, key); ok {
		return entry.Location, nil
	}

	var (
		wg       sync.WaitGroup
		poiName  string
		parts    models.LocationParts
		partsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		poiName = g.fetchTouristAttraction(ctx, coords)
	}()
	go func() {
		defer wg.Done()
		parts, partsErr = g.fetchAddressParts(ctx, coords)
	}()
	wg.Wait()

	if partsErr != nil {
		return "", partsErr
	}

	location := ComposeLocation(parts, poiName)
	if location == "" {
		return "", ErrNoUsableAddress
	}

	g.store.Set(ctx, key, models.CacheEntry{
		Location:  location,
		Timestamp: time.Now().UnixMilli(),
	})

	return location, nil
}

// Queries the places provider for tourist attractions within 500m, ranked by
// distance, and returns the first candidate that is close enough, correctly
// typed and popular enough. Returns "" when there is no acceptable candidate
// or the query fails; this lookup never fails a resolution.
func (g *GeocodingService) fetchTouristAttraction(ctx context.Context, coords models.Coordinates) string {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return ""
	}

	payload := map[string]any{
		"includedTypes":  []string{poiRequiredType},
		"maxResultCount": poiMaxResults,
		"languageCode":   g.language,
		"rankPreference": "DISTANCE",
		"locationRestriction": map[string]any{
			"circle": map[string]any{
				"center": map[string]float64{
					"latitude":  coords.Lat,
					"longitude": coords.Lng,
				},
				"radius": poiSearchRadiusMetres,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.placesURL, bytes.NewReader(body))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.displayName,places.types,places.userRatingCount,places.location")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("[Geocoding] Places query failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var data models.PlacesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return ""
	}

	for _, place := range data.Places {
		distance := Haversine(coords, models.Coordinates{
			Lat: place.Location.Latitude,
			Lng: place.Location.Longitude,
		})
		if distance <= poiMaxDistanceMetres &&
			containsType(place.Types, poiRequiredType) &&
			place.UserRatingCount >= poiMinRatingCount {
			return place.DisplayName.Text
		}
	}
	return ""
}

// Resolves the coordinate to structured address components via the reverse
// geocoding provider.
func (g *GeocodingService) fetchAddressParts(ctx context.Context, coords models.Coordinates) (models.LocationParts, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return models.LocationParts{}, fmt.Errorf("%w: %v", apperrors.ErrResolutionFailed, err)
	}

	url := fmt.Sprintf("%s?latlng=%f,%f&key=%s&language=%s",
		g.geocodeURL, coords.Lat, coords.Lng, g.apiKey, g.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.LocationParts{}, fmt.Errorf("%w: %v", apperrors.ErrResolutionFailed, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return models.LocationParts{}, fmt.Errorf("%w: %v", apperrors.ErrResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.LocationParts{}, fmt.Errorf("%w: %s", apperrors.ErrResolutionFailed, providerErrorMessage(resp))
	}

	var data models.GeoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.LocationParts{}, fmt.Errorf("%w: %v", apperrors.ErrResolutionFailed, err)
	}

	if data.Status != "OK" || len(data.Results) == 0 {
		return models.LocationParts{}, fmt.Errorf("%w: geocoding failed: %s", apperrors.ErrResolutionFailed, data.Status)
	}

	components := data.Results[0].AddressComponents
	parts := models.LocationParts{
		Country:    findComponent(components, "country"),
		Prefecture: findComponent(components, "administrative_area_level_1"),
		City:       firstNonEmpty(findComponent(components, "locality"), findComponent(components, "administrative_area_level_2")),
	}

	// The most specific usable name, skipping anything that just repeats
	// the city or prefecture.
	priorities := []string{"point_of_interest", "establishment", "natural_feature", "park", "premise", "sublocality_level_1"}
	for _, p := range priorities {
		if name := findComponent(components, p); name != "" && name != parts.City && name != parts.Prefecture {
			parts.SpecificPlace = name
			break
		}
	}

	return parts, nil
}

// Extracts the provider's own error message from a failed response, falling
// back to the HTTP status when the body carries none.
func providerErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var payload struct {
			Error        string `json:"error"`
			ErrorMessage string `json:"error_message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			if payload.Error != "" {
				return payload.Error
			}
			if payload.ErrorMessage != "" {
				return payload.ErrorMessage
			}
		}
	}
	return fmt.Sprintf("geocoding provider returned status %d", resp.StatusCode)
}

// ComposeLocation builds the display string from the geocoded parts and an
// optional point-of-interest name. Inside Japan the prefecture replaces the
// country as prefix. Duplicate and empty parts collapse away, preserving
// first-occurrence order.
func ComposeLocation(parts models.LocationParts, poiName string) string {
	prefix := parts.Country
	if isJapan(parts.Country) && parts.Prefecture != "" {
		prefix = parts.Prefecture
	}

	specific := firstNonEmpty(poiName, parts.SpecificPlace)

	var (
		seen   = make(map[string]bool)
		tokens []string
	)
	for _, part := range []string{prefix, parts.City, specific} {
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		tokens = append(tokens, part)
	}

	return strings.Join(tokens, " ")
}

func isJapan(country string) bool {
	return country == "日本" || country == "Japan"
}

// Haversine returns the great-circle distance between two points in metres.
func Haversine(a, b models.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	phi1 := toRad(a.Lat)
	phi2 := toRad(b.Lat)
	dPhi := toRad(b.Lat - a.Lat)
	dLambda := toRad(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMetres * c
}

// Returns the long name of the first address component carrying the type.
func findComponent(components []models.GeoAddressComponent, wantType string) string {
	for _, c := range components {
		if containsType(c.Types, wantType) {
			return c.LongName
		}
	}
	return ""
}

func containsType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// Returns the first non-empty string in the list.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
