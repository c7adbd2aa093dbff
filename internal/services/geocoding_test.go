package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"photostamp-api/internal/config"
	apperrors "photostamp-api/internal/errors"
	"photostamp-api/internal/models"
)

// Tokyo Tower vicinity, used throughout the resolver tests.
var tokyoTower = models.Coordinates{Lat: 35.6586, Lng: 139.7454}

func testGeocoderConfig(baseURL string) *config.Config {
	return &config.Config{
		GoogleAPIKey:  "test-key",
		GeocodeAPIURL: baseURL + "/geocode",
		PlacesAPIURL:  baseURL + "/places",
		Language:      "ja",
		ProviderRPS:   1000,
	}
}

// geoOK answers a reverse-geocode request with the given address components.
func geoOK(components []models.GeoAddressComponent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := models.GeoResponse{
			Status:  "OK",
			Results: []models.GeoResult{{AddressComponents: components}},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func tokyoComponents() []models.GeoAddressComponent {
	return []models.GeoAddressComponent{
		{LongName: "日本", Types: []string{"country", "political"}},
		{LongName: "東京都", Types: []string{"administrative_area_level_1", "political"}},
		{LongName: "港区", Types: []string{"locality", "political"}},
		{LongName: "芝公園", Types: []string{"sublocality_level_1", "political"}},
	}
}

// placesWith answers a nearby search with a single candidate.
func placesWith(name string, lat, lng float64, ratings int, types ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var place models.Place
		place.DisplayName.Text = name
		place.Types = types
		place.UserRatingCount = ratings
		place.Location.Latitude = lat
		place.Location.Longitude = lng
		json.NewEncoder(w).Encode(models.PlacesResponse{Places: []models.Place{place}})
	}
}

func placesEmpty(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(models.PlacesResponse{})
}

func newTestGeocoder(t *testing.T, store LocationStore, geocode, places http.HandlerFunc) *GeocodingService {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", geocode)
	mux.HandleFunc("/places", places)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewGeocodingService(store, testGeocoderConfig(server.URL))
}

func TestHaversine(t *testing.T) {
	a := models.Coordinates{Lat: 35.6586, Lng: 139.7454}
	b := models.Coordinates{Lat: 35.6595, Lng: 139.7432}

	if d := Haversine(a, a); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
	if ab, ba := Haversine(a, b), Haversine(b, a); math.Abs(ab-ba) > 1e-9 {
		t.Errorf("haversine must be symmetric: %v vs %v", ab, ba)
	}

	// One degree of latitude is ~111.2 km on the reference sphere.
	d := Haversine(models.Coordinates{}, models.Coordinates{Lat: 1})
	if math.Abs(d-111195) > 100 {
		t.Errorf("1° latitude = %v m, want ~111195", d)
	}
}

func TestComposeLocation(t *testing.T) {
	tests := []struct {
		name  string
		parts models.LocationParts
		poi   string
		want  string
	}{
		{
			name:  "prefecture replaces country inside Japan",
			parts: models.LocationParts{Country: "日本", Prefecture: "東京都", City: "港区", SpecificPlace: "芝公園"},
			want:  "東京都 港区 芝公園",
		},
		{
			name:  "country prefix outside Japan",
			parts: models.LocationParts{Country: "フランス", Prefecture: "イル＝ド＝フランス", City: "パリ", SpecificPlace: "エッフェル塔"},
			want:  "フランス パリ エッフェル塔",
		},
		{
			name:  "point of interest beats the geocoded specific place",
			parts: models.LocationParts{Country: "日本", Prefecture: "東京都", City: "港区", SpecificPlace: "芝公園"},
			poi:   "東京タワー",
			want:  "東京都 港区 東京タワー",
		},
		{
			name:  "duplicates collapse in first-occurrence order",
			parts: models.LocationParts{Country: "日本", Prefecture: "東京都", City: "東京都", SpecificPlace: "東京都"},
			want:  "東京都",
		},
		{
			name:  "empty parts are dropped",
			parts: models.LocationParts{Country: "日本", Prefecture: "東京都"},
			want:  "東京都",
		},
		{
			name:  "nothing usable",
			parts: models.LocationParts{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeLocation(tt.parts, tt.poi); got != tt.want {
				t.Errorf("ComposeLocation(%+v, %q) = %q, want %q", tt.parts, tt.poi, got, tt.want)
			}
		})
	}
}

func TestResolveCacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	counting := func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		geoOK(tokyoComponents())(w, r)
	}

	store := NewMemoryStore(24*time.Hour, time.Hour)
	g := newTestGeocoder(t, store, counting, placesEmpty)

	store.Set(context.Background(), CacheKey(tokyoTower), models.CacheEntry{
		Location:  "東京都 港区 東京タワー",
		Timestamp: time.Now().UnixMilli(),
	})

	got, err := g.Resolve(context.Background(), tokyoTower)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "東京都 港区 東京タワー" {
		t.Errorf("Resolve = %q", got)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("fresh cache hit must not reach the provider, saw %d calls", n)
	}
}

func TestResolveStaleCacheRefetches(t *testing.T) {
	store := NewMemoryStore(24*time.Hour, time.Hour)
	g := newTestGeocoder(t, store, geoOK(tokyoComponents()), placesEmpty)

	store.Set(context.Background(), CacheKey(tokyoTower), models.CacheEntry{
		Location:  "stale value",
		Timestamp: time.Now().Add(-25 * time.Hour).UnixMilli(),
	})

	got, err := g.Resolve(context.Background(), tokyoTower)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "東京都 港区 芝公園" {
		t.Errorf("Resolve = %q, want fresh provider result", got)
	}
}

func TestResolvePrefersAcceptedPOI(t *testing.T) {
	// Candidate ~80m north of the origin, popular and correctly typed.
	store := NewMemoryStore(24*time.Hour, time.Hour)
	g := newTestGeocoder(t, store,
		geoOK(tokyoComponents()),
		placesWith("東京タワー", tokyoTower.Lat+0.00072, tokyoTower.Lng, 200, "tourist_attraction", "point_of_interest"),
	)

	got, err := g.Resolve(context.Background(), tokyoTower)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "東京都 港区 東京タワー" {
		t.Errorf("Resolve = %q, want the attraction name over the locality", got)
	}

	// The composed result lands in the cache for subsequent lookups.
	entry, ok := store.Get(context.Background(), CacheKey(tokyoTower))
	if !ok || entry.Location != got {
		t.Errorf("cache entry = %+v, want %q", entry, got)
	}
}

func TestResolveRejectsUnqualifiedPOI(t *testing.T) {
	tests := []struct {
		name   string
		places http.HandlerFunc
	}{
		{
			name: "too far away",
			// ~200m offset exceeds the 100m acceptance radius.
			places: placesWith("東京タワー", tokyoTower.Lat+0.0018, tokyoTower.Lng, 200, "tourist_attraction"),
		},
		{
			name:   "not popular enough",
			places: placesWith("東京タワー", tokyoTower.Lat+0.00072, tokyoTower.Lng, 10, "tourist_attraction"),
		},
		{
			name:   "wrong type",
			places: placesWith("東京タワー", tokyoTower.Lat+0.00072, tokyoTower.Lng, 200, "restaurant"),
		},
		{
			name: "places provider down",
			places: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(24*time.Hour, time.Hour)
			g := newTestGeocoder(t, store, geoOK(tokyoComponents()), tt.places)

			got, err := g.Resolve(context.Background(), tokyoTower)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != "東京都 港区 芝公園" {
				t.Errorf("Resolve = %q, want fallback to the geocoded specific place", got)
			}
		})
	}
}

func TestResolveProviderErrorVerbatim(t *testing.T) {
	geocode := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "server exploded"})
	}

	store := NewMemoryStore(24*time.Hour, time.Hour)
	g := newTestGeocoder(t, store, geocode, placesEmpty)

	_, err := g.Resolve(context.Background(), tokyoTower)
	if !errors.Is(err, apperrors.ErrResolutionFailed) {
		t.Fatalf("Resolve error = %v, want ErrResolutionFailed", err)
	}
	if !strings.Contains(err.Error(), "server exploded") {
		t.Errorf("error %q should carry the provider message verbatim", err)
	}
}

func TestResolveNonOKStatus(t *testing.T) {
	geocode := func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.GeoResponse{Status: "ZERO_RESULTS"})
	}

	store := NewMemoryStore(24*time.Hour, time.Hour)
	g := newTestGeocoder(t, store, geocode, placesEmpty)

	_, err := g.Resolve(context.Background(), tokyoTower)
	if !errors.Is(err, apperrors.ErrResolutionFailed) {
		t.Fatalf("Resolve error = %v, want ErrResolutionFailed", err)
	}
	if !strings.Contains(err.Error(), "ZERO_RESULTS") {
		t.Errorf("error %q should name the provider status", err)
	}
}

func TestResolveNoUsableAddress(t *testing.T) {
	store := NewMemoryStore(24*time.Hour, time.Hour)
	g := newTestGeocoder(t, store, geoOK(nil), placesEmpty)

	_, err := g.Resolve(context.Background(), tokyoTower)
	if !errors.Is(err, ErrNoUsableAddress) {
		t.Fatalf("Resolve error = %v, want ErrNoUsableAddress", err)
	}
	if !errors.Is(err, apperrors.ErrResolutionFailed) {
		t.Error("ErrNoUsableAddress must wrap ErrResolutionFailed")
	}
}

func TestResolveSpecificPlaceSkipsCityEcho(t *testing.T) {
	// A point_of_interest that merely repeats the city is skipped in favor
	// of the next priority component.
	components := []models.GeoAddressComponent{
		{LongName: "日本", Types: []string{"country"}},
		{LongName: "東京都", Types: []string{"administrative_area_level_1"}},
		{LongName: "港区", Types: []string{"locality"}},
		{LongName: "港区", Types: []string{"point_of_interest"}},
		{LongName: "増上寺", Types: []string{"establishment"}},
	}

	store := NewMemoryStore(24*time.Hour, time.Hour)
	g := newTestGeocoder(t, store, geoOK(components), placesEmpty)

	got, err := g.Resolve(context.Background(), tokyoTower)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "東京都 港区 増上寺" {
		t.Errorf("Resolve = %q", got)
	}
}
