package models

// GeoAddressComponent is one component of a reverse-geocode result.
type GeoAddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// GeoResult is a single reverse-geocode match.
type GeoResult struct {
	AddressComponents []GeoAddressComponent `json:"address_components"`
	FormattedAddress  string                `json:"formatted_address"`
}

// GeoResponse models the subset of the geocoding API response that we care
// about (address components of the best match, plus the provider status).
type GeoResponse struct {
	Results []GeoResult `json:"results"`
	Status  string      `json:"status"`
}

// Place is one candidate from the nearby-places search.
type Place struct {
	DisplayName struct {
		Text         string `json:"text"`
		LanguageCode string `json:"languageCode,omitempty"`
	} `json:"displayName"`
	Types           []string `json:"types"`
	UserRatingCount int      `json:"userRatingCount"`
	Location        struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// PlacesResponse is the nearby-places search payload.
type PlacesResponse struct {
	Places []Place `json:"places"`
}
