package models

// Coordinates is a geographic point in decimal degrees, derived once from
// EXIF DMS values and immutable after extraction.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CaptureMetadata is the typed, partial result of reading a photo's EXIF
// directory. A nil Coordinates means the photo carried no GPS tags.
type CaptureMetadata struct {
	Coordinates *Coordinates
	CaptureDate string // "YYYY/MM/DD" or the date-unknown marker
	Orientation int    // EXIF orientation 1-8, default 1
}

// CacheEntry is one cached location lookup. It is JSON-serializable so the
// same shape works for both the in-memory and the Redis-backed store.
type CacheEntry struct {
	Location  string `json:"location"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds at write time
}

// LocationParts is the decomposed reverse-geocode result. Used only inside
// the resolver, never persisted.
type LocationParts struct {
	Country       string
	Prefecture    string
	City          string
	SpecificPlace string
}

// StampedImage is the final raster output plus the exact text burned into it.
// Immutable once produced; ownership transfers to the requesting task.
type StampedImage struct {
	Data []byte
	Text string
}

// PhotoTask is one user-submitted file moving through the pipeline.
// It is mutated only by the pipeline run driving it.
type PhotoTask struct {
	FileName          string
	ContentType       string
	Data              []byte
	Status            Status
	ErrorMessage      string
	Result            *StampedImage
	SuggestedFilename string
	Location          string
}
