package utils

import (
	"bytes"
	"fmt"
	"time"

	apperrors "photostamp-api/internal/errors"
	"photostamp-api/internal/models"

	"github.com/rwcarlsen/goexif/exif"
)

// DateUnknown is stamped in place of a capture date that is absent or
// cannot be parsed. An unreadable date never fails the whole extraction.
const DateUnknown = "date unknown"

// ExtractData reads GPS coordinates, capture date and orientation from a
// photo's EXIF directory. It is a pure function over the byte buffer.
// It fails only when the image carries no parseable tag directory at all;
// individually missing tags degrade to partial results instead.
func ExtractData(imageData []byte) (models.CaptureMetadata, error) {
	x, err := exif.Decode(bytes.NewReader(imageData))
	if err != nil {
		return models.CaptureMetadata{}, fmt.Errorf("%w: %v", apperrors.ErrMetadataMissing, err)
	}

	meta := models.CaptureMetadata{
		CaptureDate: DateUnknown,
		Orientation: 1,
	}

	if coords, ok := extractCoordinates(x); ok {
		meta.Coordinates = &coords
	}

	if dateTag, err := x.Get(exif.DateTimeOriginal); err == nil {
		if raw, err := dateTag.StringVal(); err == nil {
			meta.CaptureDate = FormatCaptureDate(raw)
		}
	}

	if orientTag, err := x.Get(exif.Orientation); err == nil {
		if o, err := orientTag.Int(0); err == nil && o >= 1 && o <= 8 {
			meta.Orientation = o
		}
	}

	return meta, nil
}

// Reads the four GPS tags and converts them to decimal degrees.
// All four tags must be present for a coordinate to exist.
func extractCoordinates(x *exif.Exif) (models.Coordinates, bool) {
	latDMS, ok := ratTagValues(x, exif.GPSLatitude)
	if !ok {
		return models.Coordinates{}, false
	}
	lngDMS, ok := ratTagValues(x, exif.GPSLongitude)
	if !ok {
		return models.Coordinates{}, false
	}
	latRef, ok := stringTagValue(x, exif.GPSLatitudeRef)
	if !ok {
		return models.Coordinates{}, false
	}
	lngRef, ok := stringTagValue(x, exif.GPSLongitudeRef)
	if !ok {
		return models.Coordinates{}, false
	}

	return models.Coordinates{
		Lat: DMSToDecimal(latDMS, latRef),
		Lng: DMSToDecimal(lngDMS, lngRef),
	}, true
}

// DMSToDecimal converts a degrees/minutes/seconds triple plus hemisphere
// reference to decimal degrees. South and West negate the value. A malformed
// (non-3-element) triple yields 0 rather than an error.
func DMSToDecimal(dms []float64, ref string) float64 {
	if len(dms) != 3 {
		return 0
	}
	dd := dms[0] + dms[1]/60 + dms[2]/3600
	if ref == "S" || ref == "W" {
		dd = -dd
	}
	return dd
}

// Reads a rational-array tag as floats.
func ratTagValues(x *exif.Exif, name exif.FieldName) ([]float64, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return nil, false
	}

	values := make([]float64, 0, int(tag.Count))
	for i := 0; i < int(tag.Count); i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return nil, false
		}
		values = append(values, float64(num)/float64(den))
	}
	return values, true
}

func stringTagValue(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	return s, true
}

// FormatCaptureDate normalizes an EXIF date bytestring ("2006:01:02 15:04:05"
// or close variants) into a "2006/01/02" display date. Unparsable input
// degrades to the date-unknown marker.
func FormatCaptureDate(raw string) string {
	formats := []string{
		"2006:01:02 15:04:05", // EXIF format
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.Format("2006/01/02")
		}
	}
	return DateUnknown
}
