package errors

import "errors"

// Pipeline error taxonomy for type-safe error handling.
// These errors can be checked using errors.Is() instead of string comparison.
// Each one terminates only the task that produced it, never its siblings.
var (
	ErrMetadataMissing   = errors.New("no EXIF data found in image")
	ErrCoordinateMissing = errors.New("no GPS data found in image")
	ErrResolutionFailed  = errors.New("could not resolve location")
	ErrImageDecodeFailed = errors.New("could not decode image")
	ErrCanvasUnavailable = errors.New("could not acquire drawing surface")
	ErrInvalidInput      = errors.New("invalid input")
)
