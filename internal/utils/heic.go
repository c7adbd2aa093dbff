package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/adrium/goheif"
)

// Checks if the MIME type indicates a HEIC or HEIF image format.
func IsHeifLike(mimeType string) bool {
	t := strings.ToLower(mimeType)
	return strings.Contains(t, "heic") || strings.Contains(t, "heif")
}

// Converts HEIC/HEIF image data to JPEG format. The source EXIF block is
// carried over into the output so the GPS, date and orientation tags survive
// the re-encode; orientation itself is applied later by the stamp renderer.
func ConvertHeicToJpeg(input []byte) ([]byte, error) {
	img, err := goheif.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("failed to decode HEIC: %w", err)
	}

	exifPayload, err := goheif.ExtractExif(bytes.NewReader(input))
	if err != nil {
		log.Printf("[HEIC] No EXIF block to carry over: %v", err)
		exifPayload = nil
	}

	return encodeJpegWithExif(img, exifPayload)
}

// Encodes the image as JPEG with the given APP1 payload ("Exif\0\0" plus
// the TIFF block) spliced in right after the SOI marker. A nil payload
// yields a plain JPEG.
func encodeJpegWithExif(img image.Image, exifPayload []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := newJpegExifWriter(&buf, exifPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to write JPEG headers: %w", err)
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	return buf.Bytes(), nil
}

// Drops the first bytesToSkip bytes of whatever is written through it.
// Used to swallow the encoder's own SOI marker, which the exif writer has
// already emitted ahead of the APP1 segment.
type writerSkipper struct {
	w           io.Writer
	bytesToSkip int
}

func (w *writerSkipper) Write(data []byte) (int, error) {
	if w.bytesToSkip <= 0 {
		return w.w.Write(data)
	}

	if len(data) < w.bytesToSkip {
		w.bytesToSkip -= len(data)
		return len(data), nil
	}

	if _, err := w.w.Write(data[w.bytesToSkip:]); err != nil {
		return 0, err
	}
	n := len(data)
	w.bytesToSkip = 0
	return n, nil
}

// Writes the SOI marker and an APP1 segment holding the EXIF payload, then
// returns a writer that strips the duplicate SOI the JPEG encoder emits.
func newJpegExifWriter(w io.Writer, exifPayload []byte) (io.Writer, error) {
	if _, err := w.Write([]byte{0xFF, 0xD8}); err != nil {
		return nil, err
	}

	if exifPayload != nil {
		markerLen := 2 + len(exifPayload)
		marker := []byte{0xFF, 0xE1, uint8(markerLen >> 8), uint8(markerLen & 0xFF)}
		if _, err := w.Write(marker); err != nil {
			return nil, err
		}
		if _, err := w.Write(exifPayload); err != nil {
			return nil, err
		}
	}

	return &writerSkipper{w: w, bytesToSkip: 2}, nil
}

// ConvertIfHeic converts HEIC input to JPEG at the input boundary, renaming
// the file to .jpg. Non-HEIC input passes through untouched, as does HEIC
// input that fails conversion.
func ConvertIfHeic(name, mime string, data []byte) (string, string, []byte) {
	if !IsHeifLike(mime) {
		return name, mime, data
	}

	log.Printf("Converting HEIC to JPEG: %s", name)
	converted, err := ConvertHeicToJpeg(data)
	if err != nil {
		log.Printf("HEIC conversion failed for %s: %v", name, err)
		return name, mime, data
	}

	ext := filepath.Ext(name)
	if ext != "" {
		name = strings.TrimSuffix(name, ext) + ".jpg"
	}

	return name, "image/jpeg", converted
}
