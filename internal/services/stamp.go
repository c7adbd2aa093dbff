package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"

	apperrors "photostamp-api/internal/errors"
	"photostamp-api/internal/models"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Stamp text is solid orange over a black outline so it stays legible over
// arbitrary backgrounds. No drop shadow.
var stampFill = color.NRGBA{R: 0xFF, G: 0x8C, B: 0x00, A: 0xFF}

const (
	stampMinFontSize  = 10 // hard floor for the shrink-to-fit loop
	stampBaseFontSize = 12 // floor for the initial size before fitting
	stampJPEGQuality  = 90
)

// EXIF orientation -> pixel transform. Codes 5-8 imply a 90°-rotated
// storage, so their transforms swap output width and height.
var orientationTransforms = map[int]func(image.Image) *image.NRGBA{
	1: imaging.Clone,
	2: imaging.FlipH,
	3: imaging.Rotate180,
	4: imaging.FlipV,
	5: imaging.Transpose,
	6: imaging.Rotate270,
	7: imaging.Transverse,
	8: imaging.Rotate90,
}

// StampService burns a place/date caption into the bottom-right corner of a
// photo, auto-sized to the canvas and laid out in display orientation.
type StampService struct {
	font *opentype.Font
}

// NewStampService loads the stamp typeface. With an empty path the bundled
// bold face is used; a TTF path may be supplied to cover other scripts.
func NewStampService(fontPath string) (*StampService, error) {
	data := gobold.TTF
	if fontPath != "" {
		custom, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read stamp font %s: %w", fontPath, err)
		}
		data = custom
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stamp font: %w", err)
	}

	return &StampService{font: f}, nil
}

// Render decodes the image, lays its pixels out per the EXIF orientation and
// stamps the text into the bottom-right corner. The output is always JPEG.
func (s *StampService) Render(imageData []byte, orientation int, text string) (*models.StampedImage, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrImageDecodeFailed, err)
	}

	transform, ok := orientationTransforms[orientation]
	if !ok {
		transform = orientationTransforms[1]
	}
	canvas := transform(src)

	if err := s.drawText(canvas, text); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: stampJPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCanvasUnavailable, err)
	}

	return &models.StampedImage{Data: buf.Bytes(), Text: text}, nil
}

// Draws the caption right- and bottom-aligned, shrinking the face until the
// text fits inside the horizontal padding or the size floor is reached.
func (s *StampService) drawText(canvas *image.NRGBA, text string) error {
	bounds := canvas.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	fontSize, face, textWidth, err := s.fitFontSize(text, width, height)
	if err != nil {
		return err
	}
	defer face.Close()

	padding := int(float64(fontSize) * 0.8)
	outline := fontSize / 12
	if outline < 1 {
		outline = 1
	}

	descent := face.Metrics().Descent.Ceil()
	x := width - padding - textWidth
	y := height - padding - descent

	drawer := font.Drawer{Dst: canvas, Face: face}

	// Outline stroke first, then the fill on top.
	drawer.Src = image.NewUniform(color.Black)
	for dx := -outline; dx <= outline; dx++ {
		for dy := -outline; dy <= outline; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawer.Dot = fixed.P(x+dx, y+dy)
			drawer.DrawString(text)
		}
	}

	drawer.Src = image.NewUniform(stampFill)
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)

	return nil
}

// FitStampFontSize computes the final caption size for a canvas: the base
// size is one twenty-eighth of the governing dimension with a 12px floor,
// then shrinks in unit steps while the rendered width overflows the padded
// canvas, never going below the 10px floor.
func FitStampFontSize(measure func(size int) int, width, height int) int {
	base := height / 28
	if height > width {
		base = width / 28
	}
	fontSize := base
	if fontSize < stampBaseFontSize {
		fontSize = stampBaseFontSize
	}

	for fontSize > stampMinFontSize {
		padding := int(float64(fontSize) * 0.8)
		if measure(fontSize) <= width-2*padding {
			break
		}
		fontSize--
	}
	return fontSize
}

// Builds the sized face for the fitted caption and returns the rendered
// text width at that size.
func (s *StampService) fitFontSize(text string, width, height int) (int, font.Face, int, error) {
	var faceErr error

	measure := func(size int) int {
		f, err := s.newFace(size)
		if err != nil {
			faceErr = err
			return 0
		}
		defer f.Close()
		return font.MeasureString(f, text).Ceil()
	}

	fontSize := FitStampFontSize(measure, width, height)
	if faceErr != nil {
		return 0, nil, 0, fmt.Errorf("%w: %v", apperrors.ErrCanvasUnavailable, faceErr)
	}

	face, err := s.newFace(fontSize)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("%w: %v", apperrors.ErrCanvasUnavailable, err)
	}
	return fontSize, face, font.MeasureString(face, text).Ceil(), nil
}

func (s *StampService) newFace(size int) (font.Face, error) {
	return opentype.NewFace(s.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
