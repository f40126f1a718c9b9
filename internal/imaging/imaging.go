// Package imaging holds the decode/encode/resize plumbing shared by the
// batch runner and the HTTP handler.
package imaging

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	apperrors "go-rembg-clean/internal/errors"
)

// Decode decodes encoded image bytes
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewInvalidImageError("failed to decode image bytes", err)
	}
	return img, nil
}

// EncodePNG serializes img as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FitWithin downscales img so its longest edge is at most maxSize pixels,
// preserving aspect ratio. Images already within the limit are returned
// unchanged; it never upscales.
func FitWithin(img image.Image, maxSize int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

// ToNRGBA converts img into an origin-anchored NRGBA buffer
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
