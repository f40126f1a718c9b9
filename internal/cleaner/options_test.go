package cleaner

import (
	"image"
	"image/color"
	"testing"

	apperrors "go-rembg-clean/internal/errors"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Strength != 1.0 {
		t.Errorf("Expected default strength 1.0, got %g", opts.Strength)
	}
	if opts.Erode != 0 {
		t.Errorf("Expected default erode 0, got %d", opts.Erode)
	}
	if opts.Background != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("Expected default white background, got %+v", opts.Background)
	}
	if opts.AlphaLow != 0.05 || opts.AlphaHigh != 0.95 {
		t.Errorf("Expected default alpha band 0.05/0.95, got %g/%g", opts.AlphaLow, opts.AlphaHigh)
	}
}

func TestOptionsBuilders(t *testing.T) {
	opts := DefaultOptions().
		WithStrength(0.5).
		WithErode(2).
		WithAlphaBand(0.1, 0.9).
		WithSearchRadius(3).
		WithBackground(color.NRGBA{A: 255})

	if opts.Strength != 0.5 || opts.Erode != 2 || opts.SearchRadius != 3 {
		t.Errorf("Builder chain lost values: %+v", opts)
	}
	if opts.AlphaLow != 0.1 || opts.AlphaHigh != 0.9 {
		t.Errorf("Expected alpha band 0.1/0.9, got %g/%g", opts.AlphaLow, opts.AlphaHigh)
	}
	if opts.Background != (color.NRGBA{A: 255}) {
		t.Errorf("Expected black background, got %+v", opts.Background)
	}
}

func TestOptionsValidation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	tests := []struct {
		name string
		opts Options
	}{
		{"strength above 1", DefaultOptions().WithStrength(1.5)},
		{"negative strength", DefaultOptions().WithStrength(-0.1)},
		{"negative erode", DefaultOptions().WithErode(-1)},
		{"inverted alpha band", DefaultOptions().WithAlphaBand(0.9, 0.1)},
		{"alpha band above 1", DefaultOptions().WithAlphaBand(0.5, 1.5)},
		{"zero search radius", DefaultOptions().WithSearchRadius(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CleanWithOptions(img, tt.opts)
			if err == nil {
				t.Fatal("Expected validation error, got none")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}
