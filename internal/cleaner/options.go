package cleaner

import (
	"fmt"
	"image/color"

	apperrors "go-rembg-clean/internal/errors"
)

// Options provides flexible configuration for a cleaning pass
type Options struct {
	// Strength scales how much of the computed correction is applied, 0..1.
	// Zero disables the pass entirely.
	Strength float64

	// Erode shrinks the opaque region by up to this many pixels before any
	// color correction happens.
	Erode int

	// Background is the compositing color assumed to have bled into the
	// semi-transparent border pixels.
	Background color.NRGBA

	// AlphaLow and AlphaHigh split pixels into fully transparent, border and
	// fully opaque classes (normalized alpha, 0..1).
	AlphaLow  float64
	AlphaHigh float64

	// SearchRadius is the window, in pixels, scanned for a fully opaque
	// neighbor before a border pixel is decontaminated.
	SearchRadius int
}

// DefaultOptions returns the options used by the CLI defaults: full-strength
// cleaning against a white background, no erosion
func DefaultOptions() Options {
	return Options{
		Strength:     1.0,
		Erode:        0,
		Background:   color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		AlphaLow:     0.05,
		AlphaHigh:    0.95,
		SearchRadius: 2,
	}
}

// WithStrength returns options with the correction strength replaced
func (opts Options) WithStrength(strength float64) Options {
	opts.Strength = strength
	return opts
}

// WithErode returns options with the erosion radius replaced
func (opts Options) WithErode(erode int) Options {
	opts.Erode = erode
	return opts
}

// WithBackground returns options targeting a different compositing color
func (opts Options) WithBackground(bg color.NRGBA) Options {
	opts.Background = bg
	return opts
}

// WithAlphaBand returns options with custom classification thresholds
func (opts Options) WithAlphaBand(low, high float64) Options {
	opts.AlphaLow = low
	opts.AlphaHigh = high
	return opts
}

// WithSearchRadius returns options with a custom neighbor search window
func (opts Options) WithSearchRadius(radius int) Options {
	opts.SearchRadius = radius
	return opts
}

func (opts Options) validate() error {
	if opts.Strength < 0 || opts.Strength > 1 {
		return apperrors.NewValidationError(fmt.Sprintf("strength must be in [0,1], got %g", opts.Strength), nil)
	}
	if opts.Erode < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("erode must be >= 0, got %d", opts.Erode), nil)
	}
	if opts.AlphaLow < 0 || opts.AlphaHigh > 1 || opts.AlphaLow >= opts.AlphaHigh {
		return apperrors.NewValidationError(
			fmt.Sprintf("alpha band must satisfy 0 <= low < high <= 1, got %g/%g", opts.AlphaLow, opts.AlphaHigh), nil)
	}
	if opts.SearchRadius < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("search radius must be >= 1, got %d", opts.SearchRadius), nil)
	}
	return nil
}
