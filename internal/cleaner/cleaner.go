// Package cleaner repairs the cut-out edge of an RGBA image whose alpha
// channel was produced by a background removal model. Semi-transparent border
// pixels carry a visible ring of the original background color; the cleaner
// rewrites their color and alpha so the subject composites cleanly.
package cleaner

import (
	"fmt"
	"image"
	"image/draw"

	apperrors "go-rembg-clean/internal/errors"
)

// Clean runs a cleaning pass with the default white-background options.
// strength is the correction dial in [0,1], erode the alpha erosion radius
// in pixels. The input image is never modified.
func Clean(img image.Image, strength float64, erode int) (*image.NRGBA, error) {
	return CleanWithOptions(img, DefaultOptions().WithStrength(strength).WithErode(erode))
}

// CleanWithOptions runs a cleaning pass with explicit options.
//
// The pass has four stages: pixels are classified by alpha into transparent,
// border and opaque; the opaque region is shrunk by up to opts.Erode pixels;
// remaining border pixels have their true foreground color recovered from the
// alpha blend model observed = alpha*fg + (1-alpha)*background; and the final
// output interpolates between original and corrected pixels weighted by
// opts.Strength and a per-pixel edge mask. Pixels away from the border are
// returned byte for byte, as is the whole image when opts.Strength is zero.
func CleanWithOptions(img image.Image, opts Options) (*image.NRGBA, error) {
	if img == nil {
		return nil, apperrors.NewInvalidImageError("nil image", nil)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, apperrors.NewInvalidImageError(fmt.Sprintf("empty image dimensions %dx%d", w, h), nil)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	src := cloneNRGBA(img)

	alpha := make([]float64, w*h)
	for i := range alpha {
		alpha[i] = float64(src.Pix[i*4+3]) / 255.0
	}

	mask := edgeMask(alpha, opts)

	// Micro-erosion: a grayscale min filter over the alpha channel, applied
	// only where the window reaches below the opaque threshold so the subject
	// interior keeps its exact alpha values.
	eroded := alpha
	if opts.Erode > 0 {
		eroded = erodeAlpha(alpha, w, h, opts.Erode, opts.AlphaHigh)
		for i := range eroded {
			if eroded[i] != alpha[i] {
				mask[i] = 1
			}
		}
	}

	bgR := float64(opts.Background.R) / 255.0
	bgG := float64(opts.Background.G) / 255.0
	bgB := float64(opts.Background.B) / 255.0

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			o := i * 4

			m := opts.Strength * mask[i]
			if m == 0 {
				copy(out.Pix[o:o+4], src.Pix[o:o+4])
				continue
			}

			r := float64(src.Pix[o]) / 255.0
			g := float64(src.Pix[o+1]) / 255.0
			b := float64(src.Pix[o+2]) / 255.0
			a := alpha[i]

			// Decontaminate border pixels that survived erosion and have at
			// least one opaque neighbor to vouch for the foreground. Without
			// such a neighbor the pixel is left as observed rather than
			// inventing a color.
			cr, cg, cb := r, g, b
			if eroded[i] > opts.AlphaLow && eroded[i] < opts.AlphaHigh &&
				hasOpaqueNeighbor(eroded, w, h, x, y, opts.SearchRadius, opts.AlphaHigh) {
				cr = unmix(r, a, bgR)
				cg = unmix(g, a, bgG)
				cb = unmix(b, a, bgB)
			}

			out.Pix[o] = quantize((1-m)*r + m*cr)
			out.Pix[o+1] = quantize((1-m)*g + m*cg)
			out.Pix[o+2] = quantize((1-m)*b + m*cb)
			out.Pix[o+3] = quantize((1-m)*a + m*eroded[i])
		}
	}
	return out, nil
}

// maskFeather is the fraction of the border band, at each end, over which
// the correction weight ramps between 0 and 1.
const maskFeather = 0.05

// edgeMask builds the per-pixel correction weight. Border pixels get the full
// weight except for a short ramp to zero at each classification threshold, so
// the correction does not step discontinuously where the band meets the
// transparent and opaque regions; pixels outside the band get zero.
func edgeMask(alpha []float64, opts Options) []float64 {
	mask := make([]float64, len(alpha))
	span := opts.AlphaHigh - opts.AlphaLow
	for i, a := range alpha {
		if a > opts.AlphaLow && a < opts.AlphaHigh {
			t := (a - opts.AlphaLow) / span
			if d := min(t, 1-t); d < maskFeather {
				mask[i] = d / maskFeather
			} else {
				mask[i] = 1
			}
		}
	}
	return mask
}

// erodeAlpha shrinks the opaque region by up to radius pixels. A pixel takes
// the minimum alpha of its (2r+1)x(2r+1) neighborhood whenever that minimum
// is below the opaque threshold; otherwise it is left untouched. Larger radii
// scan supersets of smaller ones, so erosion is monotonic in the radius.
func erodeAlpha(alpha []float64, w, h, radius int, opaque float64) []float64 {
	eroded := make([]float64, len(alpha))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lo := alpha[y*w+x]
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					if v := alpha[yy*w+xx]; v < lo {
						lo = v
					}
				}
			}
			if lo < opaque {
				eroded[y*w+x] = lo
			} else {
				eroded[y*w+x] = alpha[y*w+x]
			}
		}
	}
	return eroded
}

func hasOpaqueNeighbor(alpha []float64, w, h, x, y, radius int, opaque float64) bool {
	for dy := -radius; dy <= radius; dy++ {
		yy := y + dy
		if yy < 0 || yy >= h {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			xx := x + dx
			if xx < 0 || xx >= w {
				continue
			}
			if alpha[yy*w+xx] >= opaque {
				return true
			}
		}
	}
	return false
}

// unmix recovers the foreground channel value from the observed blend
// observed = alpha*fg + (1-alpha)*bg, clamped to the valid range.
func unmix(observed, alpha, bg float64) float64 {
	safe := alpha
	if safe < 1e-6 {
		safe = 1e-6
	}
	fg := (observed - (1-alpha)*bg) / safe
	if fg < 0 {
		return 0
	}
	if fg > 1 {
		return 1
	}
	return fg
}

func quantize(v float64) uint8 {
	v = v*255.0 + 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// cloneNRGBA copies img into a fresh origin-anchored NRGBA buffer. Always
// copies, even for NRGBA input, so callers keep exclusive ownership.
func cloneNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
