// Package raster brings silhouette masks of arbitrary size onto the common
// N×N lattice the voxel carver works on.
package raster

import (
	"math"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

// Method selects how source cells are sampled.
type Method int

const (
	// Nearest takes the source cell under each target cell's centre.
	Nearest Method = iota

	// Area marks a target cell when at least half of the source area it
	// covers is object.
	Area
)

// Validate checks that mask is usable as a rasterizer input.
func Validate(mask *models.Mask) error {
	if mask == nil {
		return reconerr.New(reconerr.InvalidInput, "mask is nil")
	}
	if mask.Width <= 0 || mask.Height <= 0 {
		return reconerr.New(reconerr.InvalidInput, "mask has non-positive dimension %dx%d", mask.Width, mask.Height)
	}
	if len(mask.Data) != mask.Width*mask.Height {
		return reconerr.New(reconerr.InvalidInput, "mask data has %d cells, want %d", len(mask.Data), mask.Width*mask.Height)
	}
	return nil
}

// Rasterize resamples mask to n×n by nearest neighbour.
func Rasterize(mask *models.Mask, n int) (*models.Mask, error) {
	return Resample(mask, n, Nearest)
}

// Resample resamples mask to n×n with the given method.
func Resample(mask *models.Mask, n int, method Method) (*models.Mask, error) {
	if err := Validate(mask); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, reconerr.New(reconerr.InvalidInput, "resolution must be positive, got %d", n)
	}

	switch method {
	case Nearest:
		return resampleNearest(mask, n), nil
	case Area:
		return resampleArea(mask, n), nil
	}
	return nil, reconerr.New(reconerr.InvalidInput, "unknown resampling method %d", int(method))
}

func resampleNearest(mask *models.Mask, n int) *models.Mask {
	out := models.NewMask(n, n)
	cols := make([]int, n)
	for c := range cols {
		cols[c] = nearestSource(c, n, mask.Width)
	}
	for r := 0; r < n; r++ {
		sr := nearestSource(r, n, mask.Height)
		for c, sc := range cols {
			out.Set(r, c, mask.At(sr, sc))
		}
	}
	return out
}

// nearestSource maps target index i of n onto a source axis of the given
// size, sampling at the target cell centre.
func nearestSource(i, n, size int) int {
	s := (2*i + 1) * size / (2 * n)
	if s >= size {
		s = size - 1
	}
	return s
}

func resampleArea(mask *models.Mask, n int) *models.Mask {
	out := models.NewMask(n, n)
	sy := float64(mask.Height) / float64(n)
	sx := float64(mask.Width) / float64(n)
	cellArea := sx * sy

	for r := 0; r < n; r++ {
		y0, y1 := float64(r)*sy, float64(r+1)*sy
		for c := 0; c < n; c++ {
			x0, x1 := float64(c)*sx, float64(c+1)*sx

			covered := 0.0
			for yy := int(math.Floor(y0)); yy < int(math.Ceil(y1)) && yy < mask.Height; yy++ {
				hy := overlap(y0, y1, float64(yy), float64(yy+1))
				if hy <= 0 {
					continue
				}
				for xx := int(math.Floor(x0)); xx < int(math.Ceil(x1)) && xx < mask.Width; xx++ {
					if !mask.At(yy, xx) {
						continue
					}
					covered += hy * overlap(x0, x1, float64(xx), float64(xx+1))
				}
			}
			out.Set(r, c, covered*2 >= cellArea)
		}
	}
	return out
}

func overlap(a0, a1, b0, b1 float64) float64 {
	return math.Min(a1, b1) - math.Max(a0, b0)
}
