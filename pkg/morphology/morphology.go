// Package morphology implements binary 3D morphology on occupancy grids
// with a cubic structuring element.
//
// Voxels outside the grid count as background for every operation, so an
// erosion always peels the outer layer of a grid that touches its border.
// The cube is separable: each operation runs as three one-dimensional
// passes along x, y and z.
package morphology

import (
	"runtime"

	"github.com/unixpickle/essentials"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

// DefaultSize is the side of the 26-connected structuring element.
const DefaultSize = 3

// Dilate grows the occupied region by a size×size×size cube.
func Dilate(grid *models.Grid, size, cores int) (*models.Grid, error) {
	if err := check(grid, size); err != nil {
		return nil, err
	}
	return apply(grid, size, cores, true), nil
}

// Erode shrinks the occupied region by a size×size×size cube.
func Erode(grid *models.Grid, size, cores int) (*models.Grid, error) {
	if err := check(grid, size); err != nil {
		return nil, err
	}
	return apply(grid, size, cores, false), nil
}

// Close dilates and then erodes, filling cavities smaller than the
// structuring element.
func Close(grid *models.Grid, size, cores int) (*models.Grid, error) {
	if err := check(grid, size); err != nil {
		return nil, err
	}
	return apply(apply(grid, size, cores, true), size, cores, false), nil
}

// Open erodes and then dilates, removing specks and protrusions thinner
// than the structuring element.
func Open(grid *models.Grid, size, cores int) (*models.Grid, error) {
	if err := check(grid, size); err != nil {
		return nil, err
	}
	return apply(apply(grid, size, cores, false), size, cores, true), nil
}

// Regularize closes and then opens grid. The input is not modified.
func Regularize(grid *models.Grid, size, cores int) (*models.Grid, error) {
	closed, err := Close(grid, size, cores)
	if err != nil {
		return nil, err
	}
	return Open(closed, size, cores)
}

func check(grid *models.Grid, size int) error {
	if !grid.Valid() {
		return reconerr.New(reconerr.InvalidInput, "grid is malformed")
	}
	if size < 1 || size%2 == 0 {
		return reconerr.New(reconerr.InvalidInput, "structuring element size must be odd and positive, got %d", size)
	}
	if size > grid.N {
		return reconerr.New(reconerr.InvalidInput, "structuring element %d exceeds grid extent %d", size, grid.N)
	}
	return nil
}

func apply(grid *models.Grid, size, cores int, dilate bool) *models.Grid {
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	radius := size / 2
	src := grid
	for _, axis := range []models.Axis{models.AxisX, models.AxisY, models.AxisZ} {
		dst := models.NewGrid(grid.N)
		pass(src, dst, axis, radius, cores, dilate)
		src = dst
	}
	return src
}

// pass runs a one-dimensional window of the given radius along axis.
// Dilation takes the window maximum, erosion the minimum, with background
// outside the grid.
func pass(src, dst *models.Grid, axis models.Axis, radius, cores int, dilate bool) {
	n := src.N
	var stride int
	switch axis {
	case models.AxisX:
		stride = n * n
	case models.AxisY:
		stride = n
	default:
		stride = 1
	}

	essentials.ConcurrentMap(cores, n, func(x int) {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				c := [3]int{x, y, z}
				pos := c[axis]
				idx := src.Index(x, y, z)

				var v bool
				if dilate {
					v = false
					for d := -radius; d <= radius && !v; d++ {
						p := pos + d
						if p >= 0 && p < n && src.Data[idx+d*stride] {
							v = true
						}
					}
				} else {
					v = pos-radius >= 0 && pos+radius < n
					for d := -radius; d <= radius && v; d++ {
						if !src.Data[idx+d*stride] {
							v = false
						}
					}
				}
				dst.Data[idx] = v
			}
		}
	})
}
