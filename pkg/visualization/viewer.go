package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"silhouettecarve/internal/models"
)

// Viewer renders cross sections of an occupancy grid as images.
type Viewer struct {
	// grid holds the occupancy volume being inspected
	grid *models.Grid

	// scale is the number of pixels per voxel in saved slices
	scale int
}

// NewViewer creates a viewer over grid. Saved slices are enlarged by scale
// pixels per voxel; values below one keep the native size.
func NewViewer(grid *models.Grid, scale int) *Viewer {
	if scale < 1 {
		scale = 1
	}
	return &Viewer{grid: grid, scale: scale}
}

// ParseAxis converts "x", "y" or "z" (any case) into an axis.
func ParseAxis(axis string) (models.Axis, error) {
	switch axis {
	case "x", "X":
		return models.AxisX, nil
	case "y", "Y":
		return models.AxisY, nil
	case "z", "Z":
		return models.AxisZ, nil
	}
	return 0, errors.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts the plane at position along axis. Occupied voxels
// are white.
//
// An x slice has z columns and y rows, a y slice x columns and z rows, and
// a z slice x columns and y rows.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray, error) {
	a, err := ParseAxis(axis)
	if err != nil {
		return nil, err
	}
	n := v.grid.N
	if position < 0 || position >= n {
		return nil, errors.Errorf("position %d outside grid of size %d", position, n)
	}

	img := image.NewGray(image.Rect(0, 0, n, n))
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			var occupied bool
			switch a {
			case models.AxisX:
				occupied = v.grid.At(position, row, col)
			case models.AxisY:
				occupied = v.grid.At(col, position, row)
			default:
				occupied = v.grid.At(col, row, position)
			}
			if occupied {
				img.SetGray(col, row, color.Gray{Y: 255})
			}
		}
	}
	return img, nil
}

// Occupancy returns the number of occupied voxels in every slice along axis.
func (v *Viewer) Occupancy(axis string) ([]int, error) {
	a, err := ParseAxis(axis)
	if err != nil {
		return nil, err
	}
	n := v.grid.N
	counts := make([]int, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				if v.grid.At(x, y, z) {
					counts[[3]int{x, y, z}[a]]++
				}
			}
		}
	}
	return counts, nil
}

// SaveSlice saves an extracted slice as a PNG image, enlarged by the
// viewer's scale.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	if v.scale > 1 {
		b := img.Bounds()
		scaled := image.NewGray(image.Rect(0, 0, b.Dx()*v.scale, b.Dy()*v.scale))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		img = scaled
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create slice image")
	}
	defer file.Close()

	return errors.Wrapf(png.Encode(file, img), "encode %s", filename)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if _, err := ParseAxis(axis); err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errors.Wrap(err, "create slice directory")
	}

	for pos := 0; pos < v.grid.N; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
