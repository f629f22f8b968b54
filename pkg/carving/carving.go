// Package carving intersects six silhouette masks into a voxel occupancy
// grid.
//
// Every voxel starts occupied and survives only if the projection of each
// face marks it. The projections come from the face assignment table in
// internal/models, so no axis or mirror arithmetic lives here.
package carving

import (
	"runtime"
	"strings"

	"github.com/unixpickle/essentials"
	"go.uber.org/zap"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

// Set holds one mask per face, indexed by models.Face.
type Set [models.NumFaces]*models.Mask

// NewSet builds a Set from a face-keyed map. Faces absent from the map are
// left nil and rejected later by Validate.
func NewSet(masks map[models.Face]*models.Mask) Set {
	var s Set
	for f, m := range masks {
		if f.Valid() {
			s[f] = m
		}
	}
	return s
}

// Resolution returns the side of the masks, or 0 if the front mask is
// missing.
func (s Set) Resolution() int {
	if s[models.Front] == nil {
		return 0
	}
	return s[models.Front].Width
}

// Validate checks that all six masks are present, square and of one shared
// size.
func (s Set) Validate() error {
	n := -1
	for _, f := range models.Faces {
		m := s[f]
		if m == nil {
			return reconerr.New(reconerr.InvalidInput, "missing %s mask", f)
		}
		if m.Width <= 0 || m.Width != m.Height || len(m.Data) != m.Width*m.Height {
			return reconerr.New(reconerr.InvalidInput, "%s mask is %dx%d with %d cells, want a square mask",
				f, m.Width, m.Height, len(m.Data))
		}
		if n < 0 {
			n = m.Width
		} else if m.Width != n {
			return reconerr.New(reconerr.InvalidInput, "%s mask is %dx%d, want %dx%d", f, m.Width, m.Height, n, n)
		}
	}
	return nil
}

// EmptyFaces returns the faces whose mask has no object cell, in capture
// order.
func EmptyFaces(s Set) []models.Face {
	var faces []models.Face
	for _, f := range models.Faces {
		if s[f] != nil && s[f].Empty() {
			faces = append(faces, f)
		}
	}
	return faces
}

// FaceNames joins face names for log and error messages.
func FaceNames(faces []models.Face) string {
	names := make([]string, len(faces))
	for i, f := range faces {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}

// Options configures Carve.
type Options struct {
	// NumCores is the number of goroutines working on x-slabs. Zero means
	// runtime.NumCPU().
	NumCores int

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

func (o Options) cores() int {
	if o.NumCores <= 0 {
		return runtime.NumCPU()
	}
	return o.NumCores
}

// Carve intersects the six masks of s into an N×N×N grid.
func Carve(s Set, opts Options) (*models.Grid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	n := s.Resolution()
	grid := models.NewGrid(n)
	var tables [models.NumFaces]models.Projection
	for _, f := range models.Faces {
		tables[f] = f.Projection()
	}

	essentials.ConcurrentMap(opts.cores(), n, func(x int) {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				grid.Set(x, y, z, covered(&s, &tables, x, y, z, n))
			}
		}
	})

	logger.Debug("carved occupancy grid",
		zap.Int("resolution", n),
		zap.Int("occupied", grid.Count()))
	return grid, nil
}

func covered(s *Set, tables *[models.NumFaces]models.Projection, x, y, z, n int) bool {
	for f, p := range tables {
		row, col := p.MaskIndex(x, y, z, n)
		if !s[f].At(row, col) {
			return false
		}
	}
	return true
}

// CarveFace clears every voxel of grid that mask, seen from face, does not
// cover. Applying the six faces in any order yields the same grid as Carve.
func CarveFace(grid *models.Grid, mask *models.Mask, face models.Face) error {
	if !grid.Valid() {
		return reconerr.New(reconerr.InvalidInput, "grid is malformed")
	}
	if !face.Valid() {
		return reconerr.New(reconerr.InvalidInput, "unknown face %d", int(face))
	}
	n := grid.N
	if mask == nil || mask.Width != n || mask.Height != n || len(mask.Data) != n*n {
		return reconerr.New(reconerr.InvalidInput, "%s mask does not match a %d^3 grid", face, n)
	}

	p := face.Projection()
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				row, col := p.MaskIndex(x, y, z, n)
				if !mask.At(row, col) {
					grid.Set(x, y, z, false)
				}
			}
		}
	}
	return nil
}

// Project renders the silhouette grid casts onto face: a mask cell is set
// when any voxel mapping onto it is occupied.
func Project(grid *models.Grid, face models.Face) (*models.Mask, error) {
	if !grid.Valid() {
		return nil, reconerr.New(reconerr.InvalidInput, "grid is malformed")
	}
	if !face.Valid() {
		return nil, reconerr.New(reconerr.InvalidInput, "unknown face %d", int(face))
	}
	n := grid.N
	mask := models.NewMask(n, n)
	p := face.Projection()
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				if grid.At(x, y, z) {
					row, col := p.MaskIndex(x, y, z, n)
					mask.Set(row, col, true)
				}
			}
		}
	}
	return mask, nil
}

// IoU returns the intersection over union of two equally shaped masks. Two
// empty masks agree perfectly.
func IoU(a, b *models.Mask) float64 {
	var inter, union int
	for i, v := range a.Data {
		w := b.Data[i]
		if v && w {
			inter++
		}
		if v || w {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}
