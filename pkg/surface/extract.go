// Package surface turns occupancy grids into triangle meshes and back.
//
// Extract runs table-driven marching cubes over the grid treated as a 0/1
// scalar field. Grid index i maps to coordinate i*spacing, so with the
// default spacing of 1/N the mesh lies inside the unit cube.
package surface

import (
	"runtime"

	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

// DefaultIsoLevel sits halfway between empty and occupied.
const DefaultIsoLevel = 0.5

// Options configures Extract.
type Options struct {
	// IsoLevel is the field value of the surface. Zero means
	// DefaultIsoLevel. It must lie strictly between 0 and 1.
	IsoLevel float64

	// Spacing is the distance between neighbouring samples. Zero means
	// 1/N.
	Spacing float64

	// NumCores is the number of goroutines extracting x-slabs. Zero means
	// runtime.NumCPU().
	NumCores int

	Logger *zap.Logger
}

func (o Options) withDefaults(n int) Options {
	if o.IsoLevel == 0 {
		o.IsoLevel = DefaultIsoLevel
	}
	if o.Spacing == 0 {
		o.Spacing = 1 / float64(n)
	}
	if o.NumCores <= 0 {
		o.NumCores = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// slab is the part of the mesh produced by the cells of one x index.
type slab struct {
	edges []int64
	faces [][3]int32
}

// Extract builds the iso-surface of grid.
//
// An empty or full grid has no surface and yields an empty mesh. A
// malformed grid fails with ExtractionFailure.
func Extract(grid *models.Grid, opts Options) (*models.Mesh, error) {
	if grid == nil {
		return nil, reconerr.New(reconerr.ExtractionFailure, "grid is nil")
	}
	if grid.N <= 0 || len(grid.Data) != grid.N*grid.N*grid.N {
		return nil, reconerr.New(reconerr.ExtractionFailure, "grid of size %d has %d voxels", grid.N, len(grid.Data))
	}
	opts = opts.withDefaults(grid.N)
	if opts.IsoLevel <= 0 || opts.IsoLevel >= 1 {
		return nil, reconerr.New(reconerr.InvalidInput, "iso level %v outside (0, 1)", opts.IsoLevel)
	}
	if opts.Spacing < 0 {
		return nil, reconerr.New(reconerr.InvalidInput, "negative spacing %v", opts.Spacing)
	}
	if grid.N < 2 || grid.Empty() || grid.Full() {
		return &models.Mesh{}, nil
	}

	n := grid.N
	slabs := make([]slab, n-1)
	essentials.ConcurrentMap(opts.NumCores, n-1, func(x int) {
		slabs[x] = extractSlab(grid, x)
	})

	mesh := mergeSlabs(grid, slabs, opts)
	opts.Logger.Debug("extracted iso-surface",
		zap.Int("vertices", mesh.NumVertices()),
		zap.Int("faces", mesh.NumFaces()),
		zap.Float64("isoLevel", opts.IsoLevel))
	return mesh, nil
}

// extractSlab triangulates the cells with origin x. Vertices are named by
// the lattice edge they lie on; faces index into the slab's edge list.
func extractSlab(grid *models.Grid, x int) slab {
	n := grid.N
	var s slab
	local := map[int64]int32{}

	for y := 0; y < n-1; y++ {
		for z := 0; z < n-1; z++ {
			var config int
			for i, c := range cellCorners {
				if grid.At(x+c[0], y+c[1], z+c[2]) {
					config |= 1 << uint(i)
				}
			}
			if edgeTable[config] == 0 {
				continue
			}

			tri := &triTable[config]
			for i := 0; tri[i] >= 0; i += 3 {
				var face [3]int32
				for j := 0; j < 3; j++ {
					id := latticeEdge(n, x, y, z, int(tri[i+j]))
					idx, ok := local[id]
					if !ok {
						idx = int32(len(s.edges))
						local[id] = idx
						s.edges = append(s.edges, id)
					}
					face[j] = idx
				}
				s.faces = append(s.faces, face)
			}
		}
	}
	return s
}

// latticeEdge returns a grid-wide id for edge e of the cell at (x, y, z):
// the index of the edge's lower endpoint times three plus its axis.
func latticeEdge(n, x, y, z, e int) int64 {
	a := cellCorners[cellEdges[e][0]]
	b := cellCorners[cellEdges[e][1]]
	p := [3]int{x + min(a[0], b[0]), y + min(a[1], b[1]), z + min(a[2], b[2])}
	axis := 0
	for k := 0; k < 3; k++ {
		if a[k] != b[k] {
			axis = k
		}
	}
	return (int64(p[0]*n+p[1])*int64(n)+int64(p[2]))*3 + int64(axis)
}

// mergeSlabs joins slabs in x order, sharing vertices on the planes between
// neighbouring slabs, so the output does not depend on scheduling.
func mergeSlabs(grid *models.Grid, slabs []slab, opts Options) *models.Mesh {
	mesh := &models.Mesh{}
	global := map[int64]int{}

	for _, s := range slabs {
		remap := make([]int, len(s.edges))
		for i, id := range s.edges {
			idx, ok := global[id]
			if !ok {
				idx = len(mesh.Vertices)
				global[id] = idx
				pos, value := edgeVertex(grid, id, opts)
				mesh.Vertices = append(mesh.Vertices, pos)
				mesh.Values = append(mesh.Values, value)
			}
			remap[i] = idx
		}
		for _, f := range s.faces {
			mesh.Faces = append(mesh.Faces, [3]int{remap[f[0]], remap[f[1]], remap[f[2]]})
		}
	}

	mesh.Normals = vertexNormals(mesh)
	return mesh
}

// edgeVertex places the surface crossing on a lattice edge by linear
// interpolation and reports the larger field value of its endpoints.
func edgeVertex(grid *models.Grid, id int64, opts Options) (r3.Vec, float64) {
	n := int64(grid.N)
	axis := int(id % 3)
	p := id / 3
	c := [3]int{int(p / (n * n)), int(p / n % n), int(p % n)}
	d := c
	d[axis]++

	va := grid.Value(c[0], c[1], c[2])
	vb := grid.Value(d[0], d[1], d[2])
	t := 0.5
	if va != vb {
		t = (opts.IsoLevel - va) / (vb - va)
	}

	pos := [3]float64{float64(c[0]), float64(c[1]), float64(c[2])}
	pos[axis] += t
	return r3.Scale(opts.Spacing, r3.Vec{X: pos[0], Y: pos[1], Z: pos[2]}), max(va, vb)
}

// vertexNormals accumulates area-weighted face normals onto each vertex.
func vertexNormals(mesh *models.Mesh) []r3.Vec {
	normals := make([]r3.Vec, len(mesh.Vertices))
	for i := range mesh.Faces {
		n := faceNormal(mesh.Triangle(i))
		for _, idx := range mesh.Faces[i] {
			normals[idx] = r3.Add(normals[idx], n)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	return normals
}

// faceNormal returns the normal of a counter-clockwise triangle with a
// length of twice its area.
func faceNormal(t [3]r3.Vec) r3.Vec {
	return r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
}
