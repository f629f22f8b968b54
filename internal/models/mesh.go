package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle surface.
type Mesh struct {
	// Vertices are the vertex positions.
	Vertices []r3.Vec

	// Faces are triangles given as indices into Vertices, wound
	// counter-clockwise when seen from outside the solid.
	Faces [][3]int

	// Normals holds one unit normal per vertex (may be empty).
	Normals []r3.Vec

	// Values holds the scalar field value associated with each vertex
	// (may be empty).
	Values []float64
}

// NumVertices returns the number of vertices.
func (m *Mesh) NumVertices() int {
	return len(m.Vertices)
}

// NumFaces returns the number of triangles.
func (m *Mesh) NumFaces() int {
	return len(m.Faces)
}

// Empty reports whether the mesh has no geometry.
func (m *Mesh) Empty() bool {
	return len(m.Vertices) == 0 && len(m.Faces) == 0
}

// Validate checks that all face indices reference existing vertices and
// that per-vertex attributes match the vertex count.
func (m *Mesh) Validate() error {
	nv := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= nv {
				return fmt.Errorf("face %d references vertex %d of %d", i, idx, nv)
			}
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != nv {
		return fmt.Errorf("%d normals for %d vertices", len(m.Normals), nv)
	}
	if len(m.Values) != 0 && len(m.Values) != nv {
		return fmt.Errorf("%d values for %d vertices", len(m.Values), nv)
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the vertices. An empty
// mesh yields zero vectors.
func (m *Mesh) Bounds() (min, max r3.Vec) {
	if len(m.Vertices) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	min = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range m.Vertices {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		min.Z = math.Min(min.Z, v.Z)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
		max.Z = math.Max(max.Z, v.Z)
	}
	return min, max
}

// Triangle returns the three corner positions of face i.
func (m *Mesh) Triangle(i int) [3]r3.Vec {
	f := m.Faces[i]
	return [3]r3.Vec{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]r3.Vec(nil), m.Vertices...),
		Faces:    append([][3]int(nil), m.Faces...),
		Normals:  append([]r3.Vec(nil), m.Normals...),
		Values:   append([]float64(nil), m.Values...),
	}
	return c
}
