package surface

import (
	"gonum.org/v1/gonum/spatial/r3"

	"silhouettecarve/internal/models"
)

// CenterOffset moves the unit cube the extractor works in onto the origin.
var CenterOffset = r3.Vec{X: -0.5, Y: -0.5, Z: -0.5}

// Center returns a copy of mesh with 0.5 subtracted from every vertex
// coordinate. Faces, normals and values are copied unchanged.
func Center(mesh *models.Mesh) *models.Mesh {
	return Translate(mesh, CenterOffset)
}

// Translate returns a copy of mesh moved by offset.
func Translate(mesh *models.Mesh, offset r3.Vec) *models.Mesh {
	out := mesh.Clone()
	for i, v := range out.Vertices {
		out.Vertices[i] = r3.Add(v, offset)
	}
	return out
}
