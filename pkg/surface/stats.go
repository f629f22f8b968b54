package surface

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"silhouettecarve/internal/models"
)

// Stats summarizes the geometry and topology of a mesh.
type Stats struct {
	Vertices int
	Faces    int
	Edges    int

	// Area is the total surface area.
	Area float64

	// Volume is the signed enclosed volume, positive for outward-facing
	// triangles.
	Volume float64

	// Euler is V - E + F; 2 for a closed surface of genus zero.
	Euler int

	// BoundaryEdges counts edges used by a single face.
	BoundaryEdges int

	// NonManifoldEdges counts edges used by more than two faces.
	NonManifoldEdges int

	EdgeLengthMean   float64
	EdgeLengthStdDev float64
}

// Closed reports whether every edge is shared by exactly two faces.
func (s Stats) Closed() bool {
	return s.Faces > 0 && s.BoundaryEdges == 0 && s.NonManifoldEdges == 0
}

type edgeKey [2]int

func undirected(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Measure computes Stats for mesh.
func Measure(mesh *models.Mesh) Stats {
	s := Stats{
		Vertices: mesh.NumVertices(),
		Faces:    mesh.NumFaces(),
	}

	uses := map[edgeKey]int{}
	for i, f := range mesh.Faces {
		t := mesh.Triangle(i)
		s.Area += r3.Norm(faceNormal(t)) / 2
		s.Volume += r3.Dot(t[0], r3.Cross(t[1], t[2])) / 6
		for j := 0; j < 3; j++ {
			uses[undirected(f[j], f[(j+1)%3])]++
		}
	}

	lengths := make([]float64, 0, len(uses))
	for e, count := range uses {
		switch {
		case count == 1:
			s.BoundaryEdges++
		case count > 2:
			s.NonManifoldEdges++
		}
		lengths = append(lengths, r3.Norm(r3.Sub(mesh.Vertices[e[0]], mesh.Vertices[e[1]])))
	}
	s.Edges = len(uses)
	s.Euler = s.Vertices - s.Edges + s.Faces

	if len(lengths) > 0 {
		s.EdgeLengthMean = stat.Mean(lengths, nil)
	}
	if len(lengths) > 1 {
		s.EdgeLengthStdDev = stat.StdDev(lengths, nil)
	}
	return s
}

// Oriented reports whether the mesh is closed and consistently wound: each
// directed edge occurs once and its reverse occurs in a neighbouring face.
func Oriented(mesh *models.Mesh) bool {
	directed := map[edgeKey]int{}
	for _, f := range mesh.Faces {
		for j := 0; j < 3; j++ {
			directed[edgeKey{f[j], f[(j+1)%3]}]++
		}
	}
	for e, count := range directed {
		if count > 1 {
			return false
		}
		if _, ok := directed[edgeKey{e[1], e[0]}]; !ok {
			return false
		}
	}
	return true
}
