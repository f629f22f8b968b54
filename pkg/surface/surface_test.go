package surface

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"silhouettecarve/internal/models"
	"silhouettecarve/pkg/reconerr"
)

func sphereGrid(n int, radius float64) *models.Grid {
	g := models.NewGrid(n)
	c := float64(n-1) / 2
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				dx, dy, dz := float64(x)-c, float64(y)-c, float64(z)-c
				if dx*dx+dy*dy+dz*dz <= radius*radius {
					g.Set(x, y, z, true)
				}
			}
		}
	}
	return g
}

func boxGrid(n, lo, hi int) *models.Grid {
	g := models.NewGrid(n)
	for x := lo; x <= hi; x++ {
		for y := lo; y <= hi; y++ {
			for z := lo; z <= hi; z++ {
				g.Set(x, y, z, true)
			}
		}
	}
	return g
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestExtractEmptyAndFull(t *testing.T) {
	for _, g := range []*models.Grid{models.NewGrid(5), models.NewFullGrid(5), models.NewFullGrid(1)} {
		mesh, err := Extract(g, Options{})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if mesh == nil || mesh.NumVertices() != 0 || mesh.NumFaces() != 0 {
			t.Errorf("expected empty mesh for a grid with %d of %d voxels", g.Count(), len(g.Data))
		}
	}
}

func TestExtractMalformedGrid(t *testing.T) {
	testCases := []struct {
		name string
		grid *models.Grid
	}{
		{"nil", nil},
		{"zero size", &models.Grid{}},
		{"short data", &models.Grid{N: 3, Data: make([]bool, 20)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mesh, err := Extract(tc.grid, Options{})
			if !reconerr.IsKind(err, reconerr.ExtractionFailure) {
				t.Errorf("expected ExtractionFailure, got %v", err)
			}
			if mesh != nil {
				t.Error("no mesh should be returned on failure")
			}
		})
	}

	if _, err := Extract(models.NewGrid(3), Options{IsoLevel: 1.5}); !reconerr.IsKind(err, reconerr.InvalidInput) {
		t.Errorf("expected InvalidInput for iso level 1.5, got %v", err)
	}
}

func TestExtractSingleVoxel(t *testing.T) {
	g := models.NewGrid(3)
	g.Set(1, 1, 1, true)

	mesh, err := Extract(g, Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if mesh.NumVertices() != 6 || mesh.NumFaces() != 8 {
		t.Fatalf("expected an octahedron, got %d vertices and %d faces", mesh.NumVertices(), mesh.NumFaces())
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("invalid mesh: %v", err)
	}

	center := r3.Vec{X: 1.0 / 3, Y: 1.0 / 3, Z: 1.0 / 3}
	for i, v := range mesh.Vertices {
		d := r3.Sub(v, center)
		if !approxEqual(r3.Norm(d), 0.5/3, 1e-12) {
			t.Errorf("vertex %d at %v is not half a voxel from the centre", i, v)
		}
		if r3.Dot(mesh.Normals[i], d) <= 0 {
			t.Errorf("normal %d points inward", i)
		}
		if !approxEqual(r3.Norm(mesh.Normals[i]), 1, 1e-12) {
			t.Errorf("normal %d is not unit length", i)
		}
		if mesh.Values[i] != 1 {
			t.Errorf("vertex %d value %v, want 1", i, mesh.Values[i])
		}
	}

	stats := Measure(mesh)
	if !stats.Closed() || stats.Euler != 2 || !Oriented(mesh) {
		t.Errorf("octahedron should be a closed oriented sphere: %+v", stats)
	}
	if !approxEqual(stats.Volume, 1.0/6/27, 1e-12) {
		t.Errorf("volume %v, want %v", stats.Volume, 1.0/6/27)
	}
}

func TestExtractBlock(t *testing.T) {
	mesh, err := Extract(boxGrid(4, 1, 2), Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if mesh.NumVertices() != 24 || mesh.NumFaces() != 44 {
		t.Errorf("got %d vertices and %d faces, want 24 and 44", mesh.NumVertices(), mesh.NumFaces())
	}

	min, max := mesh.Bounds()
	for _, c := range []float64{min.X, min.Y, min.Z} {
		if !approxEqual(c, 0.125, 1e-12) {
			t.Errorf("min bound %v, want 0.125", min)
		}
	}
	for _, c := range []float64{max.X, max.Y, max.Z} {
		if !approxEqual(c, 0.625, 1e-12) {
			t.Errorf("max bound %v, want 0.625", max)
		}
	}

	stats := Measure(mesh)
	if !stats.Closed() || stats.Euler != 2 {
		t.Errorf("block surface should be closed with Euler characteristic 2: %+v", stats)
	}
	if !approxEqual(stats.Volume, (17.0/3)/64, 1e-12) {
		t.Errorf("volume %v, want %v", stats.Volume, (17.0/3)/64)
	}
}

func TestExtractSphere(t *testing.T) {
	mesh, err := Extract(sphereGrid(20, 6), Options{NumCores: 4})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if mesh.NumVertices() != 672 || mesh.NumFaces() != 1340 {
		t.Errorf("got %d vertices and %d faces, want 672 and 1340", mesh.NumVertices(), mesh.NumFaces())
	}

	stats := Measure(mesh)
	if !stats.Closed() || stats.Euler != 2 || !Oriented(mesh) {
		t.Fatalf("sphere should be a closed oriented surface: %+v", stats)
	}

	center := r3.Vec{X: 9.5 / 20, Y: 9.5 / 20, Z: 9.5 / 20}
	for i := range mesh.Faces {
		tri := mesh.Triangle(i)
		centroid := r3.Scale(1.0/3, r3.Add(r3.Add(tri[0], tri[1]), tri[2]))
		if r3.Dot(faceNormal(tri), r3.Sub(centroid, center)) <= 0 {
			t.Fatalf("face %d faces inward", i)
		}
	}

	ideal := 4.0 / 3 * math.Pi * math.Pow(6.0/20, 3)
	if math.Abs(stats.Volume-ideal)/ideal > 0.15 {
		t.Errorf("volume %v too far from %v", stats.Volume, ideal)
	}
	if stats.EdgeLengthMean <= 0 || stats.EdgeLengthMean > 1.0/20 {
		t.Errorf("unexpected mean edge length %v", stats.EdgeLengthMean)
	}
}

func TestExtractDeterministic(t *testing.T) {
	g := sphereGrid(16, 5)
	g.Set(0, 3, 3, true)
	g.Set(15, 15, 15, true)

	want, err := Extract(g, Options{NumCores: 1})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, cores := range []int{2, 5, 16} {
		got, err := Extract(g, Options{NumCores: cores})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if got.NumVertices() != want.NumVertices() || got.NumFaces() != want.NumFaces() {
			t.Fatalf("%d cores: mesh size changed", cores)
		}
		for i, v := range want.Vertices {
			if got.Vertices[i] != v {
				t.Fatalf("%d cores: vertex %d moved", cores, i)
			}
		}
		for i, f := range want.Faces {
			if got.Faces[i] != f {
				t.Fatalf("%d cores: face %d changed", cores, i)
			}
		}
	}
}

func TestExtractSpacingAndIsoLevel(t *testing.T) {
	g := models.NewGrid(3)
	g.Set(1, 1, 1, true)

	mesh, err := Extract(g, Options{Spacing: 1, IsoLevel: 0.25})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// A lower iso level pushes the surface toward the empty corners.
	for i, v := range mesh.Vertices {
		d := r3.Norm(r3.Sub(v, r3.Vec{X: 1, Y: 1, Z: 1}))
		if !approxEqual(d, 0.75, 1e-12) {
			t.Errorf("vertex %d is %v from the voxel, want 0.75", i, d)
		}
	}
}

func TestCenterIsTranslation(t *testing.T) {
	raw, err := Extract(sphereGrid(12, 4), Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	centered := Center(raw)

	if centered.NumVertices() != raw.NumVertices() || centered.NumFaces() != raw.NumFaces() {
		t.Fatal("centering changed the mesh size")
	}
	for i, v := range raw.Vertices {
		c := centered.Vertices[i]
		if c.X != v.X-0.5 || c.Y != v.Y-0.5 || c.Z != v.Z-0.5 {
			t.Fatalf("vertex %d: %v is not %v shifted by -0.5", i, c, v)
		}
		if centered.Normals[i] != raw.Normals[i] || centered.Values[i] != raw.Values[i] {
			t.Fatalf("vertex %d: attributes changed", i)
		}
	}
	for i, f := range raw.Faces {
		if centered.Faces[i] != f {
			t.Fatalf("face %d changed", i)
		}
	}

	// The raw mesh is left untouched.
	min, _ := raw.Bounds()
	if min.X < 0 {
		t.Error("Center modified its input")
	}

	empty := Center(&models.Mesh{})
	if !empty.Empty() {
		t.Error("centering an empty mesh should give an empty mesh")
	}
}

func TestMeasureOpenMesh(t *testing.T) {
	mesh := &models.Mesh{
		Vertices: []r3.Vec{{}, {X: 1}, {Y: 1}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	stats := Measure(mesh)
	if stats.BoundaryEdges != 3 || stats.Closed() {
		t.Errorf("single triangle should have three boundary edges: %+v", stats)
	}
	if !approxEqual(stats.Area, 0.5, 1e-12) {
		t.Errorf("area %v, want 0.5", stats.Area)
	}
	if stats.Euler != 1 {
		t.Errorf("Euler characteristic %d, want 1", stats.Euler)
	}
	if Oriented(mesh) {
		t.Error("open mesh cannot be closed and oriented")
	}
}

func TestVoxelizeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ray-cast round trip in short mode")
	}

	for _, radius := range []float64{4, 6.5} {
		g := sphereGrid(20, radius)
		mesh, err := Extract(g, Options{})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		back, err := Voxelize(mesh, 20, 0, 0)
		if err != nil {
			t.Fatalf("Voxelize: %v", err)
		}

		mismatched := 0
		for i, v := range g.Data {
			if back.Data[i] != v {
				mismatched++
			}
		}
		if float64(mismatched) > 0.02*float64(g.Count()) {
			t.Errorf("radius %v: %d of %d voxels disagree after round trip", radius, mismatched, g.Count())
		}
	}
}

func TestVoxelizeEdgeCases(t *testing.T) {
	grid, err := Voxelize(&models.Mesh{}, 4, 0, 1)
	if err != nil {
		t.Fatalf("Voxelize: %v", err)
	}
	if !grid.Empty() || grid.N != 4 {
		t.Error("empty mesh should voxelize to an empty grid")
	}

	if _, err := Voxelize(nil, 4, 0, 1); !reconerr.IsKind(err, reconerr.InvalidInput) {
		t.Errorf("expected InvalidInput for nil mesh, got %v", err)
	}
	if _, err := Voxelize(&models.Mesh{}, 0, 0, 1); !reconerr.IsKind(err, reconerr.InvalidInput) {
		t.Errorf("expected InvalidInput for zero resolution, got %v", err)
	}
	bad := &models.Mesh{Vertices: []r3.Vec{{}}, Faces: [][3]int{{0, 1, 2}}}
	if _, err := Voxelize(bad, 4, 0, 1); !reconerr.IsKind(err, reconerr.InvalidInput) {
		t.Errorf("expected InvalidInput for broken mesh, got %v", err)
	}
}

func TestToModel3D(t *testing.T) {
	mesh, err := Extract(boxGrid(4, 1, 2), Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	m := ToModel3D(mesh)
	if len(m.TriangleSlice()) != mesh.NumFaces() {
		t.Errorf("model3d mesh has %d triangles, want %d", len(m.TriangleSlice()), mesh.NumFaces())
	}
}

func BenchmarkExtract(b *testing.B) {
	g := sphereGrid(48, 18)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Extract(g, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
