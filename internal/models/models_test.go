package models

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// TestProjectionTable verifies that every axis pair constrains exactly one
// axis and that only the second face of each pair is mirrored.
func TestProjectionTable(t *testing.T) {
	seen := map[Axis]int{}
	for _, f := range Faces {
		p := f.Projection()
		o := f.Opposite().Projection()
		if p.Axis != o.Axis {
			t.Errorf("%s and %s look along different axes: %s vs %s", f, f.Opposite(), p.Axis, o.Axis)
		}
		if p.Mirror == o.Mirror {
			t.Errorf("exactly one of %s/%s should be mirrored", f, f.Opposite())
		}
		if p.Row != p.Axis && p.Col != p.Axis {
			t.Errorf("%s: viewing axis %s must index the mask", f, p.Axis)
		}
		if p.Row == p.Col {
			t.Errorf("%s: row and column use the same axis", f)
		}
		seen[p.Axis]++
	}
	for _, a := range []Axis{AxisX, AxisY, AxisZ} {
		if seen[a] != 2 {
			t.Errorf("axis %s is constrained by %d faces, want 2", a, seen[a])
		}
	}

	mirrored := []Face{Back, Right, Bottom}
	for _, f := range mirrored {
		if !f.Projection().Mirror {
			t.Errorf("%s should be mirrored", f)
		}
	}
}

func TestMaskIndex(t *testing.T) {
	n := 5
	testCases := []struct {
		face     Face
		x, y, z  int
		row, col int
	}{
		{Front, 1, 2, 3, 2, 3},
		{Back, 1, 2, 3, 2, 1},
		{Left, 1, 2, 3, 2, 1},
		{Right, 1, 2, 3, 2, 3},
		{Top, 1, 2, 3, 2, 3},
		{Bottom, 1, 2, 3, 2, 3},
		{Bottom, 0, 0, 4, 4, 4},
	}

	for _, tc := range testCases {
		row, col := tc.face.Projection().MaskIndex(tc.x, tc.y, tc.z, n)
		if row != tc.row || col != tc.col {
			t.Errorf("%s (%d,%d,%d): expected (%d,%d), got (%d,%d)",
				tc.face, tc.x, tc.y, tc.z, tc.row, tc.col, row, col)
		}
	}
}

func TestParseFace(t *testing.T) {
	for _, f := range Faces {
		got, err := ParseFace(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFace(%q) = %v, %v", f.String(), got, err)
		}
	}
	if f, err := ParseFace(" Bottom "); err != nil || f != Bottom {
		t.Errorf("ParseFace should ignore case and spaces, got %v, %v", f, err)
	}
	if _, err := ParseFace("side"); err == nil {
		t.Error("expected error for unknown face")
	}
}

func TestMaskFromRows(t *testing.T) {
	m, err := MaskFromRows([][]bool{
		{true, false, false},
		{false, true, true},
	})
	if err != nil {
		t.Fatalf("MaskFromRows: %v", err)
	}
	if m.Width != 3 || m.Height != 2 {
		t.Fatalf("expected 3x2 mask, got %dx%d", m.Width, m.Height)
	}
	if !m.At(0, 0) || m.At(0, 1) || !m.At(1, 2) {
		t.Error("cells copied to the wrong place")
	}
	if m.Count() != 3 {
		t.Errorf("expected 3 object cells, got %d", m.Count())
	}

	if _, err := MaskFromRows([][]bool{{true}, {true, false}}); err == nil {
		t.Error("expected error for ragged rows")
	}
}

func TestGridBasics(t *testing.T) {
	g := NewGrid(3)
	if !g.Empty() || g.Full() {
		t.Fatal("new grid should be empty")
	}
	g.Set(1, 2, 0, true)
	if !g.At(1, 2, 0) || g.Data[g.Index(1, 2, 0)] != true {
		t.Error("Set/At disagree")
	}
	if g.Index(1, 2, 0) != (1*3+2)*3 {
		t.Errorf("unexpected index layout %d", g.Index(1, 2, 0))
	}
	c := g.Clone()
	c.Set(0, 0, 0, true)
	if g.At(0, 0, 0) {
		t.Error("clone shares data with original")
	}
	if g.Equal(c) {
		t.Error("grids differ but compare equal")
	}

	points := g.Points()
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	want := r3.Vec{X: 1.0 / 3, Y: 2.0 / 3, Z: 0}
	if points[0] != want {
		t.Errorf("expected point %v, got %v", want, points[0])
	}

	if !NewFullGrid(2).Full() {
		t.Error("full grid should be full")
	}
	if (&Grid{N: 2, Data: make([]bool, 7)}).Valid() {
		t.Error("grid with short data should be invalid")
	}
}

func TestMeshValidate(t *testing.T) {
	m := &Mesh{
		Vertices: []r3.Vec{{}, {X: 1}, {Y: 1}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("valid mesh rejected: %v", err)
	}
	m.Faces = append(m.Faces, [3]int{0, 1, 3})
	if err := m.Validate(); err == nil {
		t.Error("out-of-range index should be rejected")
	}

	m.Faces = m.Faces[:1]
	m.Normals = []r3.Vec{{Z: 1}}
	if err := m.Validate(); err == nil {
		t.Error("normal count mismatch should be rejected")
	}

	min, max := m.Bounds()
	if min != (r3.Vec{}) || max != (r3.Vec{X: 1, Y: 1}) {
		t.Errorf("unexpected bounds %v %v", min, max)
	}
}
