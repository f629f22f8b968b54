package models

import (
	"fmt"
	"strings"
)

// Face identifies one of the six canonical viewing directions an object
// is photographed from.
type Face int

const (
	Front Face = iota
	Back
	Left
	Right
	Top
	Bottom
)

// NumFaces is the number of silhouettes a reconstruction needs.
const NumFaces = 6

// Faces lists every face in capture order.
var Faces = [NumFaces]Face{Front, Back, Left, Right, Top, Bottom}

var faceNames = [NumFaces]string{"front", "back", "left", "right", "top", "bottom"}

// String returns the lower-case face name.
func (f Face) String() string {
	if !f.Valid() {
		return fmt.Sprintf("face(%d)", int(f))
	}
	return faceNames[f]
}

// Valid reports whether f is one of the six known faces.
func (f Face) Valid() bool {
	return f >= Front && f <= Bottom
}

// ParseFace converts a face name such as "front" or "Bottom" into a Face.
func ParseFace(name string) (Face, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range faceNames {
		if n == name {
			return Face(i), nil
		}
	}
	return 0, fmt.Errorf("unknown face %q", name)
}

// Axis is one of the three grid axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Projection describes how a face's silhouette constrains the occupancy grid.
//
// The mask of a face is addressed by (row, col) taken from two voxel axes.
// The axis the face looks along is always one of them, so every slice of the
// grid along Axis reads its own row or column of the mask. The second face
// of each pair sees the object from the opposite side and reads the depth
// coordinate reversed.
type Projection struct {
	// Axis is the viewing axis; the face constrains exactly this axis.
	Axis Axis

	// Row and Col are the voxel axes indexing the mask rows and columns.
	Row, Col Axis

	// Mirror reverses the coordinate along Axis before the mask lookup.
	Mirror bool
}

// projections is the capture convention of the six-view rig.
var projections = [NumFaces]Projection{
	Front:  {Axis: AxisZ, Row: AxisY, Col: AxisZ},
	Back:   {Axis: AxisZ, Row: AxisY, Col: AxisZ, Mirror: true},
	Left:   {Axis: AxisX, Row: AxisY, Col: AxisX},
	Right:  {Axis: AxisX, Row: AxisY, Col: AxisX, Mirror: true},
	Top:    {Axis: AxisY, Row: AxisY, Col: AxisZ},
	Bottom: {Axis: AxisY, Row: AxisY, Col: AxisZ, Mirror: true},
}

// Projection returns the face's entry in the face assignment table.
func (f Face) Projection() Projection {
	return projections[f]
}

// Opposite returns the face looking along the same axis from the other side.
func (f Face) Opposite() Face {
	if f%2 == 0 {
		return f + 1
	}
	return f - 1
}

// MaskIndex maps the voxel (x, y, z) of an n×n×n grid to the (row, col)
// of an n×n mask.
func (p Projection) MaskIndex(x, y, z, n int) (row, col int) {
	c := [3]int{x, y, z}
	if p.Mirror {
		c[p.Axis] = n - 1 - c[p.Axis]
	}
	return c[p.Row], c[p.Col]
}
