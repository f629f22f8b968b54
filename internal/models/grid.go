package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Grid is a cubic occupancy volume of N×N×N voxels. One voxel is one unit
// cell of normalized object space; voxel (x, y, z) sits at (x, y, z)/N.
type Grid struct {
	// N is the number of voxels along each axis.
	N int

	// Data holds the voxels with z varying fastest: index (x*N+y)*N+z.
	Data []bool
}

// NewGrid creates an empty grid.
func NewGrid(n int) *Grid {
	if n < 0 {
		n = 0
	}
	return &Grid{N: n, Data: make([]bool, n*n*n)}
}

// NewFullGrid creates a grid with every voxel occupied.
func NewFullGrid(n int) *Grid {
	g := NewGrid(n)
	for i := range g.Data {
		g.Data[i] = true
	}
	return g
}

// Index returns the offset of (x, y, z) in Data.
func (g *Grid) Index(x, y, z int) int {
	return (x*g.N+y)*g.N + z
}

// At returns the voxel at (x, y, z).
func (g *Grid) At(x, y, z int) bool {
	return g.Data[(x*g.N+y)*g.N+z]
}

// Set assigns the voxel at (x, y, z).
func (g *Grid) Set(x, y, z int, v bool) {
	g.Data[(x*g.N+y)*g.N+z] = v
}

// Value returns the voxel as a scalar field sample, 1 for occupied.
func (g *Grid) Value(x, y, z int) float64 {
	if g.Data[(x*g.N+y)*g.N+z] {
		return 1
	}
	return 0
}

// Count returns the number of occupied voxels.
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.Data {
		if v {
			n++
		}
	}
	return n
}

// Empty reports whether no voxel is occupied.
func (g *Grid) Empty() bool {
	for _, v := range g.Data {
		if v {
			return false
		}
	}
	return true
}

// Full reports whether every voxel is occupied.
func (g *Grid) Full() bool {
	for _, v := range g.Data {
		if !v {
			return false
		}
	}
	return true
}

// Valid reports whether the grid is non-nil, has a positive size and a
// data slice of matching length.
func (g *Grid) Valid() bool {
	return g != nil && g.N > 0 && len(g.Data) == g.N*g.N*g.N
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{N: g.N, Data: make([]bool, len(g.Data))}
	copy(c.Data, g.Data)
	return c
}

// Equal reports whether two grids have the same size and voxels.
func (g *Grid) Equal(o *Grid) bool {
	if g.N != o.N || len(g.Data) != len(o.Data) {
		return false
	}
	for i, v := range g.Data {
		if o.Data[i] != v {
			return false
		}
	}
	return true
}

// Points returns the normalized coordinates of every occupied voxel in
// index order.
func (g *Grid) Points() []r3.Vec {
	points := make([]r3.Vec, 0, g.Count())
	scale := 1 / float64(g.N)
	for x := 0; x < g.N; x++ {
		for y := 0; y < g.N; y++ {
			for z := 0; z < g.N; z++ {
				if g.At(x, y, z) {
					points = append(points, r3.Vec{
						X: float64(x) * scale,
						Y: float64(y) * scale,
						Z: float64(z) * scale,
					})
				}
			}
		}
	}
	return points
}
