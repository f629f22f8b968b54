package models

import (
	"fmt"
)

// Mask is a binary silhouette: true where the object covers the projected
// cell, false for background. Masks are treated as immutable once handed
// to the reconstruction pipeline.
type Mask struct {
	// Width is the number of columns.
	Width int

	// Height is the number of rows.
	Height int

	// Data holds the cells in row-major order.
	Data []bool
}

// NewMask creates an all-background mask.
func NewMask(width, height int) *Mask {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Data:   make([]bool, width*height),
	}
}

// NewFilledMask creates a mask with every cell set to v.
func NewFilledMask(width, height int, v bool) *Mask {
	m := NewMask(width, height)
	if v {
		for i := range m.Data {
			m.Data[i] = true
		}
	}
	return m
}

// MaskFromRows builds a mask from a rectangular [row][col] table.
func MaskFromRows(rows [][]bool) (*Mask, error) {
	if len(rows) == 0 {
		return NewMask(0, 0), nil
	}
	width := len(rows[0])
	m := NewMask(width, len(rows))
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("ragged mask: row %d has %d columns, want %d", r, len(row), width)
		}
		copy(m.Data[r*width:], row)
	}
	return m, nil
}

// At returns the cell at (row, col).
func (m *Mask) At(row, col int) bool {
	return m.Data[row*m.Width+col]
}

// Set assigns the cell at (row, col).
func (m *Mask) Set(row, col int, v bool) {
	m.Data[row*m.Width+col] = v
}

// Count returns the number of object cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Empty reports whether the mask has no object cell.
func (m *Mask) Empty() bool {
	for _, v := range m.Data {
		if v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Data: make([]bool, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

// Equal reports whether two masks have the same shape and cells.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height || len(m.Data) != len(o.Data) {
		return false
	}
	for i, v := range m.Data {
		if o.Data[i] != v {
			return false
		}
	}
	return true
}
