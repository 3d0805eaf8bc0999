package geom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDimensionMismatch is returned when grid or array shapes disagree, or
// when an operation requiring exactly three axes receives another count.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Grid3 holds the three coordinate fields of a 3-D grid, flattened row-major
// so that index (i,j,k) lives at i*Shape[1]*Shape[2] + j*Shape[2] + k.
type Grid3 struct {
	Shape   [3]int
	X, Y, Z []float64
}

// Index returns the flat offset of (i,j,k).
func (g *Grid3) Index(i, j, k int) int {
	return (i*g.Shape[1]+j)*g.Shape[2] + k
}

// Vec returns the grid point at flat offset n.
func (g *Grid3) Vec(n int) r3.Vec {
	return r3.Vec{X: g.X[n], Y: g.Y[n], Z: g.Z[n]}
}

// Len returns the total number of grid points.
func (g *Grid3) Len() int { return len(g.X) }

// NDGrid builds the 3-D coordinate grid spanned by three axes, ndgrid-style:
// output dimension d varies with axis d. When m is non-nil every grid point
// is additionally mapped through the 4x4 transform (homogeneous multiply,
// then the homogeneous row is dropped).
//
// Returns:
//   - The coordinate grid.
//   - ErrDimensionMismatch wrapped with context if any axis is empty.
func NDGrid(axes [3]Axis, m *Transform) (*Grid3, error) {
	for d, ax := range axes {
		if ax.Length() == 0 {
			return nil, fmt.Errorf("ndgrid axis %d (%q): %w: empty axis", d, ax.ID, ErrDimensionMismatch)
		}
	}
	shape := [3]int{axes[0].Length(), axes[1].Length(), axes[2].Length()}
	n := shape[0] * shape[1] * shape[2]
	g := &Grid3{
		Shape: shape,
		X:     make([]float64, n),
		Y:     make([]float64, n),
		Z:     make([]float64, n),
	}
	idx := 0
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			for k := 0; k < shape[2]; k++ {
				v := r3.Vec{X: axes[0].Values[i], Y: axes[1].Values[j], Z: axes[2].Values[k]}
				if m != nil {
					v = m.Apply(v)
				}
				g.X[idx] = v.X
				g.Y[idx] = v.Y
				g.Z[idx] = v.Z
				idx++
			}
		}
	}
	return g, nil
}

// MeshGrid builds the same coordinate grid as NDGrid but with the first two
// dimensions swapped, matching meshgrid conventions: output dimension 0
// varies with axis 1 and dimension 1 with axis 0.
func MeshGrid(axes [3]Axis, m *Transform) (*Grid3, error) {
	for d, ax := range axes {
		if ax.Length() == 0 {
			return nil, fmt.Errorf("meshgrid axis %d (%q): %w: empty axis", d, ax.ID, ErrDimensionMismatch)
		}
	}
	shape := [3]int{axes[1].Length(), axes[0].Length(), axes[2].Length()}
	n := shape[0] * shape[1] * shape[2]
	g := &Grid3{
		Shape: shape,
		X:     make([]float64, n),
		Y:     make([]float64, n),
		Z:     make([]float64, n),
	}
	idx := 0
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			for k := 0; k < shape[2]; k++ {
				v := r3.Vec{X: axes[0].Values[j], Y: axes[1].Values[i], Z: axes[2].Values[k]}
				if m != nil {
					v = m.Apply(v)
				}
				g.X[idx] = v.X
				g.Y[idx] = v.Y
				g.Z[idx] = v.Z
				idx++
			}
		}
	}
	return g, nil
}
