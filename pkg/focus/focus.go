// Package focus builds focus-centered coordinate frames and derives scalar
// fields over volume grids relative to beam geometry: offsets, anisotropic
// distances, boolean masks, and beamwidth measurements.
package focus

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// ErrDegenerateFocus is returned when the focus coincides with the frame
// origin, leaving the beam azimuth undefined.
var ErrDegenerateFocus = errors.New("degenerate focus at origin")

// CenterOn selects the origin of the focus-centered frame.
type CenterOn string

const (
	// CenterFocus places the frame origin at the focus point.
	CenterFocus CenterOn = "focus"

	// CenterOrigin keeps the frame origin at the world origin.
	CenterOrigin CenterOn = "origin"
)

// Matrix builds an orthonormal focus frame for the first position of f.
// The frame's z axis points from the chosen origin toward the focus, x is
// the azimuthal in-plane direction, and y completes the right-handed basis
// (y = z cross x).
//
// Returns:
//   - The frame transform (frame-to-parent).
//   - ErrDegenerateFocus when the focus lies at the origin.
func Matrix(f geom.Point, centerOn CenterOn) (geom.Transform, error) {
	p := f.Vec(0)
	n := r3.Norm(p)
	if n == 0 {
		return geom.Transform{}, fmt.Errorf("focus %q: %w", f.ID, ErrDegenerateFocus)
	}
	zvec := r3.Scale(1/n, p)
	az := -math.Atan2(zvec.X, zvec.Z)
	xvec := r3.Vec{X: math.Cos(az), Y: 0, Z: math.Sin(az)}
	yvec := r3.Cross(zvec, xvec)

	var origin r3.Vec
	switch centerOn {
	case CenterFocus, "":
		origin = p
	case CenterOrigin:
		origin = r3.Vec{}
	default:
		return geom.Transform{}, fmt.Errorf("focus %q: unknown center %q", f.ID, centerOn)
	}
	return geom.FromRotationTranslation([]float64{
		xvec.X, yvec.X, zvec.X,
		xvec.Y, yvec.Y, zvec.Y,
		xvec.Z, yvec.Z, zvec.Z,
	}, origin)
}

// OffsetGrid computes, for every point of the grid spanned by coords, its
// coordinates in the focus-centered frame of f: each grid point is mapped
// through the inverse focus matrix. The three returned fields are the
// (dx, dy, dz) offsets, grid-shaped.
func OffsetGrid(coords [3]geom.Axis, f geom.Point) (*geom.Grid3, error) {
	scaled, err := f.Rescale(coords[0].Units)
	if err != nil {
		return nil, fmt.Errorf("offset grid: %w", err)
	}
	m, err := Matrix(scaled, CenterFocus)
	if err != nil {
		return nil, fmt.Errorf("offset grid: %w", err)
	}
	inv, err := m.Inverse()
	if err != nil {
		return nil, fmt.Errorf("offset grid: %w", err)
	}
	return geom.NDGrid(coords, &inv)
}

// DistFromFocus computes the anisotropic Euclidean distance from every grid
// point to the focus, measured in the focus frame:
//
//	d = sqrt(sum_i (offset_i / aspect_i)^2)
//
// A zero aspect selects the isotropic default [1 1 1]. Stretching the third
// component de-weights axial distance, matching oblong focal spots.
//
// Returns the distance field and the grid shape.
func DistFromFocus(coords [3]geom.Axis, f geom.Point, aspect [3]float64) ([]float64, [3]int, error) {
	if aspect == ([3]float64{}) {
		aspect = [3]float64{1, 1, 1}
	}
	for d, a := range aspect {
		if a <= 0 {
			return nil, [3]int{}, fmt.Errorf("dist from focus: aspect[%d] must be positive, got %g", d, a)
		}
	}
	g, err := OffsetGrid(coords, f)
	if err != nil {
		return nil, [3]int{}, err
	}
	out := make([]float64, g.Len())
	for i := range out {
		dx := g.X[i] / aspect[0]
		dy := g.Y[i] / aspect[1]
		dz := g.Z[i] / aspect[2]
		out[i] = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return out, g.Shape, nil
}

// Op is a comparison operator for focus masks.
type Op string

const (
	Greater   Op = ">"
	GreaterEq Op = ">="
	Less      Op = "<"
	LessEq    Op = "<="
)

func (op Op) apply(a, b float64) (bool, error) {
	switch op {
	case Greater:
		return a > b, nil
	case GreaterEq:
		return a >= b, nil
	case Less:
		return a < b, nil
	case LessEq:
		return a <= b, nil
	default:
		return false, fmt.Errorf("unknown mask operation %q", op)
	}
}

// MaskFocus builds a boolean field over the grid spanned by coords: the OR
// across all foci of (distance-from-focus <op> distance), intersected with
// z > zmin when zmin is finite (z in the grid's own frame).
//
// A zero aspect selects the mask default [1 1 10]: axial distances are
// de-weighted tenfold to track the elongation of real focal spots. For the
// inclusive operators < and <= a non-positive distance is rejected at
// validation since it can never admit a voxel.
func MaskFocus(coords [3]geom.Axis, foci []geom.Point, distance float64, op Op, aspect [3]float64, zmin float64) ([]bool, error) {
	if len(foci) == 0 {
		return nil, fmt.Errorf("mask focus: need at least one focus")
	}
	if (op == Less || op == LessEq) && distance <= 0 {
		return nil, fmt.Errorf("mask focus: distance must be positive for %q, got %g", op, distance)
	}
	if _, err := op.apply(0, 0); err != nil {
		return nil, fmt.Errorf("mask focus: %w", err)
	}
	if aspect == ([3]float64{}) {
		aspect = [3]float64{1, 1, 10}
	}

	var mask []bool
	for _, f := range foci {
		dist, shape, err := DistFromFocus(coords, f, aspect)
		if err != nil {
			return nil, fmt.Errorf("mask focus: %w", err)
		}
		if mask == nil {
			mask = make([]bool, shape[0]*shape[1]*shape[2])
		}
		for i, d := range dist {
			in, _ := op.apply(d, distance)
			mask[i] = mask[i] || in
		}
	}

	if !math.IsInf(zmin, 0) && !math.IsNaN(zmin) {
		g, err := geom.NDGrid(coords, nil)
		if err != nil {
			return nil, fmt.Errorf("mask focus: %w", err)
		}
		for i := range mask {
			mask[i] = mask[i] && g.Z[i] > zmin
		}
	}
	return mask, nil
}
