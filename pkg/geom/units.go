// Package geom provides the geometric primitives shared by the planning
// core: labeled coordinate axes, 4x4 homogeneous transforms, positioned
// points, and coordinate grid construction.
package geom

import (
	"errors"
	"fmt"
)

// Unit is a length-unit tag attached to axes, points, and volumes.
type Unit string

// Recognized length units. All conversions go through meters.
const (
	Meters      Unit = "m"
	Centimeters Unit = "cm"
	Millimeters Unit = "mm"
	Microns     Unit = "um"
	Inches      Unit = "in"
	Feet        Unit = "ft"
)

// ErrInvalidUnit is returned when a unit tag is not a recognized length unit.
var ErrInvalidUnit = errors.New("invalid length unit")

// metersPer maps each recognized unit to its size in meters.
var metersPer = map[Unit]float64{
	Meters:      1.0,
	Centimeters: 1e-2,
	Millimeters: 1e-3,
	Microns:     1e-6,
	Inches:      0.0254,
	Feet:        0.3048,
}

// ValidUnit reports whether u is a recognized length unit.
func ValidUnit(u Unit) bool {
	_, ok := metersPer[u]
	return ok
}

// Convert returns the multiplicative factor that converts a length measured
// in `from` units into `to` units.
//
// Returns:
//   - The conversion factor, e.g. Convert("m", "mm") == 1000.
//   - ErrInvalidUnit if either unit is unrecognized.
func Convert(from, to Unit) (float64, error) {
	mf, ok := metersPer[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, from)
	}
	mt, ok := metersPer[to]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, to)
	}
	return mf / mt, nil
}
