package geom

import (
	"fmt"
	"math"
	"sort"
)

// Axis is a single labeled, unit-bearing 1-D coordinate sequence. It is the
// leaf primitive for every sampled grid in the planning core: a Volume holds
// three of them, one per array dimension.
//
// Values must be monotonic and non-empty. An Axis is a value type: methods
// never mutate the receiver, they return a new Axis.
type Axis struct {
	// Values is the ordered coordinate sequence along this axis.
	Values []float64 `yaml:"values"`

	// ID is the short symbolic name, e.g. "lat", "ele", "ax".
	ID string `yaml:"id"`

	// Name is the human-readable display label.
	Name string `yaml:"name"`

	// Units is the length unit the values are expressed in.
	Units Unit `yaml:"units"`
}

// NewAxis builds an axis with evenly spaced values over [start, stop]
// inclusive. n must be at least 1; with n == 1 the single value is start.
func NewAxis(id, name string, start, stop float64, n int, units Unit) (Axis, error) {
	if n < 1 {
		return Axis{}, fmt.Errorf("axis %q: need at least 1 value, got %d", id, n)
	}
	if !ValidUnit(units) {
		return Axis{}, fmt.Errorf("axis %q: %w: %q", id, ErrInvalidUnit, units)
	}
	values := make([]float64, n)
	if n == 1 {
		values[0] = start
	} else {
		step := (stop - start) / float64(n-1)
		for i := range values {
			values[i] = start + float64(i)*step
		}
	}
	return Axis{Values: values, ID: id, Name: name, Units: units}, nil
}

// Length returns the number of samples along the axis.
func (a Axis) Length() int { return len(a.Values) }

// Extent returns the minimum and maximum coordinate values.
func (a Axis) Extent() (min, max float64) {
	if len(a.Values) == 0 {
		return math.NaN(), math.NaN()
	}
	min, max = a.Values[0], a.Values[0]
	for _, v := range a.Values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Spacing returns the median absolute step between adjacent values, or 0 for
// a single-sample axis. Beamwidth jitter bounds derive from this.
func (a Axis) Spacing() float64 {
	if len(a.Values) < 2 {
		return 0
	}
	steps := make([]float64, len(a.Values)-1)
	for i := 1; i < len(a.Values); i++ {
		steps[i-1] = math.Abs(a.Values[i] - a.Values[i-1])
	}
	sort.Float64s(steps)
	return steps[len(steps)/2]
}

// Copy returns a deep copy of the axis.
func (a Axis) Copy() Axis {
	values := make([]float64, len(a.Values))
	copy(values, a.Values)
	a.Values = values
	return a
}

// Rescale returns a new Axis with values converted to the target unit.
// Rescaling to the current unit returns an unchanged copy.
//
// Returns:
//   - The rescaled axis.
//   - ErrInvalidUnit if either the current or target unit is unrecognized.
func (a Axis) Rescale(to Unit) (Axis, error) {
	factor, err := Convert(a.Units, to)
	if err != nil {
		return Axis{}, fmt.Errorf("rescale axis %q: %w", a.ID, err)
	}
	out := a.Copy()
	out.Units = to
	if factor == 1 {
		return out, nil
	}
	for i := range out.Values {
		out.Values[i] *= factor
	}
	return out, nil
}
