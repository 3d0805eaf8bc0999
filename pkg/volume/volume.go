// Package volume provides 3-D sampled fields over three coordinate axes
// with a local-to-world frame matrix, and their resampling into other
// frames via affine transforms and grid interpolation.
package volume

import (
	"fmt"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// Volume is a dense 3-D field sampled on the grid spanned by three axes.
// Data is flattened row-major: sample (i,j,k) lives at
// (i*n1+j)*n2+k where n1, n2 are the lengths of axes 1 and 2.
//
// Matrix maps grid coordinates (axis-value triples) into the world frame.
// Transforming a volume always produces a new Volume; data is never
// re-framed in place.
type Volume struct {
	// ID is the short symbolic name.
	ID string `yaml:"id"`

	// Name is the human-readable display label.
	Name string `yaml:"name"`

	// Data holds the samples, row-major over the three axes.
	Data []float64 `yaml:"data,flow"`

	// Coords are the three axes, order-matched to the array dimensions.
	Coords [3]geom.Axis `yaml:"coords"`

	// Matrix maps local grid coordinates into the world frame.
	Matrix geom.Transform `yaml:"matrix"`

	// Attrs carries free-form annotations, e.g. the reference value of a
	// material-property volume.
	Attrs map[string]string `yaml:"attrs,omitempty"`

	// Units is the length unit of the axes.
	Units geom.Unit `yaml:"units"`
}

// New constructs a volume, validating that the data length matches the grid
// spanned by the axes.
//
// Returns:
//   - The volume.
//   - geom.ErrDimensionMismatch when len(data) != product of axis lengths
//     or any axis is empty.
func New(id, name string, data []float64, coords [3]geom.Axis, matrix geom.Transform, units geom.Unit) (*Volume, error) {
	n := 1
	for d, ax := range coords {
		if ax.Length() == 0 {
			return nil, fmt.Errorf("volume %q axis %d: %w: empty axis", id, d, geom.ErrDimensionMismatch)
		}
		n *= ax.Length()
	}
	if len(data) != n {
		return nil, fmt.Errorf("volume %q: %w: %d samples for a %dx%dx%d grid",
			id, geom.ErrDimensionMismatch, len(data),
			coords[0].Length(), coords[1].Length(), coords[2].Length())
	}
	if !geom.ValidUnit(units) {
		return nil, fmt.Errorf("volume %q: %w: %q", id, geom.ErrInvalidUnit, units)
	}
	return &Volume{
		ID:     id,
		Name:   name,
		Data:   data,
		Coords: [3]geom.Axis{coords[0].Copy(), coords[1].Copy(), coords[2].Copy()},
		Matrix: matrix,
		Units:  units,
	}, nil
}

// Shape returns the sample counts along the three axes.
func (v *Volume) Shape() [3]int {
	return [3]int{v.Coords[0].Length(), v.Coords[1].Length(), v.Coords[2].Length()}
}

// Index returns the flat offset of sample (i,j,k).
func (v *Volume) Index(i, j, k int) int {
	return (i*v.Coords[1].Length()+j)*v.Coords[2].Length() + k
}

// At returns the sample at (i,j,k).
func (v *Volume) At(i, j, k int) float64 { return v.Data[v.Index(i, j, k)] }

// Copy returns a deep copy sharing no storage with the receiver.
func (v *Volume) Copy() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	out := &Volume{
		ID:     v.ID,
		Name:   v.Name,
		Data:   data,
		Coords: [3]geom.Axis{v.Coords[0].Copy(), v.Coords[1].Copy(), v.Coords[2].Copy()},
		Matrix: v.Matrix,
		Units:  v.Units,
	}
	if v.Attrs != nil {
		out.Attrs = make(map[string]string, len(v.Attrs))
		for k, val := range v.Attrs {
			out.Attrs[k] = val
		}
	}
	return out
}

// Rescale returns a copy with axes converted to the target unit and the
// frame matrix translation rescaled to match. Sample values are untouched.
func (v *Volume) Rescale(to geom.Unit) (*Volume, error) {
	factor, err := geom.Convert(v.Units, to)
	if err != nil {
		return nil, fmt.Errorf("rescale volume %q: %w", v.ID, err)
	}
	out := v.Copy()
	out.Units = to
	for d := range out.Coords {
		ax, err := out.Coords[d].Rescale(to)
		if err != nil {
			return nil, err
		}
		out.Coords[d] = ax
	}
	out.Matrix = v.Matrix.RescaleTranslation(factor)
	return out, nil
}

// Grid returns the world-frame coordinate grid of the volume's samples.
func (v *Volume) Grid() (*geom.Grid3, error) {
	m := v.Matrix
	return geom.NDGrid(v.Coords, &m)
}
