package geom

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Point is a positioned entity in a single coordinate frame. One Point may
// hold N colocated positions (a focal pattern's sub-foci, for example) as a
// 3xN position matrix whose rows correspond one to one with Dims.
type Point struct {
	// ID is the short symbolic name.
	ID string `yaml:"id"`

	// Name is the human-readable display label.
	Name string `yaml:"name"`

	// Color is an RGB triple in [0,1] used by rendering collaborators.
	Color [3]float64 `yaml:"color"`

	// Radius is the display radius in the point's units.
	Radius float64 `yaml:"radius"`

	// Position holds one column per position, rows ordered as Dims.
	Position *mat.Dense `yaml:"-"`

	// Dims labels the three position rows, e.g. {"x","y","z"}.
	Dims [3]string `yaml:"dims"`

	// Units is the length unit of Position and Radius.
	Units Unit `yaml:"units"`
}

// NewPoint builds a single-position point.
func NewPoint(id, name string, pos r3.Vec, units Unit) (Point, error) {
	if !ValidUnit(units) {
		return Point{}, fmt.Errorf("point %q: %w: %q", id, ErrInvalidUnit, units)
	}
	return Point{
		ID:       id,
		Name:     name,
		Position: mat.NewDense(3, 1, []float64{pos.X, pos.Y, pos.Z}),
		Dims:     [3]string{"x", "y", "z"},
		Units:    units,
	}, nil
}

// NumPositions returns the number of colocated positions the point holds.
func (p Point) NumPositions() int {
	if p.Position == nil {
		return 0
	}
	_, n := p.Position.Dims()
	return n
}

// Vec returns position column i as a vector.
func (p Point) Vec(i int) r3.Vec {
	return r3.Vec{
		X: p.Position.At(0, i),
		Y: p.Position.At(1, i),
		Z: p.Position.At(2, i),
	}
}

// Copy returns a deep copy; the returned point shares no storage with the
// receiver.
func (p Point) Copy() Point {
	out := p
	if p.Position != nil {
		out.Position = mat.DenseCopyOf(p.Position)
	}
	return out
}

// Rescale returns a copy with positions and radius converted to the target
// unit.
func (p Point) Rescale(to Unit) (Point, error) {
	factor, err := Convert(p.Units, to)
	if err != nil {
		return Point{}, fmt.Errorf("rescale point %q: %w", p.ID, err)
	}
	out := p.Copy()
	out.Units = to
	out.Radius *= factor
	if factor != 1 && out.Position != nil {
		out.Position.Scale(factor, out.Position)
	}
	return out, nil
}

// pointYAML is the serialized form of a Point; the 3xN position matrix maps
// to three row slices.
type pointYAML struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name,omitempty"`
	Color    [3]float64  `yaml:"color,omitempty"`
	Radius   float64     `yaml:"radius,omitempty"`
	Position [][]float64 `yaml:"position"`
	Dims     [3]string   `yaml:"dims"`
	Units    Unit        `yaml:"units"`
}

// MarshalYAML encodes the point with its position matrix as row slices.
func (p Point) MarshalYAML() (interface{}, error) {
	out := pointYAML{
		ID:     p.ID,
		Name:   p.Name,
		Color:  p.Color,
		Radius: p.Radius,
		Dims:   p.Dims,
		Units:  p.Units,
	}
	if p.Position != nil {
		_, n := p.Position.Dims()
		out.Position = make([][]float64, 3)
		for r := 0; r < 3; r++ {
			row := make([]float64, n)
			for c := 0; c < n; c++ {
				row[c] = p.Position.At(r, c)
			}
			out.Position[r] = row
		}
	}
	return out, nil
}

// UnmarshalYAML decodes the row-slice form back into a point.
func (p *Point) UnmarshalYAML(value *yaml.Node) error {
	var raw pointYAML
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	out := Point{
		ID:     raw.ID,
		Name:   raw.Name,
		Color:  raw.Color,
		Radius: raw.Radius,
		Dims:   raw.Dims,
		Units:  raw.Units,
	}
	if len(raw.Position) > 0 {
		if len(raw.Position) != 3 {
			return fmt.Errorf("point %q: %w: %d position rows", raw.ID, ErrDimensionMismatch, len(raw.Position))
		}
		n := len(raw.Position[0])
		for r, row := range raw.Position {
			if len(row) != n {
				return fmt.Errorf("point %q: %w: ragged position row %d", raw.ID, ErrDimensionMismatch, r)
			}
		}
		out.Position = mat.NewDense(3, n, nil)
		for r := 0; r < 3; r++ {
			for c := 0; c < n; c++ {
				out.Position.Set(r, c, raw.Position[r][c])
			}
		}
	}
	*p = out
	return nil
}

// TransformBy returns a copy with every position mapped through t.
func (p Point) TransformBy(t Transform) Point {
	out := p.Copy()
	if out.Position == nil {
		return out
	}
	_, n := out.Position.Dims()
	for i := 0; i < n; i++ {
		v := t.Apply(out.Vec(i))
		out.Position.Set(0, i, v.X)
		out.Position.Set(1, i, v.Y)
		out.Position.Set(2, i, v.Z)
	}
	return out
}
