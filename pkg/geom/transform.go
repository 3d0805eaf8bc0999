package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Transform is a 4x4 homogeneous affine matrix mapping points in a local
// frame into the parent frame: parent = M * [x y z 1]'. The top-left 3x3
// block carries rotation and scale, the last column the translation, and the
// bottom row is fixed at [0 0 0 1].
//
// A Transform is treated as immutable: every operation returns a new value.
type Transform struct {
	m *mat.Dense
}

// Identity returns the identity transform.
func Identity() Transform {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return Transform{m: m}
}

// NewTransform builds a transform from 16 row-major values.
//
// Returns:
//   - The transform.
//   - An error if data is not length 16 or the bottom row is not [0 0 0 1].
func NewTransform(data []float64) (Transform, error) {
	if len(data) != 16 {
		return Transform{}, fmt.Errorf("transform: need 16 values, got %d", len(data))
	}
	bottom := data[12:16]
	want := [4]float64{0, 0, 0, 1}
	for i, v := range bottom {
		if v != want[i] {
			return Transform{}, fmt.Errorf("transform: bottom row must be [0 0 0 1], got %v", bottom)
		}
	}
	d := make([]float64, 16)
	copy(d, data)
	return Transform{m: mat.NewDense(4, 4, d)}, nil
}

// FromRotationTranslation assembles a transform from a 3x3 rotation/scale
// block (row-major, 9 values) and a translation vector.
func FromRotationTranslation(rot []float64, t r3.Vec) (Transform, error) {
	if len(rot) != 9 {
		return Transform{}, fmt.Errorf("transform: need 9 rotation values, got %d", len(rot))
	}
	out := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m.Set(i, j, rot[i*3+j])
		}
	}
	out.m.Set(0, 3, t.X)
	out.m.Set(1, 3, t.Y)
	out.m.Set(2, 3, t.Z)
	return out, nil
}

// RotationX returns a rotation about the X axis by the given angle in radians.
func RotationX(rad float64) Transform {
	s, c := math.Sin(rad), math.Cos(rad)
	t, _ := FromRotationTranslation([]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}, r3.Vec{})
	return t
}

// RotationY returns a rotation about the Y axis by the given angle in radians.
func RotationY(rad float64) Transform {
	s, c := math.Sin(rad), math.Cos(rad)
	t, _ := FromRotationTranslation([]float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}, r3.Vec{})
	return t
}

// RotationZ returns a rotation about the Z axis by the given angle in radians.
func RotationZ(rad float64) Transform {
	s, c := math.Sin(rad), math.Cos(rad)
	t, _ := FromRotationTranslation([]float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}, r3.Vec{})
	return t
}

// Translate returns a pure translation transform.
func Translate(v r3.Vec) Transform {
	out := Identity()
	out.m.Set(0, 3, v.X)
	out.m.Set(1, 3, v.Y)
	out.m.Set(2, 3, v.Z)
	return out
}

// ensure lazily backs a zero-value Transform with the identity so that the
// zero value is usable.
func (t Transform) ensure() *mat.Dense {
	if t.m == nil {
		return Identity().m
	}
	return t.m
}

// At returns the matrix entry at row i, column j.
func (t Transform) At(i, j int) float64 { return t.ensure().At(i, j) }

// Raw returns the 16 row-major matrix values as a fresh slice.
func (t Transform) Raw() []float64 {
	m := t.ensure()
	out := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// Mul composes two transforms: the result applies u first, then t.
func (t Transform) Mul(u Transform) Transform {
	out := mat.NewDense(4, 4, nil)
	out.Mul(t.ensure(), u.ensure())
	return Transform{m: out}
}

// Inverse returns the true matrix inverse. A transpose is not sufficient
// because the rotation block may carry non-uniform scale.
//
// Returns:
//   - The inverted transform.
//   - An error when the matrix is singular.
func (t Transform) Inverse() (Transform, error) {
	out := mat.NewDense(4, 4, nil)
	if err := out.Inverse(t.ensure()); err != nil {
		return Transform{}, fmt.Errorf("transform inverse: %w", err)
	}
	return Transform{m: out}, nil
}

// PseudoInverse returns the Moore-Penrose style inverse (M'M)^-1 M'. Volume
// resampling falls back to this when the frame matrix is not invertible by
// ordinary means.
func (t Transform) PseudoInverse() (Transform, error) {
	m := t.ensure()
	var mtm mat.Dense
	mtm.Mul(m.T(), m)
	var inv mat.Dense
	if err := inv.Inverse(&mtm); err != nil {
		return Transform{}, fmt.Errorf("transform pseudo-inverse: %w", err)
	}
	out := mat.NewDense(4, 4, nil)
	out.Mul(&inv, m.T())
	return Transform{m: out}, nil
}

// InverseOrPseudo returns the true inverse when it exists, otherwise the
// pseudo-inverse.
func (t Transform) InverseOrPseudo() (Transform, error) {
	if inv, err := t.Inverse(); err == nil {
		return inv, nil
	}
	return t.PseudoInverse()
}

// Apply maps a point through the transform: homogeneous multiply followed by
// dropping the w row.
func (t Transform) Apply(v r3.Vec) r3.Vec {
	m := t.ensure()
	return r3.Vec{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z + m.At(0, 3),
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z + m.At(1, 3),
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z + m.At(2, 3),
	}
}

// ApplyDirection maps a direction vector through the rotation/scale block
// only, ignoring translation.
func (t Transform) ApplyDirection(v r3.Vec) r3.Vec {
	m := t.ensure()
	return r3.Vec{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// Translation returns the translation column.
func (t Transform) Translation() r3.Vec {
	m := t.ensure()
	return r3.Vec{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
}

// Column returns one of the rotation block columns (0..2) as a vector.
// Column 2 is the local z axis, the out-of-plane normal for elements.
func (t Transform) Column(j int) r3.Vec {
	m := t.ensure()
	return r3.Vec{X: m.At(0, j), Y: m.At(1, j), Z: m.At(2, j)}
}

// MarshalYAML encodes the transform as four row slices.
func (t Transform) MarshalYAML() (interface{}, error) {
	m := t.ensure()
	rows := make([][]float64, 4)
	for i := range rows {
		rows[i] = []float64{m.At(i, 0), m.At(i, 1), m.At(i, 2), m.At(i, 3)}
	}
	return rows, nil
}

// UnmarshalYAML decodes four row slices back into a transform.
func (t *Transform) UnmarshalYAML(value *yaml.Node) error {
	var rows [][]float64
	if err := value.Decode(&rows); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if len(rows) != 4 {
		return fmt.Errorf("transform: need 4 rows, got %d", len(rows))
	}
	data := make([]float64, 0, 16)
	for i, row := range rows {
		if len(row) != 4 {
			return fmt.Errorf("transform: row %d has %d values, need 4", i, len(row))
		}
		data = append(data, row...)
	}
	parsed, err := NewTransform(data)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// RescaleTranslation returns a copy with the translation column multiplied
// by the given factor. Used when moving a frame between length units.
func (t Transform) RescaleTranslation(factor float64) Transform {
	m := t.ensure()
	d := make([]float64, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			d[i*4+j] = m.At(i, j)
		}
	}
	d[3] *= factor
	d[7] *= factor
	d[11] *= factor
	return Transform{m: mat.NewDense(4, 4, d)}
}
