package transducer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// Transducer is an ordered array of elements plus a global placement
// transform. Elements are stored in the transducer's local frame; Matrix
// maps local element coordinates into the scene frame.
type Transducer struct {
	// ID is the short symbolic name.
	ID string `yaml:"id"`

	// Name is the human-readable display label.
	Name string `yaml:"name"`

	// Elements is the ordered element list, local frame.
	Elements []Element `yaml:"elements"`

	// Frequency is the drive frequency in Hz.
	Frequency float64 `yaml:"frequency"`

	// Units is the length unit of the element geometry.
	Units geom.Unit `yaml:"units"`

	// Matrix places the transducer in the scene frame.
	Matrix geom.Transform `yaml:"matrix"`

	// Attrs carries free-form annotations propagated to persistence.
	Attrs map[string]string `yaml:"attrs,omitempty"`
}

// NumElements returns the element count.
func (t Transducer) NumElements() int { return len(t.Elements) }

// Copy returns a deep copy sharing no storage with the receiver.
func (t Transducer) Copy() Transducer {
	out := t
	out.Elements = make([]Element, len(t.Elements))
	copy(out.Elements, t.Elements)
	for i, e := range t.Elements {
		if e.ImpulseResponse != nil {
			ir := make([]float64, len(e.ImpulseResponse))
			copy(ir, e.ImpulseResponse)
			out.Elements[i].ImpulseResponse = ir
		}
	}
	if t.Attrs != nil {
		out.Attrs = make(map[string]string, len(t.Attrs))
		for k, v := range t.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Rescale returns a copy with all element geometry converted to the target
// unit. The placement matrix translation is rescaled to match.
func (t Transducer) Rescale(to geom.Unit) (Transducer, error) {
	factor, err := geom.Convert(t.Units, to)
	if err != nil {
		return Transducer{}, fmt.Errorf("rescale transducer %q: %w", t.ID, err)
	}
	out := t.Copy()
	out.Units = to
	for i := range out.Elements {
		e, err := out.Elements[i].Rescale(to)
		if err != nil {
			return Transducer{}, err
		}
		out.Elements[i] = e
	}
	out.Matrix = t.Matrix.RescaleTranslation(factor)
	return out, nil
}

// ElementPositions returns a 3xN matrix of element centers in the scene
// frame (local positions mapped through the placement matrix).
func (t Transducer) ElementPositions() *mat.Dense {
	n := len(t.Elements)
	out := mat.NewDense(3, max(n, 1), nil)
	for i, e := range t.Elements {
		v := t.Matrix.Apply(e.Position())
		out.Set(0, i, v.X)
		out.Set(1, i, v.Y)
		out.Set(2, i, v.Z)
	}
	return out
}

// MergeReference selects the common frame used when merging arrays.
type MergeReference string

const (
	// MergeFirst re-expresses every array in the first array's frame.
	MergeFirst MergeReference = "first"

	// MergeMean re-expresses every array in the entrywise-averaged frame,
	// with the rotation block re-orthonormalized.
	MergeMean MergeReference = "mean"
)

// Merge combines the receiver and the given arrays into a single transducer
// whose elements are all expressed in one common reference frame. Element
// indices and pins are renumbered sequentially across the merged list.
//
// With MergeMean the averaged rotation block is Gram-Schmidt
// orthonormalized before use: an entrywise average of rotations is not
// itself a valid frame.
func (t Transducer) Merge(others []Transducer, reference MergeReference) (Transducer, error) {
	all := append([]Transducer{t}, others...)
	for i := range all {
		scaled, err := all[i].Rescale(t.Units)
		if err != nil {
			return Transducer{}, fmt.Errorf("merge: %w", err)
		}
		all[i] = scaled
	}

	var ref geom.Transform
	switch reference {
	case MergeFirst, "":
		ref = all[0].Matrix
	case MergeMean:
		m, err := meanFrame(all)
		if err != nil {
			return Transducer{}, fmt.Errorf("merge: %w", err)
		}
		ref = m
	default:
		return Transducer{}, fmt.Errorf("merge: unknown reference %q", reference)
	}

	refInv, err := ref.InverseOrPseudo()
	if err != nil {
		return Transducer{}, fmt.Errorf("merge: reference frame not invertible: %w", err)
	}

	out := all[0].Copy()
	out.ID = t.ID + "_merged"
	out.Matrix = ref
	out.Elements = nil
	idx := 0
	for _, xdc := range all {
		// local -> world -> reference-local for each element.
		rel := refInv.Mul(xdc.Matrix)
		for _, e := range xdc.Elements {
			x, y, z, az, el, roll := MatrixToAngles(rel.Mul(e.Matrix()))
			moved := e
			moved.X, moved.Y, moved.Z = x, y, z
			moved.Az, moved.El, moved.Roll = az, el, roll
			moved.Index = idx
			moved.Pin = idx
			out.Elements = append(out.Elements, moved)
			idx++
		}
	}
	return out, nil
}

// meanFrame averages the placement matrices of all arrays and
// orthonormalizes the rotation block via Gram-Schmidt.
func meanFrame(all []Transducer) (geom.Transform, error) {
	var sum [16]float64
	for _, xdc := range all {
		for i, v := range xdc.Matrix.Raw() {
			sum[i] += v
		}
	}
	n := float64(len(all))
	for i := range sum {
		sum[i] /= n
	}

	u := r3.Vec{X: sum[0], Y: sum[4], Z: sum[8]}
	v := r3.Vec{X: sum[1], Y: sum[5], Z: sum[9]}
	w := r3.Vec{X: sum[2], Y: sum[6], Z: sum[10]}
	u, v, w, err := gramSchmidt(u, v, w)
	if err != nil {
		return geom.Transform{}, err
	}
	return geom.FromRotationTranslation([]float64{
		u.X, v.X, w.X,
		u.Y, v.Y, w.Y,
		u.Z, v.Z, w.Z,
	}, r3.Vec{X: sum[3], Y: sum[7], Z: sum[11]})
}

// gramSchmidt orthonormalizes three basis vectors in order.
func gramSchmidt(a, b, c r3.Vec) (u, v, w r3.Vec, err error) {
	na := r3.Norm(a)
	if na == 0 {
		return u, v, w, fmt.Errorf("degenerate averaged frame: zero basis vector")
	}
	u = r3.Scale(1/na, a)
	b = r3.Sub(b, r3.Scale(dot(b, u), u))
	nb := r3.Norm(b)
	if nb == 0 {
		return u, v, w, fmt.Errorf("degenerate averaged frame: collinear basis")
	}
	v = r3.Scale(1/nb, b)
	c = r3.Sub(c, r3.Scale(dot(c, u), u))
	c = r3.Sub(c, r3.Scale(dot(c, v), v))
	nc := r3.Norm(c)
	if nc == 0 {
		return u, v, w, fmt.Errorf("degenerate averaged frame: coplanar basis")
	}
	w = r3.Scale(1/nc, c)
	return u, v, w, nil
}

// MatrixArray synthesizes a planar rows x cols grid array centered on the
// local origin with the given element pitch, all elements facing +z.
func MatrixArray(id string, rows, cols int, pitch, width, length, frequency float64, units geom.Unit) (Transducer, error) {
	if rows < 1 || cols < 1 {
		return Transducer{}, fmt.Errorf("matrix array %q: rows and cols must be >= 1", id)
	}
	if !geom.ValidUnit(units) {
		return Transducer{}, fmt.Errorf("matrix array %q: %w: %q", id, geom.ErrInvalidUnit, units)
	}
	xdc := Transducer{
		ID:        id,
		Name:      id,
		Frequency: frequency,
		Units:     units,
		Matrix:    geom.Identity(),
	}
	x0 := -pitch * float64(cols-1) / 2
	y0 := -pitch * float64(rows-1) / 2
	idx := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			xdc.Elements = append(xdc.Elements, Element{
				Index:  idx,
				X:      x0 + pitch*float64(c),
				Y:      y0 + pitch*float64(r),
				Width:  width,
				Length: length,
				Pin:    idx,
				Units:  units,
			})
			idx++
		}
	}
	return xdc, nil
}
