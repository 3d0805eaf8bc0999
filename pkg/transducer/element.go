// Package transducer models ultrasound transducer arrays: individual
// elements with position and orientation, and whole arrays with a global
// placement transform. Element geometry feeds time-of-flight and
// simulation-grid sizing downstream.
package transducer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// Element is a single transducer element in the array's local frame.
//
// Orientation is stored as three rotation angles in radians: azimuth about
// the Y axis, elevation about the azimuth-rotated X' axis, and roll about
// the twice-rotated Z'' axis.
type Element struct {
	// Index is the element's position in the array ordering.
	Index int `yaml:"index"`

	// X, Y, Z locate the element center in the array's local frame.
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`

	// Az, El, Roll orient the element, radians.
	Az   float64 `yaml:"az"`
	El   float64 `yaml:"el"`
	Roll float64 `yaml:"roll"`

	// Width and Length are the element aperture dimensions.
	Width  float64 `yaml:"width"`
	Length float64 `yaml:"length"`

	// ImpulseResponse is the element's sampled impulse response, with
	// ImpulseDt seconds between samples. Consumed by the external solver.
	ImpulseResponse []float64 `yaml:"impulse_response,omitempty"`
	ImpulseDt       float64   `yaml:"impulse_dt,omitempty"`

	// Pin is the hardware channel the element is wired to.
	Pin int `yaml:"pin"`

	// Units is the length unit of X, Y, Z, Width, and Length.
	Units geom.Unit `yaml:"units"`
}

// Matrix derives the element's local-to-array transform from its position
// and orientation: M = [Raz*Rel*Rroll | t] with Raz about Y, Rel about the
// rotated X', and Rroll about the twice-rotated Z''.
func (e Element) Matrix() geom.Transform {
	rot := geom.RotationY(e.Az).Mul(geom.RotationX(e.El)).Mul(geom.RotationZ(e.Roll))
	return geom.Translate(r3.Vec{X: e.X, Y: e.Y, Z: e.Z}).Mul(rot)
}

// MatrixToAngles recovers (x, y, z, az, el, roll) from an element transform.
// It is the documented inverse of Element.Matrix:
//
//	az   = atan2(M02, M22)
//	el   = -atan2(M12, hypot(M22, M02))
//	roll = from the projection of matrix column 0 onto the az/el-rotated basis
//
// The recovery is exact except at the gimbal-lock singularity el = +-pi/2,
// where az and roll are not independently observable; callers must avoid
// elevations at exactly +-pi/2.
func MatrixToAngles(m geom.Transform) (x, y, z, az, el, roll float64) {
	t := m.Translation()
	x, y, z = t.X, t.Y, t.Z

	az = math.Atan2(m.At(0, 2), m.At(2, 2))
	el = -math.Atan2(m.At(1, 2), math.Hypot(m.At(2, 2), m.At(0, 2)))

	// Rebuild the az/el-rotated basis and measure how far column 0 has
	// rolled away from its X'' direction.
	azel := geom.RotationY(az).Mul(geom.RotationX(el))
	xref := azel.Column(0)
	yref := azel.Column(1)
	col0 := m.Column(0)
	roll = math.Atan2(dot(col0, yref), dot(col0, xref))
	return x, y, z, az, el, roll
}

func dot(a, b r3.Vec) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// Position returns the element center as a vector in the array local frame.
func (e Element) Position() r3.Vec { return r3.Vec{X: e.X, Y: e.Y, Z: e.Z} }

// DistanceToPoint returns the Euclidean distance from the element center to
// target. When global is non-nil the element is first mapped into the
// target's frame through it (typically the transducer's placement matrix).
func (e Element) DistanceToPoint(target r3.Vec, global *geom.Transform) float64 {
	pos := e.Position()
	if global != nil {
		pos = global.Apply(pos)
	}
	d := r3.Sub(target, pos)
	return r3.Norm(d)
}

// AngleToPoint returns the angle in radians between the element's
// out-of-plane normal (matrix column 2) and the direction from the element
// center to target. When global is non-nil both the center and the normal
// are mapped through it first.
func (e Element) AngleToPoint(target r3.Vec, global *geom.Transform) float64 {
	m := e.Matrix()
	pos := e.Position()
	normal := m.Column(2)
	if global != nil {
		pos = global.Apply(pos)
		normal = global.ApplyDirection(normal)
	}
	to := r3.Sub(target, pos)
	nt := r3.Norm(to)
	nn := r3.Norm(normal)
	if nt == 0 || nn == 0 {
		return 0
	}
	cos := dot(to, normal) / (nt * nn)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}

// Rescale returns a copy with positions and aperture dimensions converted
// to the target unit. Angles are unit-free and unchanged.
func (e Element) Rescale(to geom.Unit) (Element, error) {
	factor, err := geom.Convert(e.Units, to)
	if err != nil {
		return Element{}, fmt.Errorf("rescale element %d: %w", e.Index, err)
	}
	out := e
	out.Units = to
	out.X *= factor
	out.Y *= factor
	out.Z *= factor
	out.Width *= factor
	out.Length *= factor
	if e.ImpulseResponse != nil {
		out.ImpulseResponse = make([]float64, len(e.ImpulseResponse))
		copy(out.ImpulseResponse, e.ImpulseResponse)
	}
	return out, nil
}
