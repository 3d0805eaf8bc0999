package beamform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// FocalPattern expands one nominal target into the ordered sequence of
// steered sub-foci a treatment actually drives. Closed family: SinglePoint
// and Wheel.
type FocalPattern interface {
	// Targets returns the steered target points derived from target. The
	// returned points never alias the input.
	Targets(target geom.Point) ([]geom.Point, error)

	// NumFoci returns the number of targets the pattern produces.
	NumFoci() int

	focalPattern()
}

// SinglePoint drives the nominal target itself.
type SinglePoint struct{}

func (SinglePoint) focalPattern() {}

// NumFoci implements FocalPattern.
func (SinglePoint) NumFoci() int { return 1 }

// Targets implements FocalPattern with a deep copy of the input.
func (SinglePoint) Targets(target geom.Point) ([]geom.Point, error) {
	return []geom.Point{target.Copy()}, nil
}

// Wheel steers the beam around the nominal target: NumSpokes points evenly
// spaced in azimuth at SpokeRadius in the transducer x/y plane at the
// target's depth, with the center point included first when Center is set.
type Wheel struct {
	// Center includes the nominal target itself as the first focus.
	Center bool `yaml:"center"`

	// NumSpokes is the number of radial offsets.
	NumSpokes int `yaml:"num_spokes"`

	// SpokeRadius is the in-plane offset radius, in Units.
	SpokeRadius float64 `yaml:"spoke_radius"`

	// Units is the length unit of SpokeRadius.
	Units geom.Unit `yaml:"units"`
}

func (Wheel) focalPattern() {}

// NumFoci implements FocalPattern.
func (w Wheel) NumFoci() int {
	n := w.NumSpokes
	if w.Center {
		n++
	}
	return n
}

// Targets implements FocalPattern. Spoke k sits at angle 2*pi*k/NumSpokes
// for k = 0..NumSpokes-1, radius rescaled into the target's units.
func (w Wheel) Targets(target geom.Point) ([]geom.Point, error) {
	if w.NumSpokes < 1 {
		return nil, fmt.Errorf("wheel pattern: need at least 1 spoke, got %d", w.NumSpokes)
	}
	factor, err := geom.Convert(w.Units, target.Units)
	if err != nil {
		return nil, fmt.Errorf("wheel pattern: %w", err)
	}
	radius := w.SpokeRadius * factor
	center := target.Vec(0)

	out := make([]geom.Point, 0, w.NumFoci())
	if w.Center {
		c := target.Copy()
		c.ID = target.ID + "_center"
		out = append(out, c)
	}
	for k := 0; k < w.NumSpokes; k++ {
		theta := 2 * math.Pi * float64(k) / float64(w.NumSpokes)
		p, err := geom.NewPoint(
			fmt.Sprintf("%s_spoke%d", target.ID, k),
			fmt.Sprintf("%s spoke %d", target.Name, k),
			r3.Vec{
				X: center.X + radius*math.Cos(theta),
				Y: center.Y + radius*math.Sin(theta),
				Z: center.Z,
			},
			target.Units,
		)
		if err != nil {
			return nil, fmt.Errorf("wheel pattern: %w", err)
		}
		p.Color = target.Color
		p.Radius = target.Radius
		out = append(out, p)
	}
	return out, nil
}
