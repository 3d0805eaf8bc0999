package beamform

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/internal/parallel"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/transducer"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/volume"
)

// DefaultRaySpacing is the ray integration step in meters when a Raytraced
// method does not specify one.
const DefaultRaySpacing = 1e-4

// DelayMethod computes per-element time delays steering one focus. It is a
// closed family: Direct and Raytraced are the only variants.
//
// Every method honors the normalization invariant: the last-arriving
// element gets zero delay and every other delay is non-negative.
type DelayMethod interface {
	// CalcDelays returns one delay in seconds per element of xdc.
	CalcDelays(xdc transducer.Transducer, f geom.Point, mats Materials, workers int) ([]float64, error)

	delayMethod()
}

// Direct computes delays from straight-ray time of flight through a single
// homogeneous sound speed.
type Direct struct {
	// C0 is the sound speed in m/s. When zero the reference value of the
	// "sound_speed" material volume is used instead.
	C0 float64 `yaml:"c0,omitempty"`
}

func (Direct) delayMethod() {}

// CalcDelays implements DelayMethod: tof_i = ||focus - elem_i|| / c and
// delay_i = max(tof) - tof_i, so min(delay) == 0 and all delays >= 0.
func (d Direct) CalcDelays(xdc transducer.Transducer, f geom.Point, mats Materials, workers int) ([]float64, error) {
	if xdc.NumElements() == 0 {
		return nil, fmt.Errorf("direct delays: transducer %q has no elements", xdc.ID)
	}
	c := d.C0
	if c == 0 {
		ref, err := mats.RefSoundSpeed()
		if err != nil {
			return nil, fmt.Errorf("direct delays: %w", err)
		}
		c = ref
	}
	if c <= 0 {
		return nil, fmt.Errorf("direct delays: sound speed must be positive, got %g", c)
	}

	xm, err := xdc.Rescale(geom.Meters)
	if err != nil {
		return nil, fmt.Errorf("direct delays: %w", err)
	}
	fm, err := f.Rescale(geom.Meters)
	if err != nil {
		return nil, fmt.Errorf("direct delays: %w", err)
	}
	target := fm.Vec(0)

	tof := make([]float64, len(xm.Elements))
	global := xm.Matrix
	for i, e := range xm.Elements {
		tof[i] = e.DistanceToPoint(target, &global) / c
	}
	return normalizeDelays(tof), nil
}

// Raytraced computes delays by integrating time of flight along the
// straight element-to-focus ray through a heterogeneous "sound_speed"
// volume.
type Raytraced struct {
	// InterpMethod selects the grid interpolation kernel used to sample
	// the sound-speed volume along the ray.
	InterpMethod volume.InterpMethod `yaml:"interp_method,omitempty"`

	// InterpSpacing is the sampling step along the ray in meters; zero
	// selects DefaultRaySpacing.
	InterpSpacing float64 `yaml:"interp_spacing,omitempty"`
}

func (Raytraced) delayMethod() {}

// CalcDelays implements DelayMethod. Each ray is subdivided into
// ceil(length/spacing) steps and the sound speed sampled at the step
// points; samples outside the volume extent become NaN and are excluded
// from the mean, so a ray clipping the volume edge is averaged over its
// in-bounds portion only. A ray with no in-bounds sample at all fails with
// volume.ErrOutOfBounds.
func (r Raytraced) CalcDelays(xdc transducer.Transducer, f geom.Point, mats Materials, workers int) ([]float64, error) {
	if xdc.NumElements() == 0 {
		return nil, fmt.Errorf("raytraced delays: transducer %q has no elements", xdc.ID)
	}
	method := r.InterpMethod
	if method == "" {
		method = volume.Linear
	}
	spacing := r.InterpSpacing
	if spacing == 0 {
		spacing = DefaultRaySpacing
	}
	if spacing < 0 {
		return nil, fmt.Errorf("raytraced delays: spacing must be positive, got %g", spacing)
	}

	speed, err := mats.SoundSpeed()
	if err != nil {
		return nil, fmt.Errorf("raytraced delays: %w", err)
	}
	speedM, err := speed.Rescale(geom.Meters)
	if err != nil {
		return nil, fmt.Errorf("raytraced delays: %w", err)
	}
	toLocal, err := speedM.Matrix.InverseOrPseudo()
	if err != nil {
		return nil, fmt.Errorf("raytraced delays: sound_speed frame: %w", err)
	}

	xm, err := xdc.Rescale(geom.Meters)
	if err != nil {
		return nil, fmt.Errorf("raytraced delays: %w", err)
	}
	fm, err := f.Rescale(geom.Meters)
	if err != nil {
		return nil, fmt.Errorf("raytraced delays: %w", err)
	}
	target := fm.Vec(0)
	global := xm.Matrix

	tof := make([]float64, len(xm.Elements))
	errs := make([]error, len(xm.Elements))
	var errOnce sync.Once
	var firstErr error
	parallel.For(len(xm.Elements), workers, func(i int) {
		t, err := rayTime(speedM, toLocal, global.Apply(xm.Elements[i].Position()), target, spacing, method)
		if err != nil {
			errs[i] = err
			errOnce.Do(func() { firstErr = err })
			return
		}
		tof[i] = t
	})
	if firstErr != nil {
		for i, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("raytraced delays: element %d: %w", xm.Elements[i].Index, err)
			}
		}
	}
	return normalizeDelays(tof), nil
}

// rayTime integrates the travel time along the straight path from start to
// end, both in world meters.
func rayTime(speed *volume.Volume, toLocal geom.Transform, start, end r3.Vec, spacing float64, method volume.InterpMethod) (float64, error) {
	path := r3.Sub(end, start)
	length := r3.Norm(path)
	if length == 0 {
		return 0, nil
	}
	steps := int(math.Ceil(length / spacing))

	var sum float64
	var count int
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		p := toLocal.Apply(r3.Add(start, r3.Scale(t, path)))
		c, err := speed.Interp(p.X, p.Y, p.Z, method, volume.OOBNaN)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(c) {
			continue
		}
		sum += c
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("ray from (%g,%g,%g): %w", start.X, start.Y, start.Z, volume.ErrOutOfBounds)
	}
	mean := sum / float64(count)
	if mean <= 0 {
		return 0, fmt.Errorf("ray mean sound speed not positive: %g", mean)
	}
	return length / mean, nil
}

// normalizeDelays converts times of flight into non-negative delays with
// the last-arriving element at zero: delay_i = max(tof) - tof_i.
func normalizeDelays(tof []float64) []float64 {
	out := make([]float64, len(tof))
	latest := floats.Max(tof)
	for i, t := range tof {
		out[i] = latest - t
	}
	return out
}
