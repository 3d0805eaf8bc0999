package beamform

import (
	"fmt"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/transducer"
)

// ApodMethod computes per-element amplitude weights in [0, 1]. Like
// DelayMethod it is a closed family; Uniform is the only variant in the
// core, further window shapes plug in beside it.
type ApodMethod interface {
	// CalcApod returns one weight per element of xdc for the given focus.
	CalcApod(xdc transducer.Transducer, f geom.Point) ([]float64, error)

	apodMethod()
}

// Uniform weights every element at full amplitude.
type Uniform struct{}

func (Uniform) apodMethod() {}

// CalcApod implements ApodMethod with an all-ones weight vector.
func (Uniform) CalcApod(xdc transducer.Transducer, f geom.Point) ([]float64, error) {
	if xdc.NumElements() == 0 {
		return nil, fmt.Errorf("uniform apodization: transducer %q has no elements", xdc.ID)
	}
	out := make([]float64, xdc.NumElements())
	for i := range out {
		out[i] = 1
	}
	return out, nil
}
