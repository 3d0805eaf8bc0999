package volume

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/internal/parallel"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// TransformOptions tune resampling. The zero value selects trilinear
// interpolation, NaN out-of-bounds fill, and one worker per CPU.
type TransformOptions struct {
	// Method is the interpolation kernel.
	Method InterpMethod

	// OOB is the out-of-bounds sample policy.
	OOB OOBPolicy

	// Workers bounds the resampling goroutines; <= 0 means NumCPU.
	Workers int
}

// Transform resamples the volume onto a destination grid.
//
// target spans the destination grid and matrix maps destination grid
// coordinates into the world frame. For every destination grid point the
// routine computes its location in the source volume's local frame,
// source.Matrix^-1 * matrix * p, and interpolates the source data there.
// When the source frame matrix has no true inverse the pseudo-inverse
// (M'M)^-1 M' is used.
//
// The source volume is never mutated; the result is a new Volume with
// Coords = target and Matrix = matrix.
//
// Returns:
//   - The resampled volume.
//   - ErrOutOfBounds under OOBError when any destination point falls
//     outside the source extent; ErrUnknownMethod for a bad kernel tag.
func (v *Volume) Transform(target [3]geom.Axis, matrix geom.Transform, opts *TransformOptions) (*Volume, error) {
	var o TransformOptions
	if opts != nil {
		o = *opts
	}
	if o.Method == "" {
		o.Method = Linear
	}

	srcInv, err := v.Matrix.InverseOrPseudo()
	if err != nil {
		return nil, fmt.Errorf("transform volume %q: %w", v.ID, err)
	}
	total := srcInv.Mul(matrix)

	out, err := New(v.ID, v.Name, make([]float64, target[0].Length()*target[1].Length()*target[2].Length()), target, matrix, v.Units)
	if err != nil {
		return nil, fmt.Errorf("transform volume %q: %w", v.ID, err)
	}
	out.Attrs = cloneAttrs(v.Attrs)

	n1, n2 := target[1].Length(), target[2].Length()
	errs := make([]error, target[0].Length())
	parallel.For(target[0].Length(), o.Workers, func(i int) {
		for j := 0; j < n1; j++ {
			for k := 0; k < n2; k++ {
				p := total.Apply(r3.Vec{
					X: target[0].Values[i],
					Y: target[1].Values[j],
					Z: target[2].Values[k],
				})
				val, err := v.Interp(p.X, p.Y, p.Z, o.Method, o.OOB)
				if err != nil {
					if errs[i] == nil {
						errs[i] = err
					}
					return
				}
				out.Data[(i*n1+j)*n2+k] = val
			}
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("transform volume %q: %w", v.ID, err)
		}
	}
	return out, nil
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
