package volume

import (
	"fmt"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// GridOrder selects the dimension convention for edge grids.
type GridOrder string

const (
	// OrderND follows ndgrid conventions: dimension d varies with axis d.
	OrderND GridOrder = "ndgrid"

	// OrderMesh follows meshgrid conventions: the first two dimensions are
	// swapped.
	OrderMesh GridOrder = "meshgrid"
)

// EdgeAxis returns the voxel-boundary coordinates along one axis: midpoints
// between adjacent samples, extrapolated by half the end spacing at both
// ends. A length-n axis yields n+1 edges.
func (v *Volume) EdgeAxis(dim int) (geom.Axis, error) {
	if dim < 0 || dim > 2 {
		return geom.Axis{}, fmt.Errorf("edge axis: dimension %d out of range", dim)
	}
	ax := v.Coords[dim]
	n := ax.Length()
	edges := make([]float64, n+1)
	if n == 1 {
		// A single-sample axis gets a unit-less half voxel on either side.
		edges[0] = ax.Values[0] - 0.5
		edges[1] = ax.Values[0] + 0.5
	} else {
		for i := 1; i < n; i++ {
			edges[i] = (ax.Values[i-1] + ax.Values[i]) / 2
		}
		edges[0] = ax.Values[0] - (ax.Values[1]-ax.Values[0])/2
		edges[n] = ax.Values[n-1] + (ax.Values[n-1]-ax.Values[n-2])/2
	}
	out := ax.Copy()
	out.Values = edges
	out.Name = ax.Name + " edges"
	return out, nil
}

// Edges builds the voxel-boundary coordinate grid for rendering and
// geometry collaborators. When transform is non-nil every edge point is
// mapped through it (composed after the volume's own frame matrix by the
// caller if desired).
func (v *Volume) Edges(order GridOrder, transform *geom.Transform) (*geom.Grid3, error) {
	var axes [3]geom.Axis
	for d := 0; d < 3; d++ {
		ax, err := v.EdgeAxis(d)
		if err != nil {
			return nil, err
		}
		axes[d] = ax
	}
	switch order {
	case OrderMesh:
		return geom.MeshGrid(axes, transform)
	case OrderND, "":
		return geom.NDGrid(axes, transform)
	default:
		return nil, fmt.Errorf("edges: unknown grid order %q", order)
	}
}
