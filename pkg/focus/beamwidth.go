package focus

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/volume"
)

// ErrInsufficientPoints is returned by the raw hull computation when fewer
// than d+1 non-degenerate points are available.
var ErrInsufficientPoints = errors.New("insufficient points for convex hull")

// BeamwidthResult is the outcome of a beamwidth measurement.
type BeamwidthResult struct {
	// Width is the maximum pairwise distance between hull vertices
	// projected onto the requested dims. NaN when the hull stayed
	// degenerate after the jitter retry; Reason then says why.
	Width float64

	// FitMask flags the voxels within Width/2 of the focus along the
	// requested dims. Nil when Width is NaN.
	FitMask []bool

	// Reason documents a degenerate outcome instead of an error.
	Reason string
}

// Beamwidth measures the extent of the region where v exceeds cutoff, near
// the focus, along the requested world axes (dims holds one or two of
// 0, 1, 2). When mask is non-nil only voxels it admits are considered.
//
// Degenerate input (too few voxels above cutoff, or a numerically flat
// hull) is retried once with the inlier points jittered by at most half the
// grid spacing; if the hull is still degenerate the result carries
// Width = NaN and a Reason rather than an error.
func Beamwidth(v *volume.Volume, f geom.Point, cutoff float64, dims []int, mask []bool) (BeamwidthResult, error) {
	if len(dims) < 1 || len(dims) > 2 {
		return BeamwidthResult{}, fmt.Errorf("beamwidth: need 1 or 2 dims, got %d", len(dims))
	}
	for _, d := range dims {
		if d < 0 || d > 2 {
			return BeamwidthResult{}, fmt.Errorf("beamwidth: dim %d out of range", d)
		}
	}
	if mask != nil && len(mask) != len(v.Data) {
		return BeamwidthResult{}, fmt.Errorf("beamwidth: %w: mask length %d vs %d voxels",
			geom.ErrDimensionMismatch, len(mask), len(v.Data))
	}

	grid, err := v.Grid()
	if err != nil {
		return BeamwidthResult{}, fmt.Errorf("beamwidth: %w", err)
	}

	var pts [][2]float64
	for i, val := range v.Data {
		if val <= cutoff || (mask != nil && !mask[i]) {
			continue
		}
		pts = append(pts, project(grid.Vec(i), dims))
	}

	width, err := hullWidth(pts, len(dims))
	if errors.Is(err, ErrInsufficientPoints) {
		// One retry with the inliers perturbed by up to half the grid
		// spacing; fixed seed keeps repeated analyses reproducible.
		rng := rand.New(rand.NewSource(1))
		jitter := maxSpacing(v) / 2
		jittered := make([][2]float64, len(pts))
		for i, p := range pts {
			jittered[i] = [2]float64{
				p[0] + (rng.Float64()*2-1)*jitter,
				p[1] + (rng.Float64()*2-1)*jitter,
			}
		}
		width, err = hullWidth(jittered, len(dims))
		if errors.Is(err, ErrInsufficientPoints) {
			return BeamwidthResult{
				Width:  math.NaN(),
				Reason: fmt.Sprintf("convex hull degenerate after jitter retry: %d voxels above cutoff %g", len(pts), cutoff),
			}, nil
		}
	}
	if err != nil {
		return BeamwidthResult{}, fmt.Errorf("beamwidth: %w", err)
	}

	scaled, err := f.Rescale(v.Units)
	if err != nil {
		return BeamwidthResult{}, fmt.Errorf("beamwidth: %w", err)
	}
	fp := project(scaled.Vec(0), dims)
	fit := make([]bool, len(v.Data))
	for i := range v.Data {
		p := project(grid.Vec(i), dims)
		dx := p[0] - fp[0]
		dy := p[1] - fp[1]
		fit[i] = math.Sqrt(dx*dx+dy*dy) <= width/2
	}
	return BeamwidthResult{Width: width, FitMask: fit}, nil
}

// project drops the coordinates outside dims; with one dim the second
// component stays zero.
func project(v r3.Vec, dims []int) [2]float64 {
	comps := [3]float64{v.X, v.Y, v.Z}
	var out [2]float64
	for i, d := range dims {
		out[i] = comps[d]
	}
	return out
}

// hullWidth computes the maximum pairwise distance between the convex hull
// vertices of pts. With d == 1 the hull is the 1-D extent; with d == 2 the
// monotone-chain hull is used.
func hullWidth(pts [][2]float64, d int) (float64, error) {
	if d == 1 {
		return extentWidth(pts)
	}
	hull, err := convexHull(pts)
	if err != nil {
		return 0, err
	}
	var best float64
	for i := 0; i < len(hull); i++ {
		for j := i + 1; j < len(hull); j++ {
			dx := hull[i][0] - hull[j][0]
			dy := hull[i][1] - hull[j][1]
			if d2 := dx*dx + dy*dy; d2 > best {
				best = d2
			}
		}
	}
	return math.Sqrt(best), nil
}

func extentWidth(pts [][2]float64) (float64, error) {
	if len(pts) < 2 {
		return 0, fmt.Errorf("%w: need 2 points for a 1-D extent, got %d", ErrInsufficientPoints, len(pts))
	}
	lo, hi := pts[0][0], pts[0][0]
	for _, p := range pts[1:] {
		if p[0] < lo {
			lo = p[0]
		}
		if p[0] > hi {
			hi = p[0]
		}
	}
	if hi == lo {
		return 0, fmt.Errorf("%w: all points coincide", ErrInsufficientPoints)
	}
	return hi - lo, nil
}

// convexHull is Andrew's monotone chain over unique points, returned
// counter-clockwise without the closing vertex.
func convexHull(pts [][2]float64) ([][2]float64, error) {
	uniq := uniquePoints(pts)
	if len(uniq) < 3 {
		return nil, fmt.Errorf("%w: need 3 distinct points, got %d", ErrInsufficientPoints, len(uniq))
	}
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i][0] != uniq[j][0] {
			return uniq[i][0] < uniq[j][0]
		}
		return uniq[i][1] < uniq[j][1]
	})

	var lower, upper [][2]float64
	for _, p := range uniq {
		for len(lower) >= 2 && cross2(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(uniq) - 1; i >= 0; i-- {
		p := uniq[i]
		for len(upper) >= 2 && cross2(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil, fmt.Errorf("%w: hull collapsed to %d vertices", ErrInsufficientPoints, len(hull))
	}
	return hull, nil
}

func cross2(o, a, b [2]float64) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func uniquePoints(pts [][2]float64) [][2]float64 {
	seen := make(map[[2]float64]struct{}, len(pts))
	out := make([][2]float64, 0, len(pts))
	for _, p := range pts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// maxSpacing returns the largest axis spacing of the volume grid.
func maxSpacing(v *volume.Volume) float64 {
	var best float64
	for d := 0; d < 3; d++ {
		if s := v.Coords[d].Spacing(); s > best {
			best = s
		}
	}
	return best
}
