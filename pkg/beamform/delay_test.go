package beamform

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/transducer"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/volume"
)

func testArray(t *testing.T) transducer.Transducer {
	t.Helper()
	xdc, err := transducer.MatrixArray("arr", 4, 4, 5, 4.5, 4.5, 400e3, geom.Millimeters)
	require.NoError(t, err)
	return xdc
}

func testTarget(t *testing.T, x, y, z float64) geom.Point {
	t.Helper()
	p, err := geom.NewPoint("target", "target", r3.Vec{X: x, Y: y, Z: z}, geom.Millimeters)
	require.NoError(t, err)
	return p
}

// uniformSpeedMaterials builds a sound-speed volume of constant value c
// spanning the array and target, axes in millimeters.
func uniformSpeedMaterials(t *testing.T, c float64) Materials {
	t.Helper()
	var axes [3]geom.Axis
	for d, id := range []string{"x", "y", "z"} {
		lo, hi := -30.0, 30.0
		if d == 2 {
			lo, hi = -10, 70
		}
		ax, err := geom.NewAxis(id, id, lo, hi, 41, geom.Millimeters)
		require.NoError(t, err)
		axes[d] = ax
	}
	data := make([]float64, 41*41*41)
	for i := range data {
		data[i] = c
	}
	v, err := volume.New(MaterialSoundSpeed, "sound speed", data, axes, geom.Identity(), geom.Millimeters)
	require.NoError(t, err)
	v.Attrs = map[string]string{RefValueAttr: fmt.Sprintf("%g", c)}
	return Materials{MaterialSoundSpeed: v}
}

func TestDirectDelayInvariants(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 3, -2, 50)

	delays, err := Direct{C0: 1500}.CalcDelays(xdc, target, nil, 1)
	require.NoError(t, err)
	require.Len(t, delays, 16)

	minDelay := math.Inf(1)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 0.0)
		minDelay = math.Min(minDelay, d)
	}
	assert.Equal(t, 0.0, minDelay, "last-arriving element must have zero delay")

	// An off-axis target must produce a non-flat profile.
	maxDelay := 0.0
	for _, d := range delays {
		maxDelay = math.Max(maxDelay, d)
	}
	assert.Greater(t, maxDelay, 0.0)
}

func TestDirectDelayPermutationEquivariance(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 5, 1, 40)

	delays, err := Direct{C0: 1500}.CalcDelays(xdc, target, nil, 1)
	require.NoError(t, err)

	perm := rand.New(rand.NewSource(7)).Perm(len(xdc.Elements))
	shuffled := xdc.Copy()
	for i, p := range perm {
		shuffled.Elements[i] = xdc.Elements[p]
	}
	shuffledDelays, err := Direct{C0: 1500}.CalcDelays(shuffled, target, nil, 1)
	require.NoError(t, err)

	for i, p := range perm {
		assert.InDelta(t, delays[p], shuffledDelays[i], 1e-15,
			"delay must depend on element position only")
	}
}

func TestDirectDelayOnAxisSymmetry(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 0, 0, 50)

	delays, err := Direct{C0: 1500}.CalcDelays(xdc, target, nil, 1)
	require.NoError(t, err)

	// The 4x4 grid is symmetric about the axis: corner elements share a
	// delay, as do the four inner elements.
	assert.InDelta(t, delays[0], delays[3], 1e-15)
	assert.InDelta(t, delays[0], delays[12], 1e-15)
	assert.InDelta(t, delays[0], delays[15], 1e-15)
	assert.InDelta(t, delays[5], delays[10], 1e-15)
}

func TestDirectDelayMaterialLookup(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 0, 0, 50)
	mats := uniformSpeedMaterials(t, 1540)

	fromMats, err := Direct{}.CalcDelays(xdc, target, mats, 1)
	require.NoError(t, err)
	explicit, err := Direct{C0: 1540}.CalcDelays(xdc, target, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, explicit, fromMats)

	_, err = Direct{}.CalcDelays(xdc, target, Materials{}, 1)
	assert.ErrorIs(t, err, ErrMaterialNotFound)
}

func TestRaytracedMatchesDirectInUniformField(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 4, -3, 45)
	const c = 1520.0
	mats := uniformSpeedMaterials(t, c)

	direct, err := Direct{C0: c}.CalcDelays(xdc, target, mats, 1)
	require.NoError(t, err)
	rt, err := Raytraced{InterpMethod: volume.Linear, InterpSpacing: 5e-4}.CalcDelays(xdc, target, mats, 2)
	require.NoError(t, err)

	require.Len(t, rt, len(direct))
	for i := range direct {
		assert.InDelta(t, direct[i], rt[i], 1e-9,
			"uniform-field raytrace must reproduce direct time of flight")
	}
}

func TestRaytracedDelayInvariants(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 0, 0, 50)
	mats := uniformSpeedMaterials(t, 1500)

	delays, err := Raytraced{}.CalcDelays(xdc, target, mats, 0)
	require.NoError(t, err)

	minDelay := math.Inf(1)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 0.0)
		minDelay = math.Min(minDelay, d)
	}
	assert.Equal(t, 0.0, minDelay)
}

func TestRaytracedRequiresSoundSpeed(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 0, 0, 50)

	_, err := Raytraced{}.CalcDelays(xdc, target, nil, 1)
	assert.ErrorIs(t, err, ErrMaterialNotFound)
}

func TestRaytracedPathOutsideVolume(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 0, 0, 50)

	// A sound-speed volume nowhere near the rays: every sample is NaN and
	// the integration must fail with the boundary error.
	var axes [3]geom.Axis
	for d, id := range []string{"x", "y", "z"} {
		ax, err := geom.NewAxis(id, id, 900, 910, 3, geom.Millimeters)
		require.NoError(t, err)
		axes[d] = ax
	}
	data := make([]float64, 27)
	for i := range data {
		data[i] = 1500
	}
	v, err := volume.New(MaterialSoundSpeed, "sound speed", data, axes, geom.Identity(), geom.Millimeters)
	require.NoError(t, err)

	_, err = Raytraced{}.CalcDelays(xdc, target, Materials{MaterialSoundSpeed: v}, 1)
	assert.ErrorIs(t, err, volume.ErrOutOfBounds)
}

func TestRaytracedPartialPathAveragesInBounds(t *testing.T) {
	xdc := testArray(t)
	target := testTarget(t, 0, 0, 50)
	const c = 1500.0

	// The volume covers only the deeper half of each ray; the mean is
	// taken over the in-bounds samples, which still see the constant c.
	var axes [3]geom.Axis
	for d, id := range []string{"x", "y", "z"} {
		lo, hi := -30.0, 30.0
		if d == 2 {
			lo, hi = 25, 70
		}
		ax, err := geom.NewAxis(id, id, lo, hi, 31, geom.Millimeters)
		require.NoError(t, err)
		axes[d] = ax
	}
	data := make([]float64, 31*31*31)
	for i := range data {
		data[i] = c
	}
	v, err := volume.New(MaterialSoundSpeed, "sound speed", data, axes, geom.Identity(), geom.Millimeters)
	require.NoError(t, err)

	rt, err := Raytraced{}.CalcDelays(xdc, target, Materials{MaterialSoundSpeed: v}, 1)
	require.NoError(t, err)
	direct, err := Direct{C0: c}.CalcDelays(xdc, target, nil, 1)
	require.NoError(t, err)
	for i := range direct {
		assert.InDelta(t, direct[i], rt[i], 1e-9)
	}
}

func TestMaterialsRefValue(t *testing.T) {
	mats := uniformSpeedMaterials(t, 1540)
	c, err := mats.RefSoundSpeed()
	require.NoError(t, err)
	assert.Equal(t, 1540.0, c)

	v, _ := mats.SoundSpeed()
	v.Attrs[RefValueAttr] = "soft"
	_, err = mats.RefSoundSpeed()
	assert.Error(t, err)

	delete(v.Attrs, RefValueAttr)
	_, err = mats.RefSoundSpeed()
	assert.ErrorIs(t, err, ErrMaterialNotFound)
}
