// Package beamform computes the per-element drive parameters for a focal
// pattern: time delays (direct time-of-flight or ray-integrated through a
// heterogeneous speed-of-sound field) and apodization weights, packaged as
// a Solution consumable by the external acoustic solver and persistence.
package beamform

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/volume"
)

// Material-property volume names this core understands. "density" and
// "attenuation" pass through to the external solver untouched.
const (
	MaterialSoundSpeed  = "sound_speed"
	MaterialDensity     = "density"
	MaterialAttenuation = "attenuation"
)

// RefValueAttr is the volume attribute carrying the reference material
// value, e.g. the background sound speed in m/s.
const RefValueAttr = "ref_value"

// ErrMaterialNotFound is returned when a required named property volume is
// absent from the material set.
var ErrMaterialNotFound = errors.New("material volume not found")

// Materials is the set of named material-property volumes produced by the
// external segmentation stage.
type Materials map[string]*volume.Volume

// SoundSpeed returns the "sound_speed" volume.
func (m Materials) SoundSpeed() (*volume.Volume, error) {
	v, ok := m[MaterialSoundSpeed]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %q", ErrMaterialNotFound, MaterialSoundSpeed)
	}
	return v, nil
}

// RefSoundSpeed returns the reference sound speed in m/s from the
// "sound_speed" volume's reference attribute.
func (m Materials) RefSoundSpeed() (float64, error) {
	v, err := m.SoundSpeed()
	if err != nil {
		return 0, err
	}
	raw, ok := v.Attrs[RefValueAttr]
	if !ok {
		return 0, fmt.Errorf("%w: %q volume has no %q attribute", ErrMaterialNotFound, MaterialSoundSpeed, RefValueAttr)
	}
	c, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("material %q: bad %s %q: %w", MaterialSoundSpeed, RefValueAttr, raw, err)
	}
	if c <= 0 {
		return 0, fmt.Errorf("material %q: %s must be positive, got %g", MaterialSoundSpeed, RefValueAttr, c)
	}
	return c, nil
}
