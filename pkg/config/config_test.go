package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/beamform"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Greater(t, cfg.Processing.NumCores, 0)
	assert.Equal(t, 4, cfg.Transducer.Rows)
	assert.Equal(t, 4, cfg.Transducer.Cols)
	assert.Equal(t, 5.0, cfg.Transducer.Pitch)
	assert.Equal(t, 400e3, cfg.Transducer.Frequency)
	assert.Equal(t, geom.Millimeters, cfg.Transducer.Units)
	assert.Equal(t, [3]float64{0, 0, 50}, cfg.Target.Position)
	assert.Equal(t, beamform.SinglePoint{}, cfg.Pattern.Pattern)
	assert.Equal(t, beamform.Direct{C0: 1500}, cfg.Delay.Method)
	assert.Equal(t, beamform.Uniform{}, cfg.Apod.Method)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Transducer, cfg.Transducer)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Processing.NumCores = 2
	cfg.Transducer.Rows = 8
	cfg.Target.Position = [3]float64{1, -2, 60}
	cfg.Pattern = beamform.PatternSpec{Pattern: beamform.Wheel{
		Center:      true,
		NumSpokes:   6,
		SpokeRadius: 2,
		Units:       geom.Millimeters,
	}}
	cfg.Delay = beamform.DelaySpec{Method: beamform.Raytraced{InterpSpacing: 2e-4}}

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	back, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Processing.NumCores, back.Processing.NumCores)
	assert.Equal(t, cfg.Transducer, back.Transducer)
	assert.Equal(t, cfg.Target, back.Target)
	assert.Equal(t, cfg.Pattern.Pattern, back.Pattern.Pattern)
	assert.Equal(t, cfg.Delay.Method, back.Delay.Method)
}

func TestLoadConfigPartialOverride(t *testing.T) {
	// A file that sets only the target depth keeps every other default.
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "target:\n  id: deep\n  position: [0, 0, 80]\n  units: mm\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "deep", cfg.Target.ID)
	assert.Equal(t, [3]float64{0, 0, 80}, cfg.Target.Position)
	assert.Equal(t, 4, cfg.Transducer.Rows)
	assert.Equal(t, beamform.Direct{C0: 1500}, cfg.Delay.Method)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Transducer, cfg.Transducer)
}
