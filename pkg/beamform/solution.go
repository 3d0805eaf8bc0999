package beamform

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/transducer"
)

// Solution is the beamforming output contract: per-focus, per-element
// delays and apodizations plus the transducer and pattern that produced
// them. The external acoustic solver consumes it as-is; the post-hoc
// solution scaling step rewrites Apodizations only.
type Solution struct {
	// Transducer is the (possibly merged) array the plan drives.
	Transducer transducer.Transducer `yaml:"transducer"`

	// Pattern is the focal pattern the foci were expanded from.
	Pattern PatternSpec `yaml:"pattern"`

	// Delay and Apod record the methods used.
	Delay DelaySpec `yaml:"delay"`
	Apod  ApodSpec  `yaml:"apod"`

	// Foci are the steered targets, ordered as the rows of Delays.
	Foci []geom.Point `yaml:"foci"`

	// Delays holds seconds, one row per focus, one column per element.
	// Every row satisfies min == 0 and all values >= 0.
	Delays [][]float64 `yaml:"delays"`

	// Apodizations holds dimensionless weights in [0, 1], same shape.
	Apodizations [][]float64 `yaml:"apodizations"`
}

// ComputeSolution expands target through pattern and runs the delay and
// apodization methods for every steered focus.
//
// workers bounds the per-element fan-out inside the delay methods; <= 0
// selects one worker per CPU.
func ComputeSolution(xdc transducer.Transducer, target geom.Point, pattern FocalPattern, delay DelayMethod, apod ApodMethod, mats Materials, workers int) (*Solution, error) {
	if pattern == nil {
		pattern = SinglePoint{}
	}
	if apod == nil {
		apod = Uniform{}
	}
	if delay == nil {
		return nil, fmt.Errorf("solution: nil delay method")
	}

	foci, err := pattern.Targets(target)
	if err != nil {
		return nil, fmt.Errorf("solution: %w", err)
	}
	if len(foci) != pattern.NumFoci() {
		return nil, fmt.Errorf("solution: pattern produced %d foci, declared %d", len(foci), pattern.NumFoci())
	}

	sol := &Solution{
		Transducer:   xdc.Copy(),
		Pattern:      PatternSpec{Pattern: pattern},
		Delay:        DelaySpec{Method: delay},
		Apod:         ApodSpec{Method: apod},
		Foci:         foci,
		Delays:       make([][]float64, len(foci)),
		Apodizations: make([][]float64, len(foci)),
	}
	for i, f := range foci {
		d, err := delay.CalcDelays(xdc, f, mats, workers)
		if err != nil {
			return nil, fmt.Errorf("solution: focus %q: %w", f.ID, err)
		}
		a, err := apod.CalcApod(xdc, f)
		if err != nil {
			return nil, fmt.Errorf("solution: focus %q: %w", f.ID, err)
		}
		sol.Delays[i] = d
		sol.Apodizations[i] = a
	}
	return sol, nil
}

// DelayMatrix returns the delays as a numFoci x numElements matrix.
func (s *Solution) DelayMatrix() *mat.Dense {
	return rowsToDense(s.Delays)
}

// ApodMatrix returns the apodizations as a numFoci x numElements matrix.
func (s *Solution) ApodMatrix() *mat.Dense {
	return rowsToDense(s.Apodizations)
}

func rowsToDense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return mat.NewDense(1, 1, nil)
	}
	out := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		out.SetRow(i, row)
	}
	return out
}

// Save writes the solution to a YAML file.
func (s *Solution) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal solution: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write solution: %w", err)
	}
	return nil
}

// LoadSolution reads a solution from a YAML file.
func LoadSolution(path string) (*Solution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}
	var sol Solution
	if err := yaml.Unmarshal(data, &sol); err != nil {
		return nil, fmt.Errorf("parse solution: %w", err)
	}
	return &sol, nil
}
