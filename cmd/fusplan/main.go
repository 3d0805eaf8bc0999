package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/beamform"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/config"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/transducer"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "fusplan.yaml", "Planning configuration file (YAML)")
	outputPath := flag.String("output", "solution.yaml", "Output solution filename")
	writeDefault := flag.Bool("write-default-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeDefault {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Synthesize the planar grid array described by the configuration.
	xdc, err := transducer.MatrixArray(
		cfg.Transducer.ID,
		cfg.Transducer.Rows, cfg.Transducer.Cols,
		cfg.Transducer.Pitch, cfg.Transducer.Width, cfg.Transducer.Length,
		cfg.Transducer.Frequency, cfg.Transducer.Units,
	)
	if err != nil {
		log.Fatalf("Failed to build transducer: %v", err)
	}

	target, err := geom.NewPoint(cfg.Target.ID, cfg.Target.ID, r3.Vec{
		X: cfg.Target.Position[0],
		Y: cfg.Target.Position[1],
		Z: cfg.Target.Position[2],
	}, cfg.Target.Units)
	if err != nil {
		log.Fatalf("Failed to build target: %v", err)
	}

	fmt.Printf("Planning %d-element array %q, target %q at (%g, %g, %g) %s\n",
		xdc.NumElements(), xdc.ID, target.ID,
		cfg.Target.Position[0], cfg.Target.Position[1], cfg.Target.Position[2],
		cfg.Target.Units)

	startTime := time.Now()
	sol, err := beamform.ComputeSolution(
		xdc, target,
		cfg.Pattern.Pattern, cfg.Delay.Method, cfg.Apod.Method,
		nil, cfg.Processing.NumCores,
	)
	if err != nil {
		log.Fatalf("Planning failed: %v", err)
	}

	fmt.Printf("Computed %d focus/foci x %d element delays in %.3f seconds\n",
		len(sol.Foci), xdc.NumElements(), time.Since(startTime).Seconds())
	for i, f := range sol.Foci {
		maxDelay := 0.0
		for _, d := range sol.Delays[i] {
			if d > maxDelay {
				maxDelay = d
			}
		}
		fmt.Printf("  focus %-16s max delay %8.3f us\n", f.ID, maxDelay*1e6)
	}

	if err := sol.Save(*outputPath); err != nil {
		log.Fatalf("Failed to save solution: %v", err)
	}
	fmt.Printf("Solution saved to: %s\n", *outputPath)
}
