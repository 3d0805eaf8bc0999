package transducer

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// TestMatrixArray verifies grid synthesis: count, centering, pitch.
func TestMatrixArray(t *testing.T) {
	xdc, err := MatrixArray("arr", 2, 3, 5, 4, 4, 400e3, geom.Millimeters)
	if err != nil {
		t.Fatalf("MatrixArray failed: %v", err)
	}
	if xdc.NumElements() != 6 {
		t.Fatalf("NumElements = %d, want 6", xdc.NumElements())
	}

	// Mean position must be the local origin.
	var sx, sy float64
	for _, e := range xdc.Elements {
		sx += e.X
		sy += e.Y
	}
	if math.Abs(sx) > 1e-12 || math.Abs(sy) > 1e-12 {
		t.Errorf("array not centered: mean (%g, %g)", sx/6, sy/6)
	}

	// Neighbors along a row sit one pitch apart.
	if d := xdc.Elements[1].X - xdc.Elements[0].X; math.Abs(d-5) > 1e-12 {
		t.Errorf("pitch = %g, want 5", d)
	}

	if _, err := MatrixArray("bad", 0, 3, 5, 4, 4, 400e3, geom.Millimeters); err == nil {
		t.Error("expected error for zero rows")
	}
}

// TestElementPositionsWorldFrame maps element centers through the placement
// matrix.
func TestElementPositionsWorldFrame(t *testing.T) {
	xdc, _ := MatrixArray("arr", 1, 2, 2, 1, 1, 400e3, geom.Millimeters)
	xdc.Matrix = geom.Translate(r3.Vec{Z: 10})

	pos := xdc.ElementPositions()
	if got := pos.At(2, 0); math.Abs(got-10) > 1e-12 {
		t.Errorf("world z = %g, want 10", got)
	}
	if got := pos.At(0, 0); math.Abs(got+1) > 1e-12 {
		t.Errorf("world x = %g, want -1", got)
	}
}

// TestMergeFirstReference merges two arrays into the first array's frame
// and checks that world positions are preserved.
func TestMergeFirstReference(t *testing.T) {
	a, _ := MatrixArray("a", 1, 2, 2, 1, 1, 400e3, geom.Millimeters)
	b, _ := MatrixArray("b", 1, 2, 2, 1, 1, 400e3, geom.Millimeters)
	a.Matrix = geom.Identity()
	b.Matrix = geom.Translate(r3.Vec{X: 20}).Mul(geom.RotationZ(math.Pi / 2))

	merged, err := a.Merge([]Transducer{b}, MergeFirst)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.NumElements() != 4 {
		t.Fatalf("merged count = %d, want 4", merged.NumElements())
	}

	// Reconstructed world positions must match the originals.
	wantWorld := make([]r3.Vec, 0, 4)
	for _, src := range []Transducer{a, b} {
		for _, e := range src.Elements {
			wantWorld = append(wantWorld, src.Matrix.Apply(e.Position()))
		}
	}
	for i, e := range merged.Elements {
		got := merged.Matrix.Apply(e.Position())
		if r3.Norm(r3.Sub(got, wantWorld[i])) > 1e-9 {
			t.Errorf("element %d world position %+v, want %+v", i, got, wantWorld[i])
		}
		if e.Index != i || e.Pin != i {
			t.Errorf("element %d not renumbered: index %d pin %d", i, e.Index, e.Pin)
		}
	}
}

// TestMergeMeanReference checks the averaged frame is orthonormalized and
// still reproduces world positions.
func TestMergeMeanReference(t *testing.T) {
	a, _ := MatrixArray("a", 1, 2, 2, 1, 1, 400e3, geom.Millimeters)
	b, _ := MatrixArray("b", 1, 2, 2, 1, 1, 400e3, geom.Millimeters)
	a.Matrix = geom.RotationZ(0.3)
	b.Matrix = geom.RotationZ(-0.1).Mul(geom.Translate(r3.Vec{X: 5}))

	merged, err := a.Merge([]Transducer{b}, MergeMean)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// Averaged rotation block must be orthonormal after Gram-Schmidt.
	for i := 0; i < 3; i++ {
		ci := merged.Matrix.Column(i)
		if math.Abs(r3.Norm(ci)-1) > 1e-12 {
			t.Errorf("column %d norm %g, want 1", i, r3.Norm(ci))
		}
		for j := i + 1; j < 3; j++ {
			cj := merged.Matrix.Column(j)
			if d := ci.X*cj.X + ci.Y*cj.Y + ci.Z*cj.Z; math.Abs(d) > 1e-12 {
				t.Errorf("columns %d,%d not orthogonal: dot %g", i, j, d)
			}
		}
	}

	wantWorld := make([]r3.Vec, 0, 4)
	for _, src := range []Transducer{a, b} {
		for _, e := range src.Elements {
			wantWorld = append(wantWorld, src.Matrix.Apply(e.Position()))
		}
	}
	for i, e := range merged.Elements {
		got := merged.Matrix.Apply(e.Position())
		if r3.Norm(r3.Sub(got, wantWorld[i])) > 1e-9 {
			t.Errorf("element %d world position %+v, want %+v", i, got, wantWorld[i])
		}
	}
}

// TestMergeUnitHarmonization merges arrays declared in different units.
func TestMergeUnitHarmonization(t *testing.T) {
	a, _ := MatrixArray("a", 1, 1, 1, 1, 1, 400e3, geom.Millimeters)
	b, _ := MatrixArray("b", 1, 1, 1, 0.001, 0.001, 400e3, geom.Meters)
	b.Matrix = geom.Translate(r3.Vec{X: 0.01}) // 10 mm in meters

	merged, err := a.Merge([]Transducer{b}, MergeFirst)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.Units != geom.Millimeters {
		t.Fatalf("merged units %q, want mm", merged.Units)
	}
	got := merged.Matrix.Apply(merged.Elements[1].Position())
	if math.Abs(got.X-10) > 1e-9 {
		t.Errorf("second element world x = %g mm, want 10", got.X)
	}
}

// TestTransducerCopy verifies deep copies of elements and attrs.
func TestTransducerCopy(t *testing.T) {
	xdc, _ := MatrixArray("arr", 1, 1, 1, 1, 1, 400e3, geom.Millimeters)
	xdc.Attrs = map[string]string{"serial": "007"}
	xdc.Elements[0].ImpulseResponse = []float64{1, 2, 3}

	cp := xdc.Copy()
	cp.Elements[0].X = 99
	cp.Elements[0].ImpulseResponse[0] = 99
	cp.Attrs["serial"] = "008"

	if xdc.Elements[0].X == 99 || xdc.Elements[0].ImpulseResponse[0] == 99 || xdc.Attrs["serial"] == "008" {
		t.Error("Copy aliases the receiver's storage")
	}
}
