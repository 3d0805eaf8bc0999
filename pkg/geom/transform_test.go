package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func transformsClose(t *testing.T, a, b Transform, tol float64) {
	t.Helper()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) > tol {
				t.Fatalf("matrices differ at (%d,%d): %g vs %g", i, j, a.At(i, j), b.At(i, j))
			}
		}
	}
}

// TestNewTransformValidation rejects bad shapes and bottom rows.
func TestNewTransformValidation(t *testing.T) {
	if _, err := NewTransform(make([]float64, 12)); err == nil {
		t.Error("expected error for 12 values")
	}
	bad := Identity().Raw()
	bad[15] = 2
	if _, err := NewTransform(bad); err == nil {
		t.Error("expected error for bottom row != [0 0 0 1]")
	}
}

// TestInverseComposition checks that M * M^-1 is the identity for a
// composite rotation+translation, and that Inverse is a true inverse even
// with non-uniform scale (where a transpose would be wrong).
func TestInverseComposition(t *testing.T) {
	m := Translate(r3.Vec{X: 1, Y: -2, Z: 3}).
		Mul(RotationY(0.7)).
		Mul(RotationX(-0.3))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	transformsClose(t, m.Mul(inv), Identity(), 1e-12)

	// Non-uniform scale: transpose is not the inverse, the solver must be.
	scaled, err := FromRotationTranslation([]float64{
		2, 0, 0,
		0, 0.5, 0,
		0, 0, 4,
	}, r3.Vec{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("FromRotationTranslation failed: %v", err)
	}
	sinv, err := scaled.Inverse()
	if err != nil {
		t.Fatalf("Inverse of scaled failed: %v", err)
	}
	transformsClose(t, scaled.Mul(sinv), Identity(), 1e-12)

	p := r3.Vec{X: 0.3, Y: -0.8, Z: 2.2}
	back := sinv.Apply(scaled.Apply(p))
	if math.Abs(back.X-p.X)+math.Abs(back.Y-p.Y)+math.Abs(back.Z-p.Z) > 1e-12 {
		t.Errorf("round trip through scaled transform moved the point: %+v", back)
	}
}

// TestPseudoInverseMatchesInverse verifies that for an invertible matrix the
// pseudo-inverse (M'M)^-1 M' coincides with the true inverse.
func TestPseudoInverseMatchesInverse(t *testing.T) {
	m := Translate(r3.Vec{X: 0.5, Y: 0, Z: -1}).Mul(RotationZ(1.1))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	pinv, err := m.PseudoInverse()
	if err != nil {
		t.Fatalf("PseudoInverse failed: %v", err)
	}
	transformsClose(t, inv, pinv, 1e-10)
}

// TestApplyRotation checks homogeneous point mapping against hand-computed
// rotations.
func TestApplyRotation(t *testing.T) {
	p := r3.Vec{X: 1, Y: 0, Z: 0}

	got := RotationZ(math.Pi / 2).Apply(p)
	if math.Abs(got.X) > 1e-15 || math.Abs(got.Y-1) > 1e-15 {
		t.Errorf("RotationZ(pi/2) * ex = %+v, want ey", got)
	}

	got = RotationY(math.Pi / 2).Apply(p)
	if math.Abs(got.X) > 1e-15 || math.Abs(got.Z+1) > 1e-15 {
		t.Errorf("RotationY(pi/2) * ex = %+v, want -ez", got)
	}

	got = Translate(r3.Vec{X: 1, Y: 2, Z: 3}).Apply(p)
	if got.X != 2 || got.Y != 2 || got.Z != 3 {
		t.Errorf("Translate * ex = %+v, want (2,2,3)", got)
	}
}

// TestApplyDirectionIgnoresTranslation distinguishes point and direction
// mapping.
func TestApplyDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(r3.Vec{X: 5, Y: 5, Z: 5}).Mul(RotationZ(math.Pi / 2))
	d := m.ApplyDirection(r3.Vec{X: 1})
	if math.Abs(d.X) > 1e-15 || math.Abs(d.Y-1) > 1e-15 || math.Abs(d.Z) > 1e-15 {
		t.Errorf("direction mapped to %+v, want (0,1,0)", d)
	}
}

// TestTransformYAMLRoundTrip serializes a transform and reads it back.
func TestTransformYAMLRoundTrip(t *testing.T) {
	m := Translate(r3.Vec{X: 1, Y: 2, Z: 3}).Mul(RotationX(0.25))

	enc, err := m.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}
	rows := enc.([][]float64)
	if len(rows) != 4 || len(rows[0]) != 4 {
		t.Fatalf("marshaled shape %dx%d, want 4x4", len(rows), len(rows[0]))
	}
	if rows[3][3] != 1 {
		t.Errorf("bottom-right entry %g, want 1", rows[3][3])
	}
	if rows[0][3] != 1 || rows[1][3] != 2 || rows[2][3] != 3 {
		t.Errorf("translation column wrong: %v", rows)
	}
}
