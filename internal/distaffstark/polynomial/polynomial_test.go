package polynomial

import (
	"testing"

	"github.com/vybium/distaff-stark/internal/distaffstark/field"
)

func TestEvaluateInterpolateRoundTrip(t *testing.T) {
	coeffs := []field.Element{
		field.NewFromUint64(1),
		field.NewFromUint64(2),
		field.NewFromUint64(3),
		field.NewFromUint64(4),
		field.Zero, field.Zero, field.Zero, field.Zero,
	}
	vals, err := Evaluate(coeffs)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	got, err := Interpolate(vals)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	for i := range coeffs {
		if !got[i].Equal(coeffs[i]) {
			t.Errorf("coefficient %d: got %s, want %s", i, got[i].String(), coeffs[i].String())
		}
	}
}

func TestEvalAtMatchesEvaluate(t *testing.T) {
	coeffs := []field.Element{
		field.NewFromUint64(7),
		field.NewFromUint64(0),
		field.NewFromUint64(5),
		field.NewFromUint64(1),
	}
	vals, err := Evaluate(coeffs)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	root, err := field.GetRootOfUnity(4)
	if err != nil {
		t.Fatalf("GetRootOfUnity: %v", err)
	}
	x := root
	for i := 1; i < 4; i++ {
		got := EvalAt(coeffs, x)
		if !got.Equal(vals[i]) {
			t.Errorf("EvalAt at index %d: got %s, want %s", i, got.String(), vals[i].String())
		}
		x = x.Mul(root)
	}
}

func TestDegree(t *testing.T) {
	cases := []struct {
		coeffs []field.Element
		want   int
	}{
		{nil, -1},
		{[]field.Element{field.Zero, field.Zero}, -1},
		{[]field.Element{field.One, field.Zero}, 0},
		{[]field.Element{field.One, field.Zero, field.NewFromUint64(3), field.Zero}, 2},
	}
	for _, c := range cases {
		if got := Degree(c.coeffs); got != c.want {
			t.Errorf("Degree(%v) = %d, want %d", c.coeffs, got, c.want)
		}
	}
}

func TestShiftDomainMovesEvaluationToCoset(t *testing.T) {
	coeffs := []field.Element{field.NewFromUint64(1), field.NewFromUint64(1), field.Zero, field.Zero}
	offset := field.NewFromUint64(3)
	shifted := ShiftDomain(coeffs, offset)

	root, err := field.GetRootOfUnity(4)
	if err != nil {
		t.Fatalf("GetRootOfUnity: %v", err)
	}
	x := root
	got := EvalAt(shifted, x)
	want := EvalAt(coeffs, offset.Mul(x))
	if !got.Equal(want) {
		t.Errorf("shifted poly at x != original poly at offset*x: %s vs %s", got.String(), want.String())
	}
}

func TestInterpolateQuartic(t *testing.T) {
	root, err := field.GetRootOfUnity(4)
	if err != nil {
		t.Fatalf("GetRootOfUnity: %v", err)
	}
	var xs [4]field.Element
	cur := field.NewFromUint64(5)
	for i := 0; i < 4; i++ {
		xs[i] = cur
		cur = cur.Mul(root)
	}

	poly := []field.Element{field.NewFromUint64(2), field.NewFromUint64(3), field.NewFromUint64(1), field.NewFromUint64(4)}
	var ys [4]field.Element
	for i, x := range xs {
		ys[i] = EvalAt(poly, x)
	}

	coeffs, err := InterpolateQuartic(xs, ys)
	if err != nil {
		t.Fatalf("InterpolateQuartic: %v", err)
	}
	for i := 0; i < 4; i++ {
		if !coeffs[i].Equal(poly[i]) {
			t.Errorf("coefficient %d: got %s, want %s", i, coeffs[i].String(), poly[i].String())
		}
	}
}

func TestInterpolateQuarticRejectsDuplicateX(t *testing.T) {
	xs := [4]field.Element{field.NewFromUint64(1), field.NewFromUint64(1), field.NewFromUint64(2), field.NewFromUint64(3)}
	ys := [4]field.Element{field.Zero, field.One, field.Zero, field.Zero}
	if _, err := InterpolateQuartic(xs, ys); err == nil {
		t.Error("expected error for duplicate x-coordinates")
	}
}

func TestEvaluateRejectsNonPowerOfTwo(t *testing.T) {
	coeffs := make([]field.Element, 3)
	if _, err := Evaluate(coeffs); err == nil {
		t.Error("expected error for non-power-of-two length")
	}
}
