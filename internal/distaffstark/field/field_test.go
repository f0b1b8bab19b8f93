package field

import (
	"math/big"
	"testing"
)

func TestAddSubNeg(t *testing.T) {
	a := NewFromUint64(5)
	b := NewFromUint64(7)

	sum := a.Add(b)
	if sum.String() != "12" {
		t.Errorf("5+7 = %s, want 12", sum.String())
	}

	diff := a.Sub(b)
	want := b.Sub(a).Neg()
	if !diff.Equal(want) {
		t.Errorf("a-b != -(b-a): %s vs %s", diff.String(), want.String())
	}

	if !a.Add(a.Neg()).IsZero() {
		t.Error("a + (-a) should be zero")
	}
}

func TestMulInvDiv(t *testing.T) {
	cases := []uint64{1, 2, 3, 1000, 1 << 40}
	for _, v := range cases {
		a := NewFromUint64(v)
		if a.IsZero() {
			continue
		}
		inv := a.Inv()
		if !a.Mul(inv).IsOne() {
			t.Errorf("a * a^-1 != 1 for a=%d", v)
		}
		if !a.Div(a).IsOne() {
			t.Errorf("a / a != 1 for a=%d", v)
		}
	}
}

func TestInvZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic inverting zero")
		}
	}()
	Zero.Inv()
}

func TestExpUint64(t *testing.T) {
	a := NewFromUint64(3)
	got := a.ExpUint64(10)
	want := a.Exp(big.NewInt(10))
	if !got.Equal(want) {
		t.Errorf("ExpUint64 disagrees with Exp: %s vs %s", got.String(), want.String())
	}

	if !a.ExpUint64(0).IsOne() {
		t.Error("a^0 should be 1")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 42, 1<<63 + 7}
	for _, v := range vals {
		a := NewFromUint64(v)
		b := a.Bytes()
		got := SetBytes(b)
		if !got.Equal(a) {
			t.Errorf("round trip failed for %d: got %s", v, got.String())
		}
	}
}

func TestGetRootOfUnity(t *testing.T) {
	orders := []uint64{2, 4, 8, 16, 1024}
	for _, n := range orders {
		root, err := GetRootOfUnity(n)
		if err != nil {
			t.Fatalf("GetRootOfUnity(%d): %v", n, err)
		}
		if !root.ExpUint64(n).IsOne() {
			t.Errorf("root^%d != 1", n)
		}
		if root.ExpUint64(n / 2).IsOne() {
			t.Errorf("root has order dividing %d, not exactly %d", n/2, n)
		}
	}
}

func TestGetRootOfUnityRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := GetRootOfUnity(3); err == nil {
		t.Error("expected error for non-power-of-two order")
	}
}

func TestBatchInv(t *testing.T) {
	values := make([]Element, 0, 8)
	for i := uint64(1); i <= 8; i++ {
		values = append(values, NewFromUint64(i))
	}
	inverses := BatchInv(values)
	for i, v := range values {
		if !v.Mul(inverses[i]).IsOne() {
			t.Errorf("BatchInv[%d] is not the inverse of %s", i, v.String())
		}
	}
}

func TestBatchInvPassesThroughZero(t *testing.T) {
	values := []Element{NewFromUint64(3), Zero, NewFromUint64(5)}
	inverses := BatchInv(values)
	if !inverses[1].IsZero() {
		t.Error("BatchInv should pass zero through as zero")
	}
	if !values[0].Mul(inverses[0]).IsOne() {
		t.Error("BatchInv[0] incorrect")
	}
	if !values[2].Mul(inverses[2]).IsOne() {
		t.Error("BatchInv[2] incorrect")
	}
}

func TestRandFromSeedDeterministic(t *testing.T) {
	var seed [32]byte
	copy(seed[:], "distaff-transcript-test-seed!!!!")
	a := RandFromSeed(seed)
	b := RandFromSeed(seed)
	if !a.Equal(b) {
		t.Error("RandFromSeed should be deterministic")
	}
}
