// Package polynomial provides the radix-2 NTT kernel and the small set
// of polynomial operations the prover pipeline needs: interpolation,
// evaluation, Horner point-evaluation, coset shifting, and the
// closed-form radix-4 interpolation used by FRI layer folding.
//
// Grounded on the teacher's core/polynomial.go (coefficient-vector
// polynomial type, Lagrange interpolation) and core/polynomial_extended.go
// / core/circle_fft.go (Cooley-Tukey butterfly shape), reworked against
// the fixed-width field.Element from internal/distaffstark/field.
package polynomial

import (
	"fmt"

	"github.com/vybium/distaff-stark/internal/distaffstark/field"
)

// Degree returns the degree of a coefficient vector, i.e. the index of
// its highest non-zero coefficient, or -1 for the all-zero polynomial.
func Degree(coeffs []field.Element) int {
	for i := len(coeffs) - 1; i >= 0; i-- {
		if !coeffs[i].IsZero() {
			return i
		}
	}
	return -1
}

// EvalAt evaluates the polynomial (in coefficient form) at x via Horner's method.
func EvalAt(coeffs []field.Element, x field.Element) field.Element {
	result := field.Zero
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(coeffs[i])
	}
	return result
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// bitReverse returns x with its low `bits` bits reversed.
func bitReverse(x uint32, bits uint) uint32 {
	var r uint32
	for i := uint(0); i < bits; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

func log2(n int) uint {
	var l uint
	for 1<<l < n {
		l++
	}
	return l
}

// twiddles builds the table of powers of the order-n root of unity
// needed by the Cooley-Tukey butterflies, omega^0 .. omega^(n/2-1).
func twiddles(n int, inverse bool) ([]field.Element, error) {
	root, err := field.GetRootOfUnity(uint64(n))
	if err != nil {
		return nil, err
	}
	if inverse {
		root = root.Inv()
	}
	out := make([]field.Element, n/2)
	cur := field.One
	for i := range out {
		out[i] = cur
		cur = cur.Mul(root)
	}
	return out, nil
}

// ntt performs an in-place iterative radix-2 Cooley-Tukey transform.
// values must have power-of-two length; inverse selects the forward or
// the inverse transform's twiddle table (the caller is responsible for
// the final 1/n scaling on the inverse path).
func ntt(values []field.Element, inverse bool) error {
	n := len(values)
	if !isPowerOfTwo(n) {
		return fmt.Errorf("polynomial: domain size %d is not a power of two", n)
	}
	bits := log2(n)
	for i := range values {
		j := bitReverse(uint32(i), bits)
		if j > uint32(i) {
			values[i], values[j] = values[j], values[i]
		}
	}

	tw, err := twiddles(n, inverse)
	if err != nil {
		return err
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		stride := n / size
		for start := 0; start < n; start += size {
			for i := 0; i < half; i++ {
				w := tw[i*stride]
				u := values[start+i]
				v := values[start+i+half].Mul(w)
				values[start+i] = u.Add(v)
				values[start+i+half] = u.Sub(v)
			}
		}
	}
	return nil
}

// Evaluate returns the evaluations of a coefficient vector over the
// size-len(coeffs) subgroup generated by the root of unity of that
// order (coeffs is zero-padded to the next power of two by the caller).
func Evaluate(coeffs []field.Element) ([]field.Element, error) {
	out := make([]field.Element, len(coeffs))
	copy(out, coeffs)
	if err := ntt(out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// Interpolate recovers coefficients from evaluations over the
// len(values)-th roots of unity (the inverse NTT).
func Interpolate(values []field.Element) ([]field.Element, error) {
	out := make([]field.Element, len(values))
	copy(out, values)
	if err := ntt(out, true); err != nil {
		return nil, err
	}
	nInv := field.NewFromUint64(uint64(len(values))).Inv()
	for i := range out {
		out[i] = out[i].Mul(nInv)
	}
	return out, nil
}

// ShiftDomain returns a new coefficient vector whose coefficient i is
// coeffs[i] * offset^i (the input is not modified). Evaluating the
// result over a root-of-unity subgroup gives the original polynomial's
// evaluations over the coset `offset * subgroup`. Used to apply the LDE
// coset offset gamma before the forward NTT.
func ShiftDomain(coeffs []field.Element, offset field.Element) []field.Element {
	out := make([]field.Element, len(coeffs))
	power := field.One
	for i, c := range coeffs {
		out[i] = c.Mul(power)
		power = power.Mul(offset)
	}
	return out
}

// InterpolateQuartic computes the unique degree-<=3 polynomial (in
// coefficient form, lowest degree first) passing through four
// (x, y) pairs, via closed-form Lagrange interpolation. Used by FRI to
// fold a radix-4 row into a single polynomial before evaluating it at
// the folding challenge.
func InterpolateQuartic(xs, ys [4]field.Element) ([4]field.Element, error) {
	var coeffs [4]field.Element

	for i := 0; i < 4; i++ {
		// Build the i-th Lagrange basis polynomial's coefficients
		// directly via repeated (x - x_j) multiplication, then scale by
		// y_i / prod(x_i - x_j).
		basis := [4]field.Element{field.One, field.Zero, field.Zero, field.Zero}
		basisDeg := 0
		denom := field.One

		for j := 0; j < 4; j++ {
			if j == i {
				continue
			}
			diff := xs[i].Sub(xs[j])
			if diff.IsZero() {
				return coeffs, fmt.Errorf("polynomial: duplicate x-coordinate at %d,%d", i, j)
			}
			denom = denom.Mul(diff)

			// basis <- basis * (x - xs[j])
			var next [4]field.Element
			negXj := xs[j].Neg()
			for k := 0; k <= basisDeg; k++ {
				next[k] = next[k].Add(basis[k].Mul(negXj))
				next[k+1] = next[k+1].Add(basis[k])
			}
			basis = next
			basisDeg++
		}

		scale := ys[i].Div(denom)
		for k := 0; k < 4; k++ {
			coeffs[k] = coeffs[k].Add(basis[k].Mul(scale))
		}
	}

	return coeffs, nil
}
