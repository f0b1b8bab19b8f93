// Package field implements arithmetic over the Distaff base field
//
//	p = 2^128 - 45*2^40 + 1
//
// Element stores its value as two uint64 limbs (little-endian) for a
// compact, gnark-fr.Element-shaped representation and canonical
// Bytes/SetBytes encoding, but every arithmetic operation below
// round-trips through math/big: each Add/Sub/Neg/Mul converts both
// operands via big(), combines them, and reduces with fromBig. That
// mirrors the teacher's core.FieldElement, which is also big.Int-backed
// end to end; genuine fixed-width limb arithmetic (add-with-carry,
// Montgomery multiplication) was not implemented here.
package field

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// Element is a field element reduced modulo p, stored as [lo, hi] limbs.
type Element struct {
	lo, hi uint64
}

// modulus p = 2^128 - 45*2^40 + 1.
var modulus = mustBig("340282366920938463463374557953744961537")

// g40 is a primitive 2^40-th root of unity. Every root of unity the
// prover needs is a power of g40, computed by GetRootOfUnity.
var g40 = fromBig(mustBig("23953097886125630542083529559205016746"))

// Generator is a fixed non-residue used as the LDE coset offset gamma.
var Generator = NewFromUint64(7)

// MaxRootOrder is the largest power-of-two order for which a root of
// unity exists in this field (the 2-adicity of p-1).
const MaxRootOrder = 1 << 40

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("field: invalid constant " + s)
	}
	return v
}

// Zero and One are the additive and multiplicative identities.
var (
	Zero = Element{}
	One  = Element{lo: 1}
)

// NewFromUint64 builds an element from a uint64 (always < p, no reduction needed).
func NewFromUint64(v uint64) Element {
	return Element{lo: v}
}

// NewFromInt64 builds an element from a possibly-negative int64.
func NewFromInt64(v int64) Element {
	if v >= 0 {
		return NewFromUint64(uint64(v))
	}
	return fromBig(new(big.Int).Add(modulus, big.NewInt(v)))
}

func (e Element) big() *big.Int {
	v := new(big.Int).SetUint64(e.hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(e.lo))
	return v
}

func fromBig(v *big.Int) Element {
	r := new(big.Int).Mod(v, modulus)
	lo := new(big.Int).And(r, mustBig("18446744073709551615")).Uint64()
	hi := new(big.Int).Rsh(r, 64).Uint64()
	return Element{lo: lo, hi: hi}
}

// Add returns a+b mod p.
func (a Element) Add(b Element) Element {
	return fromBig(new(big.Int).Add(a.big(), b.big()))
}

// Sub returns a-b mod p.
func (a Element) Sub(b Element) Element {
	return fromBig(new(big.Int).Sub(a.big(), b.big()))
}

// Neg returns -a mod p.
func (a Element) Neg() Element {
	return fromBig(new(big.Int).Neg(a.big()))
}

// Mul returns a*b mod p.
func (a Element) Mul(b Element) Element {
	return fromBig(new(big.Int).Mul(a.big(), b.big()))
}

// Square returns a*a mod p.
func (a Element) Square() Element {
	return a.Mul(a)
}

// Exp returns a^e mod p for a non-negative exponent.
func (a Element) Exp(e *big.Int) Element {
	return fromBig(new(big.Int).Exp(a.big(), e, modulus))
}

// ExpUint64 returns a^e mod p.
func (a Element) ExpUint64(e uint64) Element {
	return a.Exp(new(big.Int).SetUint64(e))
}

// Inv returns the multiplicative inverse of a. Panics on zero, mirroring
// the teacher's convention of treating inversion-of-zero as a caller bug
// rather than a recoverable error inside hot arithmetic.
func (a Element) Inv() Element {
	if a.IsZero() {
		panic("field: inverse of zero")
	}
	exp := new(big.Int).Sub(modulus, big.NewInt(2))
	return a.Exp(exp)
}

// Div returns a/b mod p.
func (a Element) Div(b Element) Element {
	return a.Mul(b.Inv())
}

// IsZero reports whether a is the additive identity.
func (a Element) IsZero() bool {
	return a.lo == 0 && a.hi == 0
}

// IsOne reports whether a is the multiplicative identity.
func (a Element) IsOne() bool {
	return a.lo == 1 && a.hi == 0
}

// Equal reports whether a and b represent the same field element.
func (a Element) Equal(b Element) bool {
	return a.lo == b.lo && a.hi == b.hi
}

// String renders the element in decimal.
func (a Element) String() string {
	return a.big().String()
}

// Bytes returns the canonical 16-byte little-endian encoding.
func (a Element) Bytes() [16]byte {
	var out [16]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(a.lo >> (8 * i))
		out[8+i] = byte(a.hi >> (8 * i))
	}
	return out
}

// SetBytes decodes the canonical 16-byte little-endian encoding.
func SetBytes(b [16]byte) Element {
	var lo, hi uint64
	for i := 0; i < 8; i++ {
		lo |= uint64(b[i]) << (8 * i)
		hi |= uint64(b[8+i]) << (8 * i)
	}
	return fromBig(new(big.Int).Or(new(big.Int).Lsh(new(big.Int).SetUint64(hi), 64), new(big.Int).SetUint64(lo)))
}

// RandFromSeed deterministically reduces a 32-byte digest into an element,
// used to turn Fiat-Shamir transcript state into field challenges.
func RandFromSeed(seed [32]byte) Element {
	return fromBig(new(big.Int).SetBytes(seed[:]))
}

// HashToSeed is a convenience helper: sha256(data) fed into RandFromSeed.
// Grounded on the teacher's utils/channel.go pattern of hashing transcript
// bytes down to a field challenge.
func HashToSeed(data []byte) Element {
	sum := sha256.Sum256(data)
	return RandFromSeed(sum)
}

// GetRootOfUnity returns a primitive root of unity of the given order,
// which must be a power of two no greater than MaxRootOrder.
func GetRootOfUnity(order uint64) (Element, error) {
	if order == 0 || (order&(order-1)) != 0 {
		return Zero, fmt.Errorf("field: order %d is not a power of two", order)
	}
	if order > MaxRootOrder {
		return Zero, fmt.Errorf("field: order %d exceeds max root order %d", order, MaxRootOrder)
	}
	// g40^(MaxRootOrder/order) has exact order `order`.
	exp := MaxRootOrder / order
	return g40.ExpUint64(exp), nil
}

// BatchInv inverts a slice of elements using the standard Montgomery
// trick: one real inversion plus three multiplications per non-zero
// element instead of n inversions. Any zero element in the input is
// passed through as zero.
func BatchInv(values []Element) []Element {
	n := len(values)
	out := make([]Element, n)
	if n == 0 {
		return out
	}

	prefix := make([]Element, n)
	acc := One
	for i, v := range values {
		prefix[i] = acc
		if !v.IsZero() {
			acc = acc.Mul(v)
		}
	}

	accInv := acc.Inv()
	for i := n - 1; i >= 0; i-- {
		if values[i].IsZero() {
			out[i] = Zero
			continue
		}
		out[i] = accInv.Mul(prefix[i])
		accInv = accInv.Mul(values[i])
	}
	return out
}
