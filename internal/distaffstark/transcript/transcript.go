// Package transcript implements the Fiat-Shamir transcript: a
// hash-chained channel that absorbs prover commitments in a fixed
// order and squeezes out field-element challenges, query indices, and
// a proof-of-work grinding nonce.
//
// Grounded on the teacher's utils/channel.go Channel (state-hashing
// absorb/squeeze shape, pluggable hash function with a sha3 fallback),
// reworked from its generic send/receive-random-int API into the
// concrete absorption order and challenge types the prover and
// verifier need: Merkle roots, field elements, grinding, and
// rejection-sampled query indices.
package transcript

import (
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
)

// HashFunction selects the digest used to advance the transcript
// state: SHA3-256 for Sha3_256, and SHA-256 for every other value
// (Blake3_256 and Rescue included).
type HashFunction = merkle.HashFunction

// Transcript is a hash-chained Fiat-Shamir channel.
type Transcript struct {
	state []byte
	hf    HashFunction
}

// New seeds a transcript with the initial absorption:
// program_hash || public_inputs || public_outputs || trace_root.
func New(hf HashFunction, programHash field.Element, publicInputs, publicOutputs []field.Element, traceRoot merkle.Digest) *Transcript {
	t := &Transcript{state: []byte{0}, hf: hf}
	t.AbsorbElement(programHash)
	t.AbsorbElements(publicInputs)
	t.AbsorbElements(publicOutputs)
	t.AbsorbDigest(traceRoot)
	return t
}

func (t *Transcript) mix(data []byte) {
	buf := make([]byte, 0, len(t.state)+len(data))
	buf = append(buf, t.state...)
	buf = append(buf, data...)
	t.state = digest(t.hf, buf)
}

func digest(hf HashFunction, data []byte) []byte {
	switch hf {
	case merkle.Sha3_256:
		sum := sha3.Sum256(data)
		return sum[:]
	default:
		sum := sha256.Sum256(data)
		return sum[:]
	}
}

// AbsorbElement mixes one field element into the transcript state.
func (t *Transcript) AbsorbElement(e field.Element) {
	b := e.Bytes()
	t.mix(b[:])
}

// AbsorbElements mixes a sequence of field elements in order.
func (t *Transcript) AbsorbElements(es []field.Element) {
	for _, e := range es {
		t.AbsorbElement(e)
	}
}

// AbsorbDigest mixes one Merkle root/digest into the transcript state.
func (t *Transcript) AbsorbDigest(d merkle.Digest) {
	t.mix(d[:])
}

// AbsorbDigests mixes a sequence of Merkle roots in order (used for
// the FRI layer roots, absorbed one at a time as each layer commits).
func (t *Transcript) AbsorbDigests(ds []merkle.Digest) {
	for _, d := range ds {
		t.AbsorbDigest(d)
	}
}

// DrawElement squeezes one field-element challenge, advancing the state.
func (t *Transcript) DrawElement() field.Element {
	var seed [32]byte
	copy(seed[:], t.state)
	e := field.RandFromSeed(seed)
	t.state = digest(t.hf, t.state)
	return e
}

// DrawElements squeezes n field-element challenges in order.
func (t *Transcript) DrawElements(n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = t.DrawElement()
	}
	return out
}

// Grind searches for the lexicographically smallest 64-bit nonce such
// that hash(state || nonce) has at least grindingFactor leading zero
// bits, absorbs the winning nonce into the state, and returns it.
func (t *Transcript) Grind(grindingFactor int) uint64 {
	if grindingFactor == 0 {
		return 0
	}
	var nonce uint64
	for {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], nonce)
		candidate := append(append([]byte(nil), t.state...), buf[:]...)
		h := digest(t.hf, candidate)
		if leadingZeroBits(h) >= grindingFactor {
			t.mix(buf[:])
			return nonce
		}
		nonce++
	}
}

// CheckGrinding verifies a prover-supplied nonce meets the grinding
// factor's leading-zero-bit bound and, if it does, mixes it into the
// state exactly as Grind does so subsequent draws match the prover's.
func (t *Transcript) CheckGrinding(nonce uint64, grindingFactor int) bool {
	if grindingFactor == 0 {
		return true
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	candidate := append(append([]byte(nil), t.state...), buf[:]...)
	h := digest(t.hf, candidate)
	if leadingZeroBits(h) < grindingFactor {
		return false
	}
	t.mix(buf[:])
	return true
}

func leadingZeroBits(h []byte) int {
	count := 0
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<uint(bit)) != 0 {
				return count
			}
			count++
		}
	}
	return count
}

// DrawQueryIndices rejection-samples numQueries distinct indices in
// [0, domainSize), skipping any index divisible by skipStride (the
// D_trace positions embedded in D_lde, which would leak trace values
// if queried directly).
func (t *Transcript) DrawQueryIndices(numQueries, domainSize, skipStride int) []int {
	seen := make(map[int]bool, numQueries)
	out := make([]int, 0, numQueries)
	for len(out) < numQueries {
		e := t.DrawElement()
		b := e.Bytes()
		var v uint64
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(b[i])
		}
		idx := int(v % uint64(domainSize))
		if idx%skipStride == 0 {
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}
