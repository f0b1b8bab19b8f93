// Package proof (de)serializes the wire format of a Distaff proof: a
// length-prefixed, big-endian binary layout carrying the context
// header, public inputs/outputs, commitment roots, per-query rows with
// batched Merkle proofs, the FRI layer structure, and the grinding
// nonce.
//
// Grounded on the teacher's protocols/proof.go Proof/ProofItem ordered
// list design (an append-only sequence of typed items folded into the
// Fiat-Shamir heuristic and then encoded), reworked from a
// dynamically-typed item list into the concrete fixed layout the wire
// format requires.
package proof

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/fri"
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
)

// Context is the fixed-size header preceding everything else.
type Context struct {
	TraceLength     uint32
	TraceWidth      uint8
	ExtensionFactor uint8
	NumQueries      uint8
	GrindingFactor  uint8
	HashFn          uint8
}

// Query is one sampled position's authenticated data.
type Query struct {
	Position      int
	TraceRow      []field.Element
	ConstraintRow []field.Element
}

// Proof is the full decoded proof object.
//
// TraceOOD/TraceOODNext/ConstraintOOD carry the out-of-domain
// evaluations T_j(z), T_j(z*omega_trace), and C_m(z) the verifier needs
// to recompute the deep composition value at each query and check it
// against the FRI proof's first layer. Section 6's wire layout does not
// enumerate these explicitly; their presence here resolves that gap
// the way any DEEP-ALI construction must (see DESIGN.md).
type Proof struct {
	Context         Context
	PublicInputs    []field.Element
	PublicOutputs   []field.Element
	TraceRoot       merkle.Digest
	ConstraintRoot  merkle.Digest
	TraceOOD        []field.Element
	TraceOODNext    []field.Element
	ConstraintOOD   []field.Element
	Queries         []Query
	TraceProof      *merkle.BatchProof
	ConstraintProof *merkle.BatchProof
	FRI             *fri.Proof
	Nonce           uint64
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) u32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u64(v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }
func (w *writer) elem(e field.Element) {
	b := e.Bytes()
	w.buf.Write(b[:])
}
func (w *writer) elems(es []field.Element) {
	w.u32(uint32(len(es)))
	for _, e := range es {
		w.elem(e)
	}
}
func (w *writer) digest(d merkle.Digest) { w.buf.Write(d[:]) }
func (w *writer) digests(ds []merkle.Digest) {
	w.u32(uint32(len(ds)))
	for _, d := range ds {
		w.digest(d)
	}
}

func (w *writer) batchProof(bp *merkle.BatchProof) {
	w.u32(uint32(len(bp.Indices)))
	for _, idx := range bp.Indices {
		w.u32(uint32(idx))
	}
	w.u32(uint32(len(bp.Nodes)))
	for _, level := range bp.Nodes {
		w.u32(uint32(len(level)))
		for idx, d := range level {
			w.u32(uint32(idx))
			w.digest(d)
		}
	}
}

// Encode serializes a Proof into the wire format bytes described above.
func Encode(p *Proof) []byte {
	w := &writer{}

	w.u32(p.Context.TraceLength)
	w.u8(p.Context.TraceWidth)
	w.u8(p.Context.ExtensionFactor)
	w.u8(p.Context.NumQueries)
	w.u8(p.Context.GrindingFactor)
	w.u8(p.Context.HashFn)

	w.elems(p.PublicInputs)
	w.elems(p.PublicOutputs)

	w.digest(p.TraceRoot)
	w.digest(p.ConstraintRoot)

	w.elems(p.TraceOOD)
	w.elems(p.TraceOODNext)
	w.elems(p.ConstraintOOD)

	w.digests(p.FRI.Roots)
	w.elems(p.FRI.FinalLayer)

	w.u32(uint32(len(p.Queries)))
	for _, q := range p.Queries {
		w.u32(uint32(q.Position))
		w.elems(q.TraceRow)
		w.elems(q.ConstraintRow)
	}
	w.batchProof(p.TraceProof)
	w.batchProof(p.ConstraintProof)

	w.u32(uint32(len(p.FRI.Layers)))
	for _, layer := range p.FRI.Layers {
		w.u32(uint32(len(layer.Rows)))
		for idx, row := range layer.Rows {
			w.u32(uint32(idx))
			for _, e := range row {
				w.elem(e)
			}
		}
		w.batchProof(layer.Proof)
	}
	w.u32(uint32(len(p.FRI.Queries)))
	for _, q := range p.FRI.Queries {
		w.u32(uint32(len(q.RowIndices)))
		for _, idx := range q.RowIndices {
			w.u32(uint32(idx))
		}
	}

	w.u64(p.Nonce)

	return w.buf.Bytes()
}

type reader struct {
	b   []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.b) {
		return fmt.Errorf("proof: truncated, need %d bytes at offset %d, have %d", n, r.pos, len(r.b))
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.b[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) elem() (field.Element, error) {
	if err := r.need(16); err != nil {
		return field.Zero, err
	}
	var raw [16]byte
	copy(raw[:], r.b[r.pos:r.pos+16])
	r.pos += 16
	return field.SetBytes(raw), nil
}

func (r *reader) elems() ([]field.Element, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]field.Element, n)
	for i := range out {
		e, err := r.elem()
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (r *reader) digest() (merkle.Digest, error) {
	var d merkle.Digest
	if err := r.need(32); err != nil {
		return d, err
	}
	copy(d[:], r.b[r.pos:r.pos+32])
	r.pos += 32
	return d, nil
}

func (r *reader) digests() ([]merkle.Digest, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]merkle.Digest, n)
	for i := range out {
		d, err := r.digest()
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func (r *reader) batchProof() (*merkle.BatchProof, error) {
	numIdx, err := r.u32()
	if err != nil {
		return nil, err
	}
	indices := make([]int, numIdx)
	for i := range indices {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		indices[i] = int(v)
	}

	numLevels, err := r.u32()
	if err != nil {
		return nil, err
	}
	nodes := make([]map[int]merkle.Digest, numLevels)
	for l := range nodes {
		numNodes, err := r.u32()
		if err != nil {
			return nil, err
		}
		level := make(map[int]merkle.Digest, numNodes)
		for i := uint32(0); i < numNodes; i++ {
			idx, err := r.u32()
			if err != nil {
				return nil, err
			}
			d, err := r.digest()
			if err != nil {
				return nil, err
			}
			level[int(idx)] = d
		}
		nodes[l] = level
	}

	return &merkle.BatchProof{Indices: indices, Nodes: nodes}, nil
}

// Decode parses the wire format bytes into a Proof. It returns an error
// when the bytes run out before the layout is complete; it does not
// check counts or header values, which the caller (pkg/distaffstark)
// validates afterwards. The caller reports every Decode error as
// ErrProofTruncated.
func Decode(data []byte) (*Proof, error) {
	r := &reader{b: data}
	p := &Proof{}

	var err error
	if p.Context.TraceLength, err = r.u32(); err != nil {
		return nil, err
	}
	if p.Context.TraceWidth, err = r.u8(); err != nil {
		return nil, err
	}
	if p.Context.ExtensionFactor, err = r.u8(); err != nil {
		return nil, err
	}
	if p.Context.NumQueries, err = r.u8(); err != nil {
		return nil, err
	}
	if p.Context.GrindingFactor, err = r.u8(); err != nil {
		return nil, err
	}
	if p.Context.HashFn, err = r.u8(); err != nil {
		return nil, err
	}

	if p.PublicInputs, err = r.elems(); err != nil {
		return nil, err
	}
	if p.PublicOutputs, err = r.elems(); err != nil {
		return nil, err
	}
	if p.TraceRoot, err = r.digest(); err != nil {
		return nil, err
	}
	if p.ConstraintRoot, err = r.digest(); err != nil {
		return nil, err
	}

	if p.TraceOOD, err = r.elems(); err != nil {
		return nil, err
	}
	if p.TraceOODNext, err = r.elems(); err != nil {
		return nil, err
	}
	if p.ConstraintOOD, err = r.elems(); err != nil {
		return nil, err
	}

	friRoots, err := r.digests()
	if err != nil {
		return nil, err
	}
	friFinal, err := r.elems()
	if err != nil {
		return nil, err
	}
	p.FRI = &fri.Proof{Roots: friRoots, FinalLayer: friFinal}

	numQueries, err := r.u32()
	if err != nil {
		return nil, err
	}
	p.Queries = make([]Query, numQueries)
	for i := range p.Queries {
		pos, err := r.u32()
		if err != nil {
			return nil, err
		}
		traceRow, err := r.elems()
		if err != nil {
			return nil, err
		}
		constraintRow, err := r.elems()
		if err != nil {
			return nil, err
		}
		p.Queries[i] = Query{Position: int(pos), TraceRow: traceRow, ConstraintRow: constraintRow}
	}

	if p.TraceProof, err = r.batchProof(); err != nil {
		return nil, err
	}
	if p.ConstraintProof, err = r.batchProof(); err != nil {
		return nil, err
	}

	numLayers, err := r.u32()
	if err != nil {
		return nil, err
	}
	p.FRI.Layers = make([]fri.LayerBatch, numLayers)
	for l := range p.FRI.Layers {
		numRows, err := r.u32()
		if err != nil {
			return nil, err
		}
		rows := make(map[int][4]field.Element, numRows)
		for i := uint32(0); i < numRows; i++ {
			idx, err := r.u32()
			if err != nil {
				return nil, err
			}
			var row [4]field.Element
			for k := 0; k < 4; k++ {
				e, err := r.elem()
				if err != nil {
					return nil, err
				}
				row[k] = e
			}
			rows[int(idx)] = row
		}
		bp, err := r.batchProof()
		if err != nil {
			return nil, err
		}
		p.FRI.Layers[l] = fri.LayerBatch{Rows: rows, Proof: bp}
	}

	numFRIQueries, err := r.u32()
	if err != nil {
		return nil, err
	}
	p.FRI.Queries = make([]fri.QueryPath, numFRIQueries)
	for i := range p.FRI.Queries {
		numIdx, err := r.u32()
		if err != nil {
			return nil, err
		}
		indices := make([]int, numIdx)
		for k := range indices {
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			indices[k] = int(v)
		}
		p.FRI.Queries[i] = fri.QueryPath{RowIndices: indices}
	}

	if p.Nonce, err = r.u64(); err != nil {
		return nil, err
	}

	return p, nil
}
