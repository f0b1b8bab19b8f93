package distaffstark

import (
	"github.com/vybium/distaff-stark/internal/distaffstark/air/program"
	"github.com/vybium/distaff-stark/internal/distaffstark/field"
)

// FieldElement is an opaque base-field value. Callers build them with
// NewFieldElement and never need to see the internal representation.
type FieldElement struct{ inner field.Element }

// NewFieldElement wraps a uint64 as a field element.
func NewFieldElement(v uint64) FieldElement {
	return FieldElement{inner: field.NewFromUint64(v)}
}

// Uint64 returns the element's value truncated to 64 bits; intended
// for display, not for round-tripping elements near the field's size.
func (e FieldElement) Uint64() uint64 {
	b := e.inner.Bytes()
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func toInternal(es []FieldElement) []field.Element {
	out := make([]field.Element, len(es))
	for i, e := range es {
		out[i] = e.inner
	}
	return out
}

func fromInternal(es []field.Element) []FieldElement {
	out := make([]FieldElement, len(es))
	for i, e := range es {
		out[i] = FieldElement{inner: e}
	}
	return out
}

// ExecutionTrace is the n x k VM state table, row i holding state
// after cycle i.
type ExecutionTrace struct {
	Rows [][]FieldElement
}

func (t ExecutionTrace) toInternalRows() [][]field.Element {
	rows := make([][]field.Element, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = toInternal(r)
	}
	return rows
}

// BlockKind tags a Block's variant in the program's execution graph.
type BlockKind int

const (
	Instructions BlockKind = BlockKind(program.Instructions)
	Group        BlockKind = BlockKind(program.Group)
	Switch       BlockKind = BlockKind(program.Switch)
	Loop         BlockKind = BlockKind(program.Loop)
)

// Block is one node of a program's execution graph: either a
// straight-line instruction sequence, or a control structure wrapping
// one or two child blocks.
type Block struct {
	Kind         BlockKind
	Instructions []FieldElement
	Children     []*Block
}

func (b *Block) toInternal() *program.Block {
	if b == nil {
		return nil
	}
	children := make([]*program.Block, len(b.Children))
	for i, c := range b.Children {
		children[i] = c.toInternal()
	}
	return &program.Block{
		Kind:         program.Kind(b.Kind),
		Instructions: toInternal(b.Instructions),
		Children:     children,
	}
}

// Program is the compiled execution graph the prover and verifier
// compute a program hash from.
type Program struct {
	Root *Block
}

// Hash computes the program's 128-bit-field commitment: a post-order
// fold of the execution graph through hash_acc/hash_ops.
func (p *Program) Hash() FieldElement {
	root := p.Root.toInternal()
	h := program.ProgramHash(root, hashAccAdapter, hashOpsAdapter)
	return FieldElement{inner: h}
}
