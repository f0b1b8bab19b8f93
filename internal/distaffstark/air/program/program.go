// Package program models the VM's execution graph (the AST the
// assembler produces) as a tagged recursive variant, and computes the
// program hash: a 128-bit-pair commitment to that graph via a
// post-order fold using the rescue package's hash_acc primitive.
//
// Grounded on the teacher's vm/program_hash_table.go (sponge-based
// program digest concept), reshaped from an AIR-table recording of the
// hash computation into a direct recursive fold over the graph, since
// the program hash here is a pure function the prover/verifier both
// compute off the hot path, not a witnessed trace column.
package program

import "github.com/vybium/distaff-stark/internal/distaffstark/field"

// Kind tags a Block's variant.
type Kind int

const (
	// Instructions is a straight-line sequence of opcodes.
	Instructions Kind = iota
	// Group wraps a single child block (used for nested scoping).
	Group
	// Switch holds exactly two children: the true-branch and the
	// false-branch of an if/else.
	Switch
	// Loop holds exactly one child: the loop body.
	Loop
)

// Block is one node of the execution graph.
type Block struct {
	Kind         Kind
	Instructions []field.Element // valid when Kind == Instructions
	Children     []*Block        // valid otherwise
}

// Tag is the 2-element digest a block folds down to.
type Tag [2]field.Element

// HashFunc is the hashing primitive the fold is built on: hash_acc's
// shape, (v0, v1, h) -> h'. Passed in rather than imported directly so
// this package has no hard dependency on the rescue package's exact
// call signature changing underneath it.
type HashFunc func(v0, v1, h field.Element) field.Element

// HashBlock computes a block's 2-element tag by recursively hashing
// its children (or its instruction sequence) and folding the results
// through hashAcc, matching the instruction-sequence hashing shape
// hash_ops provides for straight-line code and the block-combination
// shape hash_acc provides for control structures.
func HashBlock(b *Block, hashAcc HashFunc, hashOps func(ops []field.Element) Tag) Tag {
	switch b.Kind {
	case Instructions:
		return hashOps(b.Instructions)

	case Group:
		child := HashBlock(b.Children[0], hashAcc, hashOps)
		return Tag{hashAcc(child[0], child[1], field.Zero), field.Zero}

	case Switch:
		t0 := HashBlock(b.Children[0], hashAcc, hashOps)
		t1 := HashBlock(b.Children[1], hashAcc, hashOps)
		v0 := hashAcc(t0[0], t0[1], field.Zero)
		v1 := hashAcc(t1[0], t1[1], field.Zero)
		return Tag{v0, v1}

	case Loop:
		body := HashBlock(b.Children[0], hashAcc, hashOps)
		v0 := hashAcc(body[0], body[1], field.Zero)
		return Tag{v0, field.Zero}

	default:
		panic("program: unknown block kind")
	}
}

// ProgramHash folds a program's outermost block down to a single
// field element: hash_acc(v0_root, v1_root, 0).
func ProgramHash(root *Block, hashAcc HashFunc, hashOps func(ops []field.Element) Tag) field.Element {
	tag := HashBlock(root, hashAcc, hashOps)
	return hashAcc(tag[0], tag[1], field.Zero)
}
