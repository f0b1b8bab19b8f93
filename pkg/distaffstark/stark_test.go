package distaffstark_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vybium/distaff-stark/internal/distaffstark/air"
	distaffstark "github.com/vybium/distaff-stark/pkg/distaffstark"
)

// buildTrivialTrace returns an n-row, all-NOOP execution trace (every
// opcode column is zero, so none of the decoder/flow/stack transition
// constraints in the catalog ever gate on) with a single public input
// pinned at row 0, a single public output pinned at row n-1, and the
// given program hash pinned on the sponge head at row n-1 — the three
// boundary constraints air.Boundaries declares for a one-input,
// one-output program.
func buildTrivialTrace(n int, input, output, programHash distaffstark.FieldElement) distaffstark.ExecutionTrace {
	width := air.ColStack0 + 1
	rows := make([][]distaffstark.FieldElement, n)
	for i := range rows {
		row := make([]distaffstark.FieldElement, width)
		for j := range row {
			row[j] = distaffstark.NewFieldElement(0)
		}
		rows[i] = row
	}
	rows[0][air.ColStack0] = input
	rows[n-1][air.ColStack0] = output
	rows[n-1][air.ColSponge0] = programHash
	return distaffstark.ExecutionTrace{Rows: rows}
}

func trivialProgram() *distaffstark.Program {
	return &distaffstark.Program{
		Root: &distaffstark.Block{
			Kind: distaffstark.Instructions,
			Instructions: []distaffstark.FieldElement{
				distaffstark.NewFieldElement(8),
				distaffstark.NewFieldElement(9),
			},
		},
	}
}

func smallOptions() distaffstark.ProofOptions {
	return distaffstark.ProofOptions{
		ExtensionFactor: 16,
		NumQueries:      8,
		GrindingFactor:  0,
		HashFn:          distaffstark.Blake3_256Hash,
	}
}

// S1: a simple trace proves, and verifies against the matching program
// hash and public boundary values.
func TestProveVerifyRoundTrip(t *testing.T) {
	prog := trivialProgram()
	programHash := prog.Hash()

	input := distaffstark.NewFieldElement(5)
	output := distaffstark.NewFieldElement(5)
	trace := buildTrivialTrace(32, input, output, programHash)
	opts := smallOptions()

	proofBytes, err := distaffstark.Prove(trace, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, prog, opts)
	require.NoError(t, err)
	require.NotEmpty(t, proofBytes)

	err = distaffstark.Verify(programHash, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, proofBytes, opts)
	require.NoError(t, err)
}

// S2-style cross-run rejection: a proof bound to one set of public
// outputs must not verify against a different declared output, even
// though the program hash and options are identical.
func TestVerifyRejectsMismatchedPublicOutput(t *testing.T) {
	prog := trivialProgram()
	programHash := prog.Hash()

	input := distaffstark.NewFieldElement(1)
	output := distaffstark.NewFieldElement(7)
	trace := buildTrivialTrace(32, input, output, programHash)
	opts := smallOptions()

	proofBytes, err := distaffstark.Prove(trace, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, prog, opts)
	require.NoError(t, err)

	wrongOutput := distaffstark.NewFieldElement(9)
	err = distaffstark.Verify(programHash, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{wrongOutput}, proofBytes, opts)
	require.Error(t, err)

	var derr *distaffstark.DistaffError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, distaffstark.ErrProofMalformed, derr.Code)
}

// S6: a trace whose final stack value contradicts the declared public
// output must be rejected by the prover itself, before any proof is
// produced.
func TestProveRejectsTraceViolatingBoundary(t *testing.T) {
	prog := trivialProgram()
	programHash := prog.Hash()

	input := distaffstark.NewFieldElement(1)
	declaredOutput := distaffstark.NewFieldElement(7)
	trace := buildTrivialTrace(32, input, declaredOutput, programHash)
	// Corrupt the private trace's final value without touching the
	// declared public output.
	trace.Rows[len(trace.Rows)-1][air.ColStack0] = distaffstark.NewFieldElement(9)

	opts := smallOptions()
	proofBytes, err := distaffstark.Prove(trace, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{declaredOutput}, prog, opts)
	require.Error(t, err)
	require.Nil(t, proofBytes)

	var derr *distaffstark.DistaffError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, distaffstark.ErrConstraintUnsatisfied, derr.Code)
}

// Flipping a byte inside a valid proof must cause verification to
// reject (spec.md S1's MerkleVerifyFail scenario, generalized: the
// specific failure mode a corrupted trace-root byte trips depends on
// how far the corruption propagates through the Fiat-Shamir transcript,
// but it must never verify).
func TestVerifyRejectsTamperedProofBytes(t *testing.T) {
	prog := trivialProgram()
	programHash := prog.Hash()

	input := distaffstark.NewFieldElement(2)
	output := distaffstark.NewFieldElement(2)
	trace := buildTrivialTrace(32, input, output, programHash)
	opts := smallOptions()

	proofBytes, err := distaffstark.Prove(trace, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, prog, opts)
	require.NoError(t, err)

	// Context header (9 bytes) + public-inputs vector (4-byte length
	// prefix + 16-byte element) + public-outputs vector (same shape)
	// precede the trace root, per proof.Encode's field order.
	traceRootOffset := 9 + (4 + 16) + (4 + 16)
	tampered := append([]byte(nil), proofBytes...)
	tampered[traceRootOffset] ^= 0xFF

	err = distaffstark.Verify(programHash, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, tampered, opts)
	require.Error(t, err)
}

func TestVerifyRejectsWrongProgramHash(t *testing.T) {
	prog := trivialProgram()
	programHash := prog.Hash()

	input := distaffstark.NewFieldElement(3)
	output := distaffstark.NewFieldElement(3)
	trace := buildTrivialTrace(32, input, output, programHash)
	opts := smallOptions()

	proofBytes, err := distaffstark.Prove(trace, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, prog, opts)
	require.NoError(t, err)

	wrongHash := distaffstark.NewFieldElement(programHash.Uint64() + 1)
	err = distaffstark.Verify(wrongHash, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, proofBytes, opts)
	require.Error(t, err)
}

func TestProveRejectsInvalidOptions(t *testing.T) {
	prog := trivialProgram()
	programHash := prog.Hash()
	input := distaffstark.NewFieldElement(1)
	output := distaffstark.NewFieldElement(1)
	trace := buildTrivialTrace(32, input, output, programHash)

	bad := smallOptions()
	bad.ExtensionFactor = 3
	_, err := distaffstark.Prove(trace, []distaffstark.FieldElement{input}, []distaffstark.FieldElement{output}, prog, bad)
	require.Error(t, err)

	var derr *distaffstark.DistaffError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, distaffstark.ErrInvalidOptions, derr.Code)
}
