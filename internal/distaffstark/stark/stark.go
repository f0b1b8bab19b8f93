// Package stark orchestrates the prove and verify pipelines: derive
// domains, commit the trace, evaluate and commit constraints, sample
// the Fiat-Shamir challenges, build the deep composition polynomial,
// run FRI, grind a proof-of-work nonce, sample queries, and assemble
// (or check) the wire-format proof.
//
// Grounded on the teacher's protocols/prover.go and verifier.go staged
// pipelines (deriveDomains -> commitToTrace -> sampleChallenges ->
// computeQuotients -> commitToQuotients -> sampleOODPoint -> runFRI on
// the prover side; deriveDomains -> reconstructChallenges ->
// sampleOODPoint -> verifyAIRStructure -> verifyFRIStructure ->
// verifyMerkleStructure on the verifier side), reworked so the AIR is
// the fixed decoder+stack catalog from internal/distaffstark/air
// instead of a per-call constraint set, with grinding added as an
// explicit stage between constraint-coefficient sampling and query
// sampling.
package stark

import (
	"fmt"

	"github.com/vybium/distaff-stark/internal/distaffstark/air"
	"github.com/vybium/distaff-stark/internal/distaffstark/composition"
	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/fri"
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
	"github.com/vybium/distaff-stark/internal/distaffstark/proof"
	"github.com/vybium/distaff-stark/internal/distaffstark/trace"
	"github.com/vybium/distaff-stark/internal/distaffstark/transcript"
)

// NumConstraintColumns is the width of a constraint-evaluation row:
// one column per composition-degree bucket, plus one for the combined
// boundary residues.
const NumConstraintColumns = 5

// Domains holds the three root-of-unity generators and sizes a proof
// run needs, computed once up front and threaded explicitly rather
// than kept as package state.
type Domains struct {
	N           int // trace length
	B           int // extension factor
	LDELen      int
	OmegaTrace  field.Element
	OmegaLDE    field.Element
	OmegaLast   field.Element // omega_trace^(n-1)
}

// DeriveDomains computes the generators for D_trace and D_lde.
func DeriveDomains(n, b int) (*Domains, error) {
	omegaTrace, err := field.GetRootOfUnity(uint64(n))
	if err != nil {
		return nil, fmt.Errorf("stark: deriving omega_trace: %w", err)
	}
	omegaLDE, err := field.GetRootOfUnity(uint64(n * b))
	if err != nil {
		return nil, fmt.Errorf("stark: deriving omega_lde: %w", err)
	}
	return &Domains{
		N:          n,
		B:          b,
		LDELen:     n * b,
		OmegaTrace: omegaTrace,
		OmegaLDE:   omegaLDE,
		OmegaLast:  omegaTrace.ExpUint64(uint64(n - 1)),
	}, nil
}

// vanishingAt evaluates Z(x) = (x^n - 1) / (x - omega_trace^(n-1)) at x.
func vanishingAt(x field.Element, n int, omegaLast field.Element) field.Element {
	num := x.ExpUint64(uint64(n)).Sub(field.One)
	den := x.Sub(omegaLast)
	if den.IsZero() {
		return field.Zero
	}
	return num.Div(den)
}

// CheckTraceSatisfiesAIR verifies, on the raw trace table itself (not
// its LDE), that every boundary constraint holds exactly at its anchor
// row and every transition constraint's residue is exactly zero across
// every consecutive row pair but the last. This is the prover-side
// analogue of the teacher's claim.Validate()/params.Validate() early
// checks in protocols/prover.go: a cheap, explicit pass over n rows
// instead of discovering an unsatisfiable trace only after the
// expensive LDE/commit/FRI pipeline runs on it (or, worse, emitting a
// proof that a sound verifier would merely happen to reject). Returns
// the name of the first constraint that fails and the row it failed at.
func CheckTraceSatisfiesAIR(table *trace.Table, boundaries []air.BoundaryConstraint) error {
	n := table.Length
	for _, bc := range boundaries {
		row := 0
		if bc.AtLast {
			row = n - 1
		}
		if !table.Rows[row][bc.Column].Equal(bc.Value) {
			return fmt.Errorf("stark: boundary constraint %q violated at row %d", bc.Name, row)
		}
	}

	catalog := air.Catalog()
	for i := 0; i < n-1; i++ {
		cur := air.Row(table.Rows[i])
		next := air.Row(table.Rows[i+1])
		for _, tc := range catalog {
			if residue := tc.Eval(cur, next); !residue.IsZero() {
				return fmt.Errorf("stark: transition constraint %q violated between rows %d and %d", tc.Name, i, i+1)
			}
		}
	}
	return nil
}

// ConstraintRows evaluates the boundary and transition constraint
// catalog over every D_lde point, combining boundary residues into
// column 0 and each transition composition-degree bucket into columns
// 1..4, returning one row per LDE index.
func ConstraintRows(ext *trace.Extended, dom *Domains, boundaries []air.BoundaryConstraint) [][]field.Element {
	ldeLen := ext.LDELength
	rows := make([][]field.Element, ldeLen)
	catalog := air.Catalog()

	buckets := map[air.CompositionDegree]int{
		air.DegreeN:  1,
		air.Degree2N: 2,
		air.Degree4N: 3,
		air.Degree8N: 4,
	}

	lastRowLDEIndex := (dom.N - 1) * dom.B

	for i := 0; i < ldeLen; i++ {
		row := make([]field.Element, NumConstraintColumns)
		x := dom.OmegaLDE.ExpUint64(uint64(i)).Mul(field.Generator)

		boundaryAcc := field.Zero
		for _, bc := range boundaries {
			var anchor field.Element
			var atIndex int
			if bc.AtLast {
				anchor = dom.OmegaLast
				atIndex = lastRowLDEIndex
			} else {
				anchor = field.One
				atIndex = 0
			}
			_ = atIndex
			denom := x.Sub(anchor)
			if denom.IsZero() {
				continue
			}
			val := ext.LDE[i][bc.Column]
			boundaryAcc = boundaryAcc.Add(val.Sub(bc.Value).Div(denom))
		}
		row[0] = boundaryAcc

		cur := ext.Row(i)
		next := ext.Row((i + dom.B) % ldeLen)
		z := vanishingAt(x, dom.N, dom.OmegaLast)
		var zInv field.Element
		if !z.IsZero() {
			zInv = z.Inv()
		}

		for _, tc := range catalog {
			residue := tc.Eval(cur, next)
			if !z.IsZero() {
				residue = residue.Mul(zInv)
			}
			col := buckets[tc.Degree]
			row[col] = row[col].Add(residue)
		}

		rows[i] = row
	}

	return rows
}

// TraceTermsAt builds the composition package's per-column trace terms
// for the deep composition polynomial, sampling each trace polynomial
// at z and z*omega_trace.
func TraceTermsAt(ext *trace.Extended, dom *Domains, z field.Element, alphas, betas []field.Element) []composition.TraceTerm {
	zw := z.Mul(dom.OmegaTrace)
	terms := make([]composition.TraceTerm, ext.Width)
	for j := 0; j < ext.Width; j++ {
		col := make([]field.Element, ext.LDELength)
		for i := 0; i < ext.LDELength; i++ {
			col[i] = ext.LDE[i][j]
		}
		terms[j] = composition.TraceTerm{
			Alpha: alphas[j],
			Beta:  betas[j],
			LDE:   col,
			AtZ:   ext.ColumnAt(j, z),
			AtZW:  ext.ColumnAt(j, zw),
		}
	}
	return terms
}

// ConstraintTermsAt builds the composition package's per-bucket
// constraint terms, sampling each bucket's aggregated polynomial at z
// via direct evaluation (Horner over its interpolated coefficients).
// The rows are evaluations over the coset gamma * <omega_lde>, so the
// interpolated coefficients describe C(gamma * y); C(z) is read off at
// y = z / gamma.
func ConstraintTermsAt(constraintRows [][]field.Element, gammas []field.Element, z field.Element, interpolate func([]field.Element) ([]field.Element, error), evalAt func([]field.Element, field.Element) field.Element) ([]composition.ConstraintTerm, error) {
	numCols := NumConstraintColumns
	terms := make([]composition.ConstraintTerm, numCols)
	zOverGamma := z.Mul(field.Generator.Inv())
	for col := 0; col < numCols; col++ {
		vals := make([]field.Element, len(constraintRows))
		for i, row := range constraintRows {
			vals[i] = row[col]
		}
		coeffs, err := interpolate(vals)
		if err != nil {
			return nil, fmt.Errorf("stark: interpolating constraint column %d: %w", col, err)
		}
		terms[col] = composition.ConstraintTerm{
			Gamma: gammas[col],
			LDE:   vals,
			AtZ:   evalAt(coeffs, zOverGamma),
		}
	}
	return terms, nil
}

// Run carries the intermediate state threaded through a single prove
// or verify call: the domains, the transcript, and the hash function
// in use for Merkle commitments.
type Run struct {
	Domains *Domains
	Tr      *transcript.Transcript
	HF      merkle.HashFunction
}

// Assemble builds the final wire-format proof object from every piece
// a prove call has computed.
func Assemble(
	dom *Domains,
	hf merkle.HashFunction,
	numQueries, grindingFactor int,
	publicInputs, publicOutputs []field.Element,
	ext *trace.Extended,
	constraintRows [][]field.Element,
	constraintTree *merkle.Tree,
	traceOOD, traceOODNext, constraintOOD []field.Element,
	queryPositions []int,
	friResult *fri.Result,
	nonce uint64,
) (*proof.Proof, error) {
	traceIndices := append([]int(nil), queryPositions...)
	traceBatch, err := ext.Tree.Prove(traceIndices)
	if err != nil {
		return nil, fmt.Errorf("stark: building trace batch proof: %w", err)
	}
	constraintBatch, err := constraintTree.Prove(traceIndices)
	if err != nil {
		return nil, fmt.Errorf("stark: building constraint batch proof: %w", err)
	}

	friProof, err := fri.BuildProof(friResult, queryPositions)
	if err != nil {
		return nil, fmt.Errorf("stark: building FRI proof: %w", err)
	}

	queries := make([]proof.Query, len(queryPositions))
	for i, pos := range queryPositions {
		queries[i] = proof.Query{
			Position:      pos,
			TraceRow:      ext.Row(pos),
			ConstraintRow: constraintRows[pos],
		}
	}

	return &proof.Proof{
		Context: proof.Context{
			TraceLength:     uint32(dom.N),
			TraceWidth:      uint8(ext.Width),
			ExtensionFactor: uint8(dom.B),
			NumQueries:      uint8(numQueries),
			GrindingFactor:  uint8(grindingFactor),
			HashFn:          uint8(hashFnCode(hf)),
		},
		PublicInputs:    publicInputs,
		PublicOutputs:   publicOutputs,
		TraceRoot:       ext.Tree.Root(),
		ConstraintRoot:  constraintTree.Root(),
		TraceOOD:        traceOOD,
		TraceOODNext:    traceOODNext,
		ConstraintOOD:   constraintOOD,
		Queries:         queries,
		TraceProof:      traceBatch,
		ConstraintProof: constraintBatch,
		FRI:             friProof,
		Nonce:           nonce,
	}, nil
}

// LDEDomainPoints returns every point of D_lde = gamma * <omega_lde>.
func LDEDomainPoints(dom *Domains) []field.Element {
	out := make([]field.Element, dom.LDELen)
	for i := range out {
		out[i] = dom.OmegaLDE.ExpUint64(uint64(i)).Mul(field.Generator)
	}
	return out
}

func hashFnCode(hf merkle.HashFunction) int {
	switch hf {
	case merkle.Rescue:
		return 2
	case merkle.Sha3_256:
		return 1
	default:
		return 0
	}
}

func HashFnFromCode(code uint8) merkle.HashFunction {
	switch code {
	case 2:
		return merkle.Rescue
	case 1:
		return merkle.Sha3_256
	default:
		return merkle.Blake3_256
	}
}
