// Package distaffstark is the public API: Prove turns an execution
// trace, its public boundary values, and a program into a proof's wire
// bytes; Verify checks those bytes against a program hash and the same
// public boundary values without ever seeing the trace.
//
// Grounded on the teacher's pkg/vybium-starks-vm/vm.go entry points
// (Prove/Verify as the package's only exported pipeline functions,
// options validated up front, every internal stage error wrapped into
// one typed error), reworked against the packages under
// internal/distaffstark instead of the teacher's single monolithic
// prover/verifier pair.
package distaffstark

import (
	"fmt"
	"sort"

	"github.com/vybium/distaff-stark/internal/distaffstark/air"
	"github.com/vybium/distaff-stark/internal/distaffstark/composition"
	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/fri"
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
	"github.com/vybium/distaff-stark/internal/distaffstark/polynomial"
	"github.com/vybium/distaff-stark/internal/distaffstark/proof"
	"github.com/vybium/distaff-stark/internal/distaffstark/stark"
	"github.com/vybium/distaff-stark/internal/distaffstark/trace"
	"github.com/vybium/distaff-stark/internal/distaffstark/transcript"
)

// Prove runs the full pipeline over an execution trace: extend and
// commit the trace, evaluate and commit the AIR constraints, sample
// Fiat-Shamir challenges, build and reduce the deep composition
// polynomial via FRI, grind a proof-of-work nonce, sample queries, and
// encode the resulting wire-format proof.
func Prove(executionTrace ExecutionTrace, publicInputs, publicOutputs []FieldElement, prog *Program, options ProofOptions) ([]byte, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	table, err := trace.NewTable(executionTrace.toInternalRows())
	if err != nil {
		return nil, newErr(ErrTraceMalformed, "building execution trace table", err)
	}

	dom, err := stark.DeriveDomains(table.Length, options.ExtensionFactor)
	if err != nil {
		return nil, newErr(ErrTraceMalformed, "deriving trace/LDE domains", err)
	}

	programHash := prog.Hash()
	piInternal := toInternal(publicInputs)
	poInternal := toInternal(publicOutputs)
	boundaries := air.Boundaries(piInternal, poInternal, []field.Element{programHash.inner})

	if err := stark.CheckTraceSatisfiesAIR(table, boundaries); err != nil {
		return nil, newErr(ErrConstraintUnsatisfied, "checking trace against the AIR before committing", err)
	}

	ext, err := trace.Extend(table, options.ExtensionFactor, options.HashFn)
	if err != nil {
		return nil, newErr(ErrTraceMalformed, "extending trace to the LDE domain", err)
	}

	tr := transcript.New(options.HashFn, programHash.inner, piInternal, poInternal, ext.Tree.Root())

	constraintRows := stark.ConstraintRows(ext, dom, boundaries)

	constraintTree, err := merkle.New(constraintRows, options.HashFn)
	if err != nil {
		return nil, newErr(ErrConstraintUnsatisfied, "committing constraint evaluations", err)
	}
	tr.AbsorbDigest(constraintTree.Root())

	z := tr.DrawElement()
	alphas := tr.DrawElements(ext.Width)
	betas := tr.DrawElements(ext.Width)
	gammas := tr.DrawElements(stark.NumConstraintColumns)

	traceTerms := stark.TraceTermsAt(ext, dom, z, alphas, betas)
	constraintTerms, err := stark.ConstraintTermsAt(constraintRows, gammas, z, polynomial.Interpolate, polynomial.EvalAt)
	if err != nil {
		return nil, newErr(ErrConstraintUnsatisfied, "sampling constraint columns out of domain", err)
	}

	traceOOD := make([]field.Element, len(traceTerms))
	traceOODNext := make([]field.Element, len(traceTerms))
	for j, t := range traceTerms {
		traceOOD[j] = t.AtZ
		traceOODNext[j] = t.AtZW
	}
	constraintOOD := make([]field.Element, len(constraintTerms))
	for m, c := range constraintTerms {
		constraintOOD[m] = c.AtZ
	}

	domainPoints := stark.LDEDomainPoints(dom)
	zw := z.Mul(dom.OmegaTrace)
	invZ, invZW := composition.InvDenominators(domainPoints, z, zw, field.BatchInv)
	dValues := composition.Evaluate(domainPoints, invZ, invZW, traceTerms, constraintTerms)

	friResult, err := fri.Reduce(domainPoints, dValues, tr, options.HashFn)
	if err != nil {
		return nil, newErr(ErrConstraintUnsatisfied, "reducing the deep composition polynomial via FRI", err)
	}

	nonce := tr.Grind(options.GrindingFactor)
	queryPositions := tr.DrawQueryIndices(options.NumQueries, dom.LDELen, options.ExtensionFactor)
	sort.Ints(queryPositions)

	proofObj, err := stark.Assemble(
		dom, options.HashFn, options.NumQueries, options.GrindingFactor,
		piInternal, poInternal, ext, constraintRows, constraintTree,
		traceOOD, traceOODNext, constraintOOD, queryPositions, friResult, nonce,
	)
	if err != nil {
		return nil, newErr(ErrTraceMalformed, "assembling proof", err)
	}

	return proof.Encode(proofObj), nil
}

// Verify checks a proof's wire bytes against a program hash and the
// same public inputs/outputs the prover bound into it, without access
// to the execution trace. options sets the parameters the proof must
// declare: the same extension factor and hash function, and at least
// as many queries and as large a grinding factor; a proof declaring
// anything else is rejected before any cryptographic check runs.
func Verify(programHash FieldElement, publicInputs, publicOutputs []FieldElement, proofBytes []byte, options ProofOptions) error {
	if err := options.Validate(); err != nil {
		return err
	}

	p, err := proof.Decode(proofBytes)
	if err != nil {
		return newErr(ErrProofTruncated, "decoding proof bytes", err)
	}

	b := int(p.Context.ExtensionFactor)
	n := int(p.Context.TraceLength)
	if b != 16 && b != 32 && b != 64 {
		return newErr(ErrProofMalformed, "proof declares an invalid extension factor", nil)
	}
	if n == 0 || n&(n-1) != 0 {
		return newErr(ErrProofMalformed, "proof declares a trace length that is not a power of two", nil)
	}
	hf := stark.HashFnFromCode(p.Context.HashFn)

	if b != options.ExtensionFactor {
		return newErr(ErrInvalidOptions, "proof's extension factor does not match the required options", nil)
	}
	if int(p.Context.NumQueries) < options.NumQueries {
		return newErr(ErrInvalidOptions, "proof declares fewer queries than required", nil)
	}
	if int(p.Context.GrindingFactor) < options.GrindingFactor {
		return newErr(ErrInvalidOptions, "proof declares a weaker grinding factor than required", nil)
	}
	if hf != options.HashFn {
		return newErr(ErrInvalidOptions, "proof's hash function does not match the required options", nil)
	}

	piInternal := toInternal(publicInputs)
	poInternal := toInternal(publicOutputs)
	if !elementsEqual(p.PublicInputs, piInternal) || !elementsEqual(p.PublicOutputs, poInternal) {
		return newErr(ErrProofMalformed, "proof's bound public inputs/outputs do not match the caller's", nil)
	}

	dom, err := stark.DeriveDomains(n, b)
	if err != nil {
		return newErr(ErrProofMalformed, "deriving trace/LDE domains from proof context", err)
	}

	tr := transcript.New(hf, programHash.inner, piInternal, poInternal, p.TraceRoot)
	tr.AbsorbDigest(p.ConstraintRoot)

	z := tr.DrawElement()
	zw := z.Mul(dom.OmegaTrace)
	width := int(p.Context.TraceWidth)
	alphas := tr.DrawElements(width)
	betas := tr.DrawElements(width)
	gammas := tr.DrawElements(stark.NumConstraintColumns)

	if len(p.TraceOOD) != width || len(p.TraceOODNext) != width || len(p.ConstraintOOD) != stark.NumConstraintColumns {
		return newErr(ErrProofMalformed, "proof's out-of-domain evaluation counts do not match its declared width", nil)
	}

	// The prover absorbed every FRI layer root and drew its folding
	// challenge during fri.Reduce, interleaved between the constraint
	// coefficients above and the grinding/query-sampling steps below;
	// DeriveAlphas must run here, in that same slot, or the transcript
	// desyncs from the one the prover actually walked.
	friAlphas := fri.DeriveAlphas(p.FRI, tr)

	if !tr.CheckGrinding(p.Nonce, int(p.Context.GrindingFactor)) {
		return newErr(ErrGrindingInsufficient, "proof's nonce does not meet its declared grinding factor", nil)
	}

	queryPositions := tr.DrawQueryIndices(int(p.Context.NumQueries), dom.LDELen, b)
	sort.Ints(queryPositions)

	if len(p.Queries) != len(queryPositions) {
		return newErr(ErrProofMalformed, "proof's query count does not match the re-derived sample", nil)
	}
	for i, q := range p.Queries {
		if q.Position != queryPositions[i] {
			return newErr(ErrProofMalformed, "proof's query positions do not match the re-derived sample", nil)
		}
		if len(q.TraceRow) != width || len(q.ConstraintRow) != stark.NumConstraintColumns {
			return newErr(ErrProofMalformed, "proof's query row widths do not match its declared context", nil)
		}
	}

	traceRows := make(map[int][]field.Element, len(p.Queries))
	constraintRowsByPos := make(map[int][]field.Element, len(p.Queries))
	for _, q := range p.Queries {
		traceRows[q.Position] = q.TraceRow
		constraintRowsByPos[q.Position] = q.ConstraintRow
	}

	okTrace, err := merkle.Verify(p.TraceRoot, hf, p.TraceProof, traceRows)
	if err != nil || !okTrace {
		return newErr(ErrMerkleVerifyFail, "verifying trace authentication paths", err)
	}
	okConstraint, err := merkle.Verify(p.ConstraintRoot, hf, p.ConstraintProof, constraintRowsByPos)
	if err != nil || !okConstraint {
		return newErr(ErrMerkleVerifyFail, "verifying constraint authentication paths", err)
	}

	maxDegree := n

	if len(p.FRI.Queries) != len(p.Queries) {
		return newErr(ErrProofMalformed, "proof's FRI query count does not match its query count", nil)
	}

	for i, q := range p.Queries {
		path := p.FRI.Queries[i]
		okFRI, err := fri.Verify(dom.LDELen, q.Position, path, p.FRI, friAlphas, hf, maxDegree)
		if err != nil {
			return newErr(ErrFriVerifyFail, "replaying FRI folding", err)
		}
		if !okFRI {
			return newErr(ErrFriVerifyFail, "FRI folding or final-layer degree check failed", nil)
		}

		x := dom.OmegaLDE.ExpUint64(uint64(q.Position)).Mul(field.Generator)
		deepVal := deepCompositionAt(x, z, zw, q.TraceRow, p.TraceOOD, p.TraceOODNext, alphas, betas, q.ConstraintRow, p.ConstraintOOD, gammas)

		want, err := friValueAtQuery(p.FRI, path, q.Position, dom.LDELen)
		if err != nil {
			return newErr(ErrFriVerifyFail, "locating FRI layer value for query", err)
		}
		if !deepVal.Equal(want) {
			return newErr(ErrCompositionCheckFail, "deep composition value does not match FRI's committed value", nil)
		}
	}

	return nil
}

// deepCompositionAt recomputes D(x) at a single queried point from the
// out-of-domain trace/constraint evaluations and the row's own LDE
// values at x, mirroring internal/distaffstark/composition.Evaluate but
// for one point instead of a whole domain (the verifier never needs the
// full domain, only the queried points).
func deepCompositionAt(
	x, z, zw field.Element,
	traceRow, traceOOD, traceOODNext []field.Element,
	alphas, betas []field.Element,
	constraintRow, constraintOOD []field.Element,
	gammas []field.Element,
) field.Element {
	invXMinusZ := x.Sub(z).Inv()
	invXMinusZW := x.Sub(zw).Inv()

	acc := field.Zero
	for j := range traceRow {
		diffZ := traceRow[j].Sub(traceOOD[j]).Mul(invXMinusZ)
		diffZW := traceRow[j].Sub(traceOODNext[j]).Mul(invXMinusZW)
		acc = acc.Add(alphas[j].Mul(diffZ)).Add(betas[j].Mul(diffZW))
	}
	for m := range constraintRow {
		diffZ := constraintRow[m].Sub(constraintOOD[m]).Mul(invXMinusZ)
		acc = acc.Add(gammas[m].Mul(diffZ))
	}
	return acc
}

// friValueAtQuery returns the value FRI's first committed layer (or, if
// folding never ran because the LDE domain was already at or below
// FinalLayerSize, the final layer directly) holds for the deep
// composition polynomial at the given original domain position.
func friValueAtQuery(friProof *fri.Proof, path fri.QueryPath, position, ldeLen int) (field.Element, error) {
	if len(friProof.Layers) == 0 {
		if position >= len(friProof.FinalLayer) {
			return field.Zero, fmt.Errorf("distaffstark: query position %d out of range for final layer", position)
		}
		return friProof.FinalLayer[position], nil
	}
	rowCount := ldeLen / 4
	idx := path.RowIndices[0]
	row, ok := friProof.Layers[0].Rows[idx]
	if !ok {
		return field.Zero, fmt.Errorf("distaffstark: FRI proof missing row %d at layer 0", idx)
	}
	t := position / rowCount
	if t < 0 || t > 3 {
		return field.Zero, fmt.Errorf("distaffstark: query position %d maps to out-of-range row slot %d", position, t)
	}
	return row[t], nil
}

func elementsEqual(a, b []field.Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
