// Package composition builds the DEEP composition polynomial D(x): a
// Fiat-Shamir-weighted sum of trace-quotient and constraint-quotient
// terms, evaluated over D_lde and handed to FRI.
//
// Grounded on the teacher's protocols/prover.go applyDEEP (single
// combined DEEP quotient (f(x) - f(z)) / (x - z)), generalized from one
// quotient to the full sum over every trace polynomial (at both z and
// z*omega_trace) and every constraint polynomial, each with its own
// Fiat-Shamir-drawn coefficient.
package composition

import "github.com/vybium/distaff-stark/internal/distaffstark/field"

// TraceTerm is one (alpha_j, beta_j) pair together with the trace
// column's LDE evaluations and its values at z and z*omega_trace.
type TraceTerm struct {
	Alpha, Beta field.Element
	LDE         []field.Element
	AtZ, AtZW   field.Element
}

// ConstraintTerm is one gamma_m coefficient together with a
// constraint's LDE evaluations and its value at z.
type ConstraintTerm struct {
	Gamma field.Element
	LDE   []field.Element
	AtZ   field.Element
}

// Evaluate computes D(x) over every point of D_lde (domain, the same
// evaluation domain the trace/constraint LDEs were taken over), given
// the precomputed inverses of (x - z) and (x - z*omega_trace) at each
// domain point for the Fiat-Shamir point z (the caller supplies these
// since they are shared across every term and are cheapest to
// batch-invert once up front).
func Evaluate(
	domain []field.Element,
	invXMinusZ []field.Element,
	invXMinusZW []field.Element,
	traceTerms []TraceTerm,
	constraintTerms []ConstraintTerm,
) []field.Element {
	n := len(domain)
	out := make([]field.Element, n)

	for i := 0; i < n; i++ {
		acc := field.Zero
		for _, t := range traceTerms {
			diffZ := t.LDE[i].Sub(t.AtZ).Mul(invXMinusZ[i])
			diffZW := t.LDE[i].Sub(t.AtZW).Mul(invXMinusZW[i])
			acc = acc.Add(t.Alpha.Mul(diffZ)).Add(t.Beta.Mul(diffZW))
		}
		for _, c := range constraintTerms {
			diffZ := c.LDE[i].Sub(c.AtZ).Mul(invXMinusZ[i])
			acc = acc.Add(c.Gamma.Mul(diffZ))
		}
		out[i] = acc
	}

	return out
}

// InvDenominators batch-inverts (x - z) and (x - z*omega_trace) across
// an entire domain using the supplied batch inverter (field.BatchInv,
// the Montgomery-trick helper, at the prover's call site).
func InvDenominators(domain []field.Element, z, zw field.Element, batchInv func([]field.Element) []field.Element) (invZ, invZW []field.Element) {
	n := len(domain)
	diffZ := make([]field.Element, n)
	diffZW := make([]field.Element, n)
	for i, x := range domain {
		diffZ[i] = x.Sub(z)
		diffZW[i] = x.Sub(zw)
	}
	return batchInv(diffZ), batchInv(diffZW)
}
