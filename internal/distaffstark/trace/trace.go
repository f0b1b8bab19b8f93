// Package trace implements the execution trace table (an n x k matrix
// of field elements, one row per VM cycle) and the LDE pipeline that
// turns it into committed trace polynomials.
//
// Grounded on the teacher's protocols/air.go ArithmetizeTrace
// (interpolate-over-the-trace-domain, then extend-to-the-LDE-domain,
// then commit pipeline), replaced per-column Lagrange interpolation
// with the NTT kernel from internal/distaffstark/polynomial, and
// dropped ArithmetizeTrace's random blinding-polynomial step: DEEP-ALI
// samples trace values directly at Fiat-Shamir-drawn points rather than
// masking the committed evaluations, so no blinding term is needed.
package trace

import (
	"fmt"

	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
	"github.com/vybium/distaff-stark/internal/distaffstark/polynomial"
)

// NumDecoderColumns is k_dec: op_code, op_bits (7), sponge (4),
// context_stack top (1), loop_stack top (1).
const NumDecoderColumns = 14

// MaxStackColumns is the upper bound on k_stk the spec allows.
const MaxStackColumns = 32

// Table is the raw n x k execution trace, row i holding VM state after cycle i.
type Table struct {
	Rows   [][]field.Element // len(Rows) == n, each len == Width
	Width  int
	Length int
}

// NewTable validates and wraps a caller-built trace matrix.
func NewTable(rows [][]field.Element) (*Table, error) {
	n := len(rows)
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("trace: length %d is not a power of two", n)
	}
	width := len(rows[0])
	if width < NumDecoderColumns {
		return nil, fmt.Errorf("trace: width %d smaller than decoder column count %d", width, NumDecoderColumns)
	}
	if width > NumDecoderColumns+MaxStackColumns {
		return nil, fmt.Errorf("trace: width %d exceeds max %d", width, NumDecoderColumns+MaxStackColumns)
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("trace: row %d has width %d, want %d", i, len(row), width)
		}
	}
	return &Table{Rows: rows, Width: width, Length: n}, nil
}

func (t *Table) column(j int) []field.Element {
	col := make([]field.Element, t.Length)
	for i := 0; i < t.Length; i++ {
		col[i] = t.Rows[i][j]
	}
	return col
}

// Extended is the result of extend(trace, b): the interpolated trace
// polynomials (coefficient form, length n), their evaluations over
// D_lde stored row by row, and the Merkle commitment to the LDE rows.
type Extended struct {
	Polynomials [][]field.Element // Polynomials[j], degree < n, coefficient form
	LDE         [][]field.Element // LDE[i][j] = T_j(gamma * omega_lde^i)
	Tree        *merkle.Tree
	Width       int
	TraceLength int
	LDELength   int
}

// Extend interpolates each trace column over D_trace, extends it to
// D_lde by zero-padding and a coset shift by field.Generator, then
// commits to the resulting LDE rows with the given hash function.
func Extend(t *Table, b int, hf merkle.HashFunction) (*Extended, error) {
	if b != 16 && b != 32 && b != 64 {
		return nil, fmt.Errorf("trace: extension factor %d must be one of 16, 32, 64", b)
	}

	n := t.Length
	ldeLen := n * b

	polys := make([][]field.Element, t.Width)
	ldeCols := make([][]field.Element, t.Width)

	for j := 0; j < t.Width; j++ {
		col := t.column(j)
		coeffs, err := polynomial.Interpolate(col)
		if err != nil {
			return nil, fmt.Errorf("trace: interpolating column %d: %w", j, err)
		}
		polys[j] = coeffs

		padded := make([]field.Element, ldeLen)
		copy(padded, coeffs)

		shifted := polynomial.ShiftDomain(padded, field.Generator)

		vals, err := polynomial.Evaluate(shifted)
		if err != nil {
			return nil, fmt.Errorf("trace: extending column %d to LDE: %w", j, err)
		}
		ldeCols[j] = vals
	}

	rows := make([][]field.Element, ldeLen)
	for i := 0; i < ldeLen; i++ {
		row := make([]field.Element, t.Width)
		for j := 0; j < t.Width; j++ {
			row[j] = ldeCols[j][i]
		}
		rows[i] = row
	}

	tree, err := merkle.New(rows, hf)
	if err != nil {
		return nil, fmt.Errorf("trace: committing LDE rows: %w", err)
	}

	return &Extended{
		Polynomials: polys,
		LDE:         rows,
		Tree:        tree,
		Width:       t.Width,
		TraceLength: n,
		LDELength:   ldeLen,
	}, nil
}

// ColumnAt evaluates trace polynomial j at an arbitrary field point,
// used by the DEEP composition stage to sample T_j(z) and T_j(z*omega).
func (e *Extended) ColumnAt(j int, x field.Element) field.Element {
	return polynomial.EvalAt(e.Polynomials[j], x)
}

// Row returns the full trace row at LDE index i (all k columns).
func (e *Extended) Row(i int) []field.Element {
	return e.LDE[i]
}

// EvDomainValues returns column j's values sampled at D_ev, which has
// size n*rho and is obtained by taking every (b/rho)-th point of D_lde
// (b/rho must divide evenly).
func (e *Extended) EvDomainValues(j int, rho int) ([]field.Element, error) {
	b := e.LDELength / e.TraceLength
	if b%rho != 0 {
		return nil, fmt.Errorf("trace: extension factor %d not divisible by rho %d", b, rho)
	}
	stride := b / rho
	evLen := e.TraceLength * rho
	out := make([]field.Element, evLen)
	for i := 0; i < evLen; i++ {
		out[i] = e.LDE[i*stride][j]
	}
	return out, nil
}
