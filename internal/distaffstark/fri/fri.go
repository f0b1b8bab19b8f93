// Package fri implements radix-4 FRI: the prover reduces an evaluation
// domain by a factor of 4 each layer via closed-form quartic
// interpolation, committing each layer with a Merkle tree, until the
// domain shrinks to at most 256 points, which are sent in the clear; the
// verifier replays the folding and checks Merkle authentication paths
// plus the final layer's degree.
//
// Grounded on the teacher's protocols/fri.go FRIProtocol (layer/domain/
// challenge structure, Merkle-per-layer commitment, Prove/Verify
// split), reworked from its radix-2 foldFunction/computeNextDomain
// (which halves the domain each round) to radix-4 folding via
// polynomial.InterpolateQuartic, matching the row layout and the
// build_proof/verify position-remapping rule.
package fri

import (
	"fmt"

	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
	"github.com/vybium/distaff-stark/internal/distaffstark/polynomial"
	"github.com/vybium/distaff-stark/internal/distaffstark/transcript"
)

// FinalLayerSize bounds the final layer: folding stops as soon as the
// domain size is at most FinalLayerSize, and the remaining evaluations
// are sent in the clear (a 512-point domain folds once, to 128).
const FinalLayerSize = 256

// Layer is one committed folding round: its domain (the points each
// row's 4-tuple is evaluated at), the 4-tuple rows, and their Merkle
// commitment.
type Layer struct {
	Domain []field.Element
	Rows   [][4]field.Element
	Tree   *merkle.Tree
}

// Result is the full output of Reduce: every committed layer plus the
// final layer's values in the clear.
type Result struct {
	Layers     []Layer
	FinalLayer []field.Element
}

// reshape groups domain/values into |values|/4 rows of 4, preserving
// the bijection P(omega^(i + t*(|values|/4))) -> row[i][t].
func reshape(domain, values []field.Element) ([]field.Element, [][4]field.Element) {
	quarter := len(values) / 4
	rowDomain := domain[:quarter]
	rows := make([][4]field.Element, quarter)
	for i := 0; i < quarter; i++ {
		for t := 0; t < 4; t++ {
			rows[i][t] = values[i+t*quarter]
		}
	}
	return rowDomain, rows
}

// Reduce folds values (evaluations of the DEEP composition polynomial
// over domain) down to a final layer of at most FinalLayerSize, committing
// each intermediate layer and drawing the folding challenge alpha from
// the transcript after each commitment.
func Reduce(domain, values []field.Element, tr *transcript.Transcript, hf merkle.HashFunction) (*Result, error) {
	if len(domain) != len(values) {
		return nil, fmt.Errorf("fri: domain/values length mismatch")
	}
	if len(values)%4 != 0 {
		return nil, fmt.Errorf("fri: domain size %d not divisible by 4", len(values))
	}

	var layers []Layer
	curDomain, curValues := domain, values

	for len(curValues) > FinalLayerSize {
		rowDomain, rows := reshape(curDomain, curValues)

		leafRows := make([][]field.Element, len(rows))
		for i, r := range rows {
			leafRows[i] = []field.Element{r[0], r[1], r[2], r[3]}
		}
		tree, err := merkle.New(leafRows, hf)
		if err != nil {
			return nil, fmt.Errorf("fri: committing layer: %w", err)
		}
		tr.AbsorbDigest(tree.Root())
		alpha := tr.DrawElement()

		layers = append(layers, Layer{Domain: rowDomain, Rows: rows, Tree: tree})

		next := make([]field.Element, len(rows))
		for i, r := range rows {
			xs := quarticXs(rowDomain[i], len(curValues))
			coeffs, err := polynomial.InterpolateQuartic(xs, r)
			if err != nil {
				return nil, fmt.Errorf("fri: folding row %d: %w", i, err)
			}
			next[i] = polynomial.EvalAt(coeffs[:], alpha)
		}

		curDomain = foldDomain(rowDomain)
		curValues = next
	}

	return &Result{Layers: layers, FinalLayer: curValues}, nil
}

// quarticXs recovers the four domain points that a row's 4-tuple sits
// at, in row order: x, i*x, -x, -i*x, where i is the principal 4th root
// of unity taken from the order-n root for a domain of the given size n. Since the
// prover's domain is a coset of a 2^k-order subgroup, the four points
// in row i are domain elements at strides of n/4 apart starting at x.
func quarticXs(x field.Element, domainSize int) [4]field.Element {
	// The four points are x * g^(0*n/4), x * g^(1*n/4), x * g^(2*n/4),
	// x * g^(3*n/4) where g has order domainSize; equivalently they are
	// exactly the domain values at strides of domainSize/4, which the
	// reshape step already grouped together, so this recomputes them
	// from the generator of that order.
	root, err := field.GetRootOfUnity(uint64(domainSize))
	if err != nil {
		panic(err)
	}
	quarter := root.ExpUint64(uint64(domainSize / 4))
	var xs [4]field.Element
	cur := x
	for i := 0; i < 4; i++ {
		xs[i] = cur
		cur = cur.Mul(quarter)
	}
	return xs
}

func foldDomain(rowDomain []field.Element) []field.Element {
	// The next layer's domain is the image of rowDomain under x -> x^4.
	out := make([]field.Element, len(rowDomain))
	for i, x := range rowDomain {
		out[i] = x.Square().Square()
	}
	return out
}

// LayerBatch is the shared authentication structure for one layer,
// covering every queried row index at that layer in a single batched
// Merkle proof.
type LayerBatch struct {
	Rows  map[int][4]field.Element
	Proof *merkle.BatchProof
}

// QueryPath is one query's per-layer remapped row index, shared across
// queries that land on the same row via the LayerBatch above.
type QueryPath struct {
	RowIndices []int // RowIndices[layer] = remapped index into that layer
}

// Proof is the full FRI proof: one batched authentication structure
// per layer (shared across all queries that touch it), each query's
// per-layer row index, plus the final layer in the clear.
type Proof struct {
	Roots      []merkle.Digest
	Layers     []LayerBatch
	Queries    []QueryPath
	FinalLayer []field.Element
}

// BuildProof remaps each query position down through every layer
// (position mod (layerSize/4)) and builds one batched authentication
// structure per layer covering every row any query touches there, plus
// the final layer wholesale.
func BuildProof(result *Result, positions []int) (*Proof, error) {
	proof := &Proof{FinalLayer: result.FinalLayer}

	remapped := append([]int(nil), positions...)
	queries := make([]QueryPath, len(positions))
	for i := range queries {
		queries[i].RowIndices = make([]int, len(result.Layers))
	}

	for layerIdx, layer := range result.Layers {
		proof.Roots = append(proof.Roots, layer.Tree.Root())

		rowCount := len(layer.Rows)
		seen := make(map[int]bool)
		var uniqueIdx []int
		for i, p := range remapped {
			idx := p % rowCount
			remapped[i] = idx
			queries[i].RowIndices[layerIdx] = idx
			if !seen[idx] {
				seen[idx] = true
				uniqueIdx = append(uniqueIdx, idx)
			}
		}

		batch, err := layer.Tree.Prove(uniqueIdx)
		if err != nil {
			return nil, fmt.Errorf("fri: building layer %d proof: %w", layerIdx, err)
		}

		rows := make(map[int][4]field.Element, len(uniqueIdx))
		for _, idx := range uniqueIdx {
			rows[idx] = layer.Rows[idx]
		}
		proof.Layers = append(proof.Layers, LayerBatch{Rows: rows, Proof: batch})
	}

	proof.Queries = queries
	return proof, nil
}

// DeriveAlphas replays the transcript absorption of every layer root
// and draws the matching folding challenge, once, in the same order
// BuildProof committed the layers. The resulting slice is shared across
// every query's Verify call: each query reads the same rows at the same
// challenge, so re-absorbing per query would desync the transcript from
// what the prover actually saw.
func DeriveAlphas(proof *Proof, tr *transcript.Transcript) []field.Element {
	alphas := make([]field.Element, len(proof.Roots))
	for i, root := range proof.Roots {
		tr.AbsorbDigest(root)
		alphas[i] = tr.DrawElement()
	}
	return alphas
}

// Verify replays the folding for a single query (its original domain
// position and its per-layer QueryPath): checks every layer's batched
// authentication path, recomputes the folded value via quartic
// interpolation at the shared folding challenge, and checks it matches
// the next layer's (remapped) value. alphas must come from DeriveAlphas
// called once per proof, not once per query.
func Verify(
	domainSize int,
	position int,
	path QueryPath,
	proof *Proof,
	alphas []field.Element,
	hf merkle.HashFunction,
	maxDegree int,
) (bool, error) {
	curDomainSize := domainSize
	gamma := field.Generator
	var expected field.Element
	haveExpected := false

	for layerIdx, root := range proof.Roots {
		alpha := alphas[layerIdx]

		idx := path.RowIndices[layerIdx]
		lb := proof.Layers[layerIdx]
		row, ok := lb.Rows[idx]
		if !ok {
			return false, fmt.Errorf("fri: proof missing row %d at layer %d", idx, layerIdx)
		}

		if haveExpected {
			rowCount := curDomainSize / 4
			t := position / rowCount
			if !row[t].Equal(expected) {
				return false, nil
			}
		}

		rowMap := map[int][]field.Element{idx: {row[0], row[1], row[2], row[3]}}
		verified, err := merkle.Verify(root, hf, lb.Proof, rowMap)
		if err != nil {
			return false, fmt.Errorf("fri: verifying layer %d: %w", layerIdx, err)
		}
		if !verified {
			return false, nil
		}

		root4, err := field.GetRootOfUnity(uint64(curDomainSize))
		if err != nil {
			return false, err
		}
		quarter := root4.ExpUint64(uint64(curDomainSize / 4))
		x := gamma.Mul(root4.ExpUint64(uint64(idx)))
		var xs [4]field.Element
		cur := x
		for k := 0; k < 4; k++ {
			xs[k] = cur
			cur = cur.Mul(quarter)
		}

		coeffs, err := polynomial.InterpolateQuartic(xs, row)
		if err != nil {
			return false, fmt.Errorf("fri: interpolating layer %d row: %w", layerIdx, err)
		}
		expected = polynomial.EvalAt(coeffs[:], alpha)
		haveExpected = true

		// foldDomain takes each point to its 4th power each layer, so
		// the coset offset the prover applied (gamma at layer 0) must be
		// carried through the same x -> x^4 evolution to stay in step.
		gamma = gamma.Square().Square()
		curDomainSize = curDomainSize / 4
		position = idx
	}

	if haveExpected && !proof.FinalLayer[position].Equal(expected) {
		return false, nil
	}

	coeffs, err := polynomial.Interpolate(proof.FinalLayer)
	if err != nil {
		return false, fmt.Errorf("fri: interpolating final layer: %w", err)
	}
	finalMaxDegree := maxDegree / pow4(len(proof.Roots))
	if polynomial.Degree(coeffs) > finalMaxDegree {
		return false, nil
	}

	return true, nil
}

func pow4(n int) int {
	out := 1
	for i := 0; i < n; i++ {
		out *= 4
	}
	return out
}
