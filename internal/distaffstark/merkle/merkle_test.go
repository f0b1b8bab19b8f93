package merkle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
)

func rows(n, width int) [][]field.Element {
	out := make([][]field.Element, n)
	for i := range out {
		row := make([]field.Element, width)
		for j := range row {
			row[j] = field.NewFromUint64(uint64(i*width + j + 1))
		}
		out[i] = row
	}
	return out
}

func TestTreeProveVerifyRoundTrip(t *testing.T) {
	for _, hf := range []merkle.HashFunction{merkle.Rescue, merkle.Sha3_256, merkle.Blake3_256} {
		leaves := rows(16, 4)
		tree, err := merkle.New(leaves, hf)
		require.NoError(t, err)

		indices := []int{1, 2, 5, 5, 9, 15}
		proof, err := tree.Prove(indices)
		require.NoError(t, err)

		queried := make(map[int][]field.Element, len(indices))
		for _, idx := range indices {
			queried[idx] = leaves[idx]
		}

		ok, err := merkle.Verify(tree.Root(), hf, proof, queried)
		require.NoError(t, err)
		require.True(t, ok, "hash function %v", hf)
	}
}

func TestTreeVerifyRejectsWrongLeaf(t *testing.T) {
	leaves := rows(8, 3)
	tree, err := merkle.New(leaves, merkle.Blake3_256)
	require.NoError(t, err)

	proof, err := tree.Prove([]int{3})
	require.NoError(t, err)

	tampered := map[int][]field.Element{3: rows(8, 3)[4]}
	ok, err := merkle.Verify(tree.Root(), merkle.Blake3_256, proof, tampered)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTreeVerifyRejectsWrongRoot(t *testing.T) {
	leaves := rows(8, 3)
	tree, err := merkle.New(leaves, merkle.Sha3_256)
	require.NoError(t, err)

	proof, err := tree.Prove([]int{0, 7})
	require.NoError(t, err)

	queried := map[int][]field.Element{0: leaves[0], 7: leaves[7]}
	var badRoot merkle.Digest
	copy(badRoot[:], tree.Root()[:])
	badRoot[0] ^= 0xFF

	ok, err := merkle.Verify(badRoot, merkle.Sha3_256, proof, queried)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := merkle.New(rows(5, 2), merkle.Rescue)
	require.Error(t, err)
}

func TestTreeDeterministic(t *testing.T) {
	leaves := rows(8, 2)
	t1, err := merkle.New(leaves, merkle.Rescue)
	require.NoError(t, err)
	t2, err := merkle.New(leaves, merkle.Rescue)
	require.NoError(t, err)
	require.Equal(t, t1.Root(), t2.Root())
}
