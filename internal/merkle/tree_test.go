package merkle

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
	"github.com/veilpay/shieldpool/internal/poseidon"
)

func newEngine(t *testing.T) *poseidon.Engine {
	t.Helper()
	eng, err := poseidon.New()
	require.NoError(t, err)
	return eng
}

func TestEmptyRootIsDefaultLadder(t *testing.T) {
	eng := newEngine(t)
	tree := NewTree(eng)

	// Hand-roll the ladder: H2 of the zero leaf with itself, 16 times up.
	var want fr.Element
	for i := 0; i < Depth; i++ {
		want = eng.Hash2(want, want)
	}
	got := tree.Root()
	require.True(t, want.Equal(&got))

	top, err := tree.DefaultNode(Depth)
	require.NoError(t, err)
	require.True(t, want.Equal(&top))
}

func TestTwoLeafRootMatchesHandComputation(t *testing.T) {
	eng := newEngine(t)
	tree := NewTree(eng)

	l0 := field.FromUint64(11)
	l1 := field.FromUint64(22)

	idx0, _, err := tree.Insert(l0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), idx0)

	idx1, root, err := tree.Insert(l1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), idx1)

	// With two leaves the bottom node is H2(l0, l1); every level above pairs
	// with the default ladder.
	want := eng.Hash2(l0, l1)
	for lvl := 1; lvl < Depth; lvl++ {
		def, err := tree.DefaultNode(lvl)
		require.NoError(t, err)
		want = eng.Hash2(want, def)
	}
	require.True(t, want.Equal(&root))
}

func TestRootDependsOnlyOnLeafSequence(t *testing.T) {
	eng := newEngine(t)
	a := NewTree(eng)
	b := NewTree(eng)

	leaves := []fr.Element{
		field.FromUint64(5), field.FromUint64(7), field.FromUint64(9),
		field.FromUint64(11), field.FromUint64(13),
	}
	for _, l := range leaves {
		_, _, err := a.Insert(l)
		require.NoError(t, err)
		_, _, err = b.Insert(l)
		require.NoError(t, err)
	}
	rootA, rootB := a.Root(), b.Root()
	require.True(t, rootA.Equal(&rootB), "identical leaf sequences must agree on the root")
}

func TestEveryInsertChangesRoot(t *testing.T) {
	eng := newEngine(t)
	tree := NewTree(eng)

	prev := tree.Root()
	for i := uint64(1); i <= 8; i++ {
		_, root, err := tree.Insert(field.FromUint64(i))
		require.NoError(t, err)
		require.False(t, prev.Equal(&root), "insert %d left the root unchanged", i)
		prev = root
	}
}

func TestInsertionOrderMatters(t *testing.T) {
	eng := newEngine(t)
	a := NewTree(eng)
	b := NewTree(eng)

	x, y := field.FromUint64(1), field.FromUint64(2)
	_, _, err := a.Insert(x)
	require.NoError(t, err)
	_, _, err = a.Insert(y)
	require.NoError(t, err)
	_, _, err = b.Insert(y)
	require.NoError(t, err)
	_, _, err = b.Insert(x)
	require.NoError(t, err)

	rootA, rootB := a.Root(), b.Root()
	require.False(t, rootA.Equal(&rootB))
}

func TestProofReplay(t *testing.T) {
	eng := newEngine(t)
	tree := NewTree(eng)

	var leaves []fr.Element
	for i := uint64(100); i < 105; i++ {
		leaves = append(leaves, field.FromUint64(i))
		_, _, err := tree.Insert(leaves[len(leaves)-1])
		require.NoError(t, err)
	}
	root := tree.Root()

	for i, leaf := range leaves {
		proof, err := tree.Proof(uint32(i))
		require.NoError(t, err)
		require.True(t, VerifyProof(eng, leaf, proof, root), "proof for leaf %d failed", i)
	}
}

func TestProofRejectsTampering(t *testing.T) {
	eng := newEngine(t)
	tree := NewTree(eng)

	leaf := field.FromUint64(42)
	idx, root, err := tree.Insert(leaf)
	require.NoError(t, err)
	_, _, err = tree.Insert(field.FromUint64(43))
	require.NoError(t, err)
	root = tree.Root()

	proof, err := tree.Proof(idx)
	require.NoError(t, err)

	// Perturbed sibling.
	tampered := proof
	var one fr.Element
	one.SetOne()
	tampered.Siblings[3].Add(&tampered.Siblings[3], &one)
	require.False(t, VerifyProof(eng, leaf, tampered, root))

	// Wrong index flips sibling orientation.
	wrongIndex := proof
	wrongIndex.Index = idx + 1
	require.False(t, VerifyProof(eng, leaf, wrongIndex, root))

	// Wrong leaf.
	require.False(t, VerifyProof(eng, field.FromUint64(41), proof, root))
}

func TestProofIndexOutOfRange(t *testing.T) {
	eng := newEngine(t)
	tree := NewTree(eng)

	_, err := tree.Proof(0)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, _, err = tree.Insert(field.FromUint64(1))
	require.NoError(t, err)

	_, err = tree.Proof(1)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = tree.Proof(Capacity)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}
