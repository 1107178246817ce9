package merkle

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/shadepool/shade/internal/note"
)

var hasher = note.MiMC{}

func leaf(i int) common.Hash {
	return common.HexToHash(fmt.Sprintf("0x%02x", i+1))
}

func TestAppendIsMonotonic(t *testing.T) {
	tree := New(hasher, 8, 0)
	require.Equal(t, uint64(0), tree.Size())

	prev := tree.CurrentRoot()
	for i := 0; i < 5; i++ {
		root, idx, err := tree.Append(leaf(i))
		require.NoError(t, err)
		require.Equal(t, uint64(i), idx)
		require.Equal(t, uint64(i+1), tree.Size())
		require.NotEqual(t, prev, root)
		prev = root
	}
}

func TestAppendDeterministicGivenOrder(t *testing.T) {
	a := New(hasher, 8, 0)
	b := New(hasher, 8, 0)
	var lastA, lastB common.Hash
	for i := 0; i < 7; i++ {
		lastA, _, _ = a.Append(leaf(i))
		lastB, _, _ = b.Append(leaf(i))
	}
	require.Equal(t, lastA, lastB)

	// A different insertion order yields a different root.
	c := New(hasher, 8, 0)
	var lastC common.Hash
	for i := 6; i >= 0; i-- {
		lastC, _, _ = c.Append(leaf(i))
	}
	require.NotEqual(t, lastA, lastC)
}

func TestTreeFull(t *testing.T) {
	tree := New(hasher, 2, 0)
	for i := 0; i < 4; i++ {
		_, _, err := tree.Append(leaf(i))
		require.NoError(t, err)
	}
	_, _, err := tree.Append(leaf(4))
	require.ErrorIs(t, err, ErrTreeFull)
	require.Equal(t, uint64(4), tree.Size())
}

func TestRootWindowEviction(t *testing.T) {
	tree := New(hasher, 8, 3)

	require.True(t, tree.IsKnownRoot(tree.CurrentRoot()))
	empty := tree.CurrentRoot()

	var roots []common.Hash
	for i := 0; i < 4; i++ {
		root, _, err := tree.Append(leaf(i))
		require.NoError(t, err)
		roots = append(roots, root)
	}

	// Window of 3: the empty root and the first append are evicted.
	require.False(t, tree.IsKnownRoot(empty))
	require.False(t, tree.IsKnownRoot(roots[0]))
	require.True(t, tree.IsKnownRoot(roots[1]))
	require.True(t, tree.IsKnownRoot(roots[2]))
	require.True(t, tree.IsKnownRoot(roots[3]))

	// A root never produced by the tree is never accepted.
	require.False(t, tree.IsKnownRoot(common.HexToHash("0xdead")))
}

func TestUnboundedWindowKeepsAllRoots(t *testing.T) {
	tree := New(hasher, 8, 0)
	empty := tree.CurrentRoot()
	for i := 0; i < 10; i++ {
		_, _, err := tree.Append(leaf(i))
		require.NoError(t, err)
	}
	require.True(t, tree.IsKnownRoot(empty))
}

func TestPathVerifies(t *testing.T) {
	tree := New(hasher, 6, 0)
	for i := 0; i < 9; i++ {
		_, _, err := tree.Append(leaf(i))
		require.NoError(t, err)
	}
	for i := 0; i < 9; i++ {
		siblings, directions, root, err := tree.Path(leaf(i))
		require.NoError(t, err)
		require.Len(t, siblings, 6)
		require.Equal(t, tree.CurrentRoot(), root)
		require.Equal(t, root, VerifyPath(hasher, leaf(i), siblings, directions))
	}
}

func TestPathUnknownLeaf(t *testing.T) {
	tree := New(hasher, 6, 0)
	_, _, _, err := tree.Path(common.HexToHash("0xabc"))
	require.ErrorIs(t, err, ErrUnknownLeaf)
}
