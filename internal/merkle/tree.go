// tree.go - Append-only Merkle accumulator of note commitments.
//
// The tree has a fixed depth and grows strictly left to right, one leaf per
// append. Empty subtrees hash to a precomputed zeros chain, so the root is
// well defined at every size. Duplicate leaves are rejected upstream by the
// spend registry, never here.

package merkle

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shadepool/shade/internal/note"
)

var (
	// ErrTreeFull is returned once 2^depth leaves have been appended.
	ErrTreeFull = errors.New("merkle: tree is full")
	// ErrUnknownLeaf is returned by Path for a commitment never appended.
	ErrUnknownLeaf = errors.New("merkle: unknown leaf")
)

// Tree is the commitment accumulator. It is not safe for concurrent use;
// the orchestrator is its single writer.
type Tree struct {
	hasher note.Hasher
	depth  int
	zeros  []common.Hash   // zeros[i] is the root of an empty subtree of height i
	nodes  [][]common.Hash // nodes[0] are leaves, nodes[depth] holds the root
	index  map[common.Hash]uint64
	roots  *rootWindow
}

// New builds an empty tree of the given depth. rootWindow bounds the
// accepted-root history; zero keeps every root ever produced.
func New(hasher note.Hasher, depth, rootWindow int) *Tree {
	t := &Tree{
		hasher: hasher,
		depth:  depth,
		zeros:  make([]common.Hash, depth+1),
		nodes:  make([][]common.Hash, depth+1),
		index:  make(map[common.Hash]uint64),
		roots:  newRootWindow(rootWindow),
	}
	for i := 0; i < depth; i++ {
		t.zeros[i+1] = t.hashPair(t.zeros[i], t.zeros[i])
	}
	t.roots.push(t.zeros[depth])
	return t
}

// Size returns the number of appended leaves.
func (t *Tree) Size() uint64 {
	return uint64(len(t.nodes[0]))
}

// Depth returns the fixed tree depth.
func (t *Tree) Depth() int {
	return t.depth
}

// CurrentRoot returns the root after the latest append.
func (t *Tree) CurrentRoot() common.Hash {
	if len(t.nodes[t.depth]) == 0 {
		return t.zeros[t.depth]
	}
	return t.nodes[t.depth][0]
}

// IsKnownRoot reports whether the root is still inside the accepted
// history window. Operations referencing older or foreign roots fail.
func (t *Tree) IsKnownRoot(root common.Hash) bool {
	return t.roots.contains(root)
}

// Append inserts a commitment as the next leaf and returns the new root
// and the leaf index. The tree size strictly increases by one per call.
func (t *Tree) Append(commitment common.Hash) (common.Hash, uint64, error) {
	idx := uint64(len(t.nodes[0]))
	if idx >= uint64(1)<<t.depth {
		return common.Hash{}, 0, ErrTreeFull
	}

	cur := commitment
	i := idx
	t.setNode(0, i, cur)
	for level := 0; level < t.depth; level++ {
		var left, right common.Hash
		if i%2 == 0 {
			left = t.nodes[level][i]
			right = t.zeros[level] // right sibling not inserted yet
			if i+1 < uint64(len(t.nodes[level])) {
				right = t.nodes[level][i+1]
			}
		} else {
			left = t.nodes[level][i-1]
			right = t.nodes[level][i]
		}
		cur = t.hashPair(left, right)
		i /= 2
		t.setNode(level+1, i, cur)
	}

	if _, dup := t.index[commitment]; !dup {
		t.index[commitment] = idx
	}
	root := t.nodes[t.depth][0]
	t.roots.push(root)
	return root, idx, nil
}

// Path returns the membership path for a commitment: sibling hashes from
// leaf to root, the direction at each level (true when the path node is a
// right child), and the current root the path verifies against.
func (t *Tree) Path(commitment common.Hash) ([]common.Hash, []bool, common.Hash, error) {
	idx, ok := t.index[commitment]
	if !ok {
		return nil, nil, common.Hash{}, ErrUnknownLeaf
	}
	siblings := make([]common.Hash, t.depth)
	directions := make([]bool, t.depth)
	i := idx
	for level := 0; level < t.depth; level++ {
		sib := i ^ 1
		if sib < uint64(len(t.nodes[level])) {
			siblings[level] = t.nodes[level][sib]
		} else {
			siblings[level] = t.zeros[level]
		}
		directions[level] = i%2 == 1
		i /= 2
	}
	return siblings, directions, t.CurrentRoot(), nil
}

// VerifyPath recomputes the root from a leaf and its path.
func VerifyPath(hasher note.Hasher, leaf common.Hash, siblings []common.Hash, directions []bool) common.Hash {
	cur := leaf
	t := Tree{hasher: hasher}
	for i, sib := range siblings {
		if directions[i] {
			cur = t.hashPair(sib, cur)
		} else {
			cur = t.hashPair(cur, sib)
		}
	}
	return cur
}

func (t *Tree) setNode(level int, i uint64, h common.Hash) {
	if i == uint64(len(t.nodes[level])) {
		t.nodes[level] = append(t.nodes[level], h)
		return
	}
	t.nodes[level][i] = h
}

func (t *Tree) hashPair(left, right common.Hash) common.Hash {
	return t.hasher.Hash(
		new(big.Int).SetBytes(left[:]),
		new(big.Int).SetBytes(right[:]),
	)
}
