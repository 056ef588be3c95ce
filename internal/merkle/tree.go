// tree.go - Sparse incremental Merkle tree over Poseidon.
//
// Fixed depth 16 (65536 leaf slots). Leaves are appended left to right;
// unoccupied subtrees take precomputed default values, so the root of a
// partially filled tree never touches empty slots. The root is recomputed
// from the leaf slice on demand, which keeps the structure trivially correct
// at the cost of insert-time hashing; membership proofs replay the same
// ladder. A single writer mutates the tree; the internal lock sequences
// readers against in-flight inserts.
package merkle

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/poseidon"
)

const (
	// Depth is the number of hashing levels between a leaf and the root.
	Depth = 16
	// Capacity is the leaf slot count at depth 16.
	Capacity = 1 << Depth
)

// ErrTreeFull reports an insert into a tree that already holds Capacity
// leaves. Deposits must stop; there is no recovery at this layer.
var ErrTreeFull = errors.New("merkle: tree full")

// Proof is a membership witness: the leaf index and the sibling node at each
// level, bottom-up.
type Proof struct {
	Index    uint32
	Siblings [Depth]fr.Element
}

// Tree is the in-memory mirror of the on-chain commitment tree.
type Tree struct {
	mu       sync.RWMutex
	eng      *poseidon.Engine
	leaves   []fr.Element
	defaults [Depth + 1]fr.Element
}

// NewTree builds an empty tree backed by eng. defaults[0] is the zero leaf;
// defaults[i] = H2(defaults[i-1], defaults[i-1]) fills unoccupied subtrees.
func NewTree(eng *poseidon.Engine) *Tree {
	t := &Tree{eng: eng}
	for i := 1; i <= Depth; i++ {
		t.defaults[i] = eng.Hash2(t.defaults[i-1], t.defaults[i-1])
	}
	return t
}

// Len returns the number of populated leaves.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.leaves)
}

// Insert appends leaf at the next free index and returns the index together
// with the new root. A full tree returns ErrTreeFull and changes nothing.
func (t *Tree) Insert(leaf fr.Element) (uint32, fr.Element, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.leaves) >= Capacity {
		return 0, fr.Element{}, ErrTreeFull
	}
	index := uint32(len(t.leaves))
	t.leaves = append(t.leaves, leaf)
	return index, t.root(), nil
}

// Root returns the current root. The empty tree's root is defaults[Depth].
func (t *Tree) Root() fr.Element {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root()
}

func (t *Tree) root() fr.Element {
	if len(t.leaves) == 0 {
		return t.defaults[Depth]
	}
	nodes := append([]fr.Element(nil), t.leaves...)
	for lvl := 0; lvl < Depth; lvl++ {
		next := make([]fr.Element, (len(nodes)+1)/2)
		for i := range next {
			left := nodes[2*i]
			right := t.defaults[lvl]
			if 2*i+1 < len(nodes) {
				right = nodes[2*i+1]
			}
			next[i] = t.eng.Hash2(left, right)
		}
		nodes = next
	}
	return nodes[0]
}

// Proof returns the membership proof for the leaf at index. Indexes at or
// beyond the populated range are rejected.
func (t *Tree) Proof(index uint32) (Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(index) >= len(t.leaves) {
		return Proof{}, errors.Wrapf(errs.ErrMalformedInput, "merkle: leaf index %d out of range (%d populated)", index, len(t.leaves))
	}

	p := Proof{Index: index}
	nodes := append([]fr.Element(nil), t.leaves...)
	pos := index
	for lvl := 0; lvl < Depth; lvl++ {
		sib := pos ^ 1
		if int(sib) < len(nodes) {
			p.Siblings[lvl] = nodes[sib]
		} else {
			p.Siblings[lvl] = t.defaults[lvl]
		}

		next := make([]fr.Element, (len(nodes)+1)/2)
		for i := range next {
			left := nodes[2*i]
			right := t.defaults[lvl]
			if 2*i+1 < len(nodes) {
				right = nodes[2*i+1]
			}
			next[i] = t.eng.Hash2(left, right)
		}
		nodes = next
		pos >>= 1
	}
	return p, nil
}

// VerifyProof replays proof from leaf and reports whether it reproduces root.
func VerifyProof(eng *poseidon.Engine, leaf fr.Element, proof Proof, root fr.Element) bool {
	cur := leaf
	pos := proof.Index
	for lvl := 0; lvl < Depth; lvl++ {
		if pos&1 == 1 {
			cur = eng.Hash2(proof.Siblings[lvl], cur)
		} else {
			cur = eng.Hash2(cur, proof.Siblings[lvl])
		}
		pos >>= 1
	}
	return cur.Equal(&root)
}

// DefaultNode returns the default subtree value at the given level
// (0 = leaf level). Exposed for callers that reason about empty slots.
func (t *Tree) DefaultNode(level int) (fr.Element, error) {
	if level < 0 || level > Depth {
		return fr.Element{}, errors.Wrapf(errs.ErrMalformedInput, "merkle: level %d out of range", level)
	}
	return t.defaults[level], nil
}
