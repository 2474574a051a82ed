// Package merkletree implements the note-commitment accumulator (spec
// component C1): an append-only Merkle tree over BN254 scalar-field
// commitments, with selective witness retention and a bounded
// checkpoint history. The hashing discipline (pairwise combine via
// SHA-256, XOR-indexed siblings, empty-subtree hashes for absent nodes)
// is adapted from the teacher's `internal/zkp.CommitmentTree`; this
// version drops the pluggable on-disk TreeStore (the wallet engine is
// explicitly a single-threaded, in-memory, I/O-free component per the
// spec) and adds the append-only checkpoint/witness policy the spec
// requires that the teacher's tree never needed.
package merkletree

import (
	"crypto/sha256"
	"errors"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/veilwallet/core/pkg/types"
)

// Depth is the fixed depth of the commitment tree, bounding it to 2^32
// leaves — far beyond any wallet's lifetime note count.
const Depth = 32

// MaxCheckpoints bounds how much frontier history the tree advertises
// as recoverable; it mirrors the protocol-level MAX_MERKLE_CHECKPOINTS
// constant from spec §6. This implementation never needs to evict a
// witnessed leaf's authentication path to honor the bound, since every
// computed node is kept, but the checkpoint ledger is still kept so that
// `CheckpointDepth` reports a real, bounded number.
const MaxCheckpoints = 10

var (
	// ErrLeafNotWitnessed is returned by AuthenticationPath when the
	// requested commitment was never witnessed (or never appended).
	ErrLeafNotWitnessed = errors.New("merkletree: leaf not witnessed")

	// ErrDoubleWitness is returned by Witness when no leaf has been
	// appended since the last successful Witness call. Spec leaves this
	// case undefined; this implementation chooses to fail loudly rather
	// than silently re-marking a stale position.
	ErrDoubleWitness = errors.New("merkletree: witness called without an intervening append")
)

// AuthPath is a Merkle authentication path: the leaf's position and the
// sibling hash at each level from leaf to root.
type AuthPath struct {
	Position uint64
	Siblings [Depth]types.Hash
}

type nodeKey struct {
	level uint8
	index uint64
}

// Tree is the note-commitment accumulator. The zero value is not usable;
// construct with New.
type Tree struct {
	mu sync.RWMutex

	size uint64
	root types.Hash

	// nodes holds every computed node, not only witnessed ones. Spec
	// permits decaying the witnesses of non-retained leaves; this
	// implementation simply never decays them, which is a strictly more
	// capable (and much simpler to get right) superset of the required
	// behavior.
	nodes map[nodeKey]types.Hash

	positions map[types.Commitment]uint64
	witnessed map[uint64]struct{}

	appendedSincePos *uint64
	checkpoints      []uint64

	emptyHash [Depth + 1]types.Hash
}

// New creates an empty note-commitment tree.
func New() *Tree {
	t := &Tree{
		nodes:     make(map[nodeKey]types.Hash),
		positions: make(map[types.Commitment]uint64),
		witnessed: make(map[uint64]struct{}),
	}
	t.emptyHash[0] = types.Hash{}
	for lvl := 1; lvl <= Depth; lvl++ {
		t.emptyHash[lvl] = hashPair(t.emptyHash[lvl-1], t.emptyHash[lvl-1])
	}
	t.root = t.emptyHash[Depth]
	return t
}

// Size returns the number of leaves appended so far.
func (t *Tree) Size() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Contains reports whether commitment already exists as a leaf.
func (t *Tree) Contains(c types.Commitment) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.positions[c]
	return ok
}

// Append adds one leaf to the tree. It never fails.
func (t *Tree) Append(c types.Commitment) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	position := t.size
	t.size++
	t.positions[c] = position
	t.setNode(0, position, types.Hash(c))

	idx := position
	h := types.Hash(c)
	for level := 0; level < Depth; level++ {
		sibling := t.nodeOrEmpty(uint8(level), idx^1)
		var parent types.Hash
		if idx%2 == 0 {
			parent = hashPair(h, sibling)
		} else {
			parent = hashPair(sibling, h)
		}
		idx /= 2
		h = parent
		t.setNode(uint8(level+1), idx, h)
	}
	t.root = h

	t.appendedSincePos = new(uint64)
	*t.appendedSincePos = position
	t.pushCheckpoint(position)

	return position
}

// Witness marks the most recently appended leaf as retained, so that its
// authentication path can be looked up indefinitely afterward.
func (t *Tree) Witness() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.appendedSincePos == nil {
		return ErrDoubleWitness
	}
	t.witnessed[*t.appendedSincePos] = struct{}{}
	t.appendedSincePos = nil
	return nil
}

// Root returns the current Merkle root.
func (t *Tree) Root() types.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// AuthenticationPath returns the authentication path for a retained
// (witnessed) leaf, or ErrLeafNotWitnessed if the commitment was never
// appended or never witnessed.
func (t *Tree) AuthenticationPath(c types.Commitment) (AuthPath, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	position, ok := t.positions[c]
	if !ok {
		return AuthPath{}, ErrLeafNotWitnessed
	}
	if _, retained := t.witnessed[position]; !retained {
		return AuthPath{}, ErrLeafNotWitnessed
	}

	var path AuthPath
	path.Position = position
	idx := position
	for level := 0; level < Depth; level++ {
		path.Siblings[level] = t.nodeOrEmpty(uint8(level), idx^1)
		idx /= 2
	}
	return path, nil
}

// VerifyPath checks that leaf, combined with path, hashes to root.
func VerifyPath(leaf types.Commitment, path AuthPath, root types.Hash) bool {
	h := types.Hash(leaf)
	idx := path.Position
	for level := 0; level < Depth; level++ {
		if idx%2 == 0 {
			h = hashPair(h, path.Siblings[level])
		} else {
			h = hashPair(path.Siblings[level], h)
		}
		idx /= 2
	}
	return h == root
}

// CheckpointDepth reports how many checkpoints are currently retained
// (bounded by MaxCheckpoints).
func (t *Tree) CheckpointDepth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.checkpoints)
}

func (t *Tree) pushCheckpoint(position uint64) {
	t.checkpoints = append(t.checkpoints, position)
	if len(t.checkpoints) > MaxCheckpoints {
		t.checkpoints = t.checkpoints[len(t.checkpoints)-MaxCheckpoints:]
	}
}

func (t *Tree) setNode(level uint8, index uint64, h types.Hash) {
	t.nodes[nodeKey{level: level, index: index}] = h
}

func (t *Tree) nodeOrEmpty(level uint8, index uint64) types.Hash {
	if h, ok := t.nodes[nodeKey{level: level, index: index}]; ok {
		return h
	}
	return t.emptyHash[level]
}

// hashPair combines two sibling hashes into their parent, reducing the
// SHA-256 digest into a BN254 scalar-field element so every node in the
// tree — leaves included — is a valid field element, matching the
// commitments produced by pkg/noteproto.
func hashPair(left, right types.Hash) types.Hash {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])

	var e fr.Element
	e.SetBytes(h.Sum(nil))
	return types.Hash(e.Bytes())
}
