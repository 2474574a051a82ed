// Package walletstate implements the spendable-note state the wallet
// engine maintains while following the chain: the state store (C2), the
// compact-block scanner (C3), and the spendable index (C4). It is
// adapted from the teacher's `internal/zkp.ShieldedPool` and
// `NullifierSet` (sync.RWMutex-guarded maps, sentinel errors) and from
// the original Penumbra `ClientState` (wallet/src/state.rs) for the
// exact scan_block semantics.
package walletstate

import (
	"errors"
	"sync"

	"github.com/veilwallet/core/internal/merkletree"
	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/types"
)

// Errors returned by the state store and scanner. Each corresponds to a
// named failure kind in the design's error taxonomy.
var (
	ErrUnexpectedBlockHeight = errors.New("walletstate: unexpected block height")
	ErrInvalidNoteCommitment = errors.New("walletstate: invalid note commitment")
	ErrInvalidEphemeralKey   = errors.New("walletstate: invalid ephemeral key")
	ErrDuplicateCommitment   = errors.New("walletstate: duplicate commitment within block")
)

// Wallet is the external collaborator the scanner needs from the
// opaque wallet-key module (spec §6): enough to trial-decrypt fragments,
// derive nullifiers for newly discovered notes, and map a note's
// recipient back to a diversifier index for the spendable index.
type Wallet interface {
	IncomingViewingKey() [32]byte
	FullViewingKey() [32]byte
	IndexForDiversifier(diversifier [noteproto.DiversifierSize]byte) (uint64, error)
}

// State is the wallet's view of the chain: the note-commitment tree plus
// the five maps of spec §4.2 (C2). Every exported mutator is safe for
// concurrent use. The tree, nullifier map, note sets and last height
// change only through ScanBlock; the asset registry changes only through
// RegisterAsset.
type State struct {
	mu sync.RWMutex

	tree *merkletree.Tree

	nullifierMap  map[types.Nullifier]types.Commitment
	unspentSet    map[types.Commitment]noteproto.Note
	spentSet      map[types.Commitment]noteproto.Note
	transactions  map[types.Commitment][]byte
	assetRegistry map[types.AssetID]string

	lastBlockHeight *uint32
}

// New creates an empty state tied to a fresh note-commitment tree.
func New() *State {
	return &State{
		tree:          merkletree.New(),
		nullifierMap:  make(map[types.Nullifier]types.Commitment),
		unspentSet:    make(map[types.Commitment]noteproto.Note),
		spentSet:      make(map[types.Commitment]noteproto.Note),
		transactions:  make(map[types.Commitment][]byte),
		assetRegistry: make(map[types.AssetID]string),
	}
}

// Tree exposes the note-commitment tree for read access (roots, paths)
// by the transaction assembler.
func (s *State) Tree() *merkletree.Tree { return s.tree }

// LastBlockHeight returns the height of the most recently scanned block,
// or ok=false if no block has been scanned yet.
func (s *State) LastBlockHeight() (height uint32, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastBlockHeight == nil {
		return 0, false
	}
	return *s.lastBlockHeight, true
}

// RegisterAsset records a denomination string for an asset id if one is
// not already known. Supplements invariant I5: every note's asset id
// must resolve to a denomination, but spec.md's compact block wire shape
// carries no asset metadata, so something external must call this
// before (or as) notes of that asset are scanned. Returns true if this
// was a newly seen asset.
func (s *State) RegisterAsset(id types.AssetID, denom string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assetRegistry[id]; exists {
		return false
	}
	s.assetRegistry[id] = denom
	return true
}

// Denom looks up the human-readable denomination for an asset id.
func (s *State) Denom(id types.AssetID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.assetRegistry[id]
	return d, ok
}

// UnspentCount and SpentCount are read helpers used by metrics and tests.
func (s *State) UnspentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.unspentSet)
}

func (s *State) SpentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spentSet)
}

// NullifierCount reports the size of the nullifier map.
func (s *State) NullifierCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nullifierMap)
}

// UnspentNote looks up an unspent note by its commitment.
func (s *State) UnspentNote(c types.Commitment) (noteproto.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.unspentSet[c]
	return n, ok
}

// Snapshot captures every map C6 must serialize, as independent copies
// safe to read without holding State's lock.
type Snapshot struct {
	LastBlockHeight *uint32
	TreeBytes       []byte
	NullifierMap    map[types.Nullifier]types.Commitment
	UnspentSet      map[types.Commitment]noteproto.Note
	SpentSet        map[types.Commitment]noteproto.Note
	AssetRegistry   map[types.AssetID]string
}

// Snapshot returns a copy of every piece of state the serialization
// bridge (C6) needs to persist.
func (s *State) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	treeBytes, err := s.tree.MarshalBinary()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		TreeBytes:     treeBytes,
		NullifierMap:  make(map[types.Nullifier]types.Commitment, len(s.nullifierMap)),
		UnspentSet:    make(map[types.Commitment]noteproto.Note, len(s.unspentSet)),
		SpentSet:      make(map[types.Commitment]noteproto.Note, len(s.spentSet)),
		AssetRegistry: make(map[types.AssetID]string, len(s.assetRegistry)),
	}
	if s.lastBlockHeight != nil {
		h := *s.lastBlockHeight
		snap.LastBlockHeight = &h
	}
	for k, v := range s.nullifierMap {
		snap.NullifierMap[k] = v
	}
	for k, v := range s.unspentSet {
		snap.UnspentSet[k] = v
	}
	for k, v := range s.spentSet {
		snap.SpentSet[k] = v
	}
	for k, v := range s.assetRegistry {
		snap.AssetRegistry[k] = v
	}
	return snap, nil
}

// FromSnapshot rebuilds a State from a Snapshot produced by a prior call
// to Snapshot, reconstructing the note-commitment tree from its opaque
// byte form. The transactions map is always reconstructed empty, per
// spec §4.6's reserved-field note.
func FromSnapshot(snap Snapshot) (*State, error) {
	tree := merkletree.New()
	if err := tree.UnmarshalBinary(snap.TreeBytes); err != nil {
		return nil, err
	}

	s := &State{
		tree:          tree,
		nullifierMap:  make(map[types.Nullifier]types.Commitment, len(snap.NullifierMap)),
		unspentSet:    make(map[types.Commitment]noteproto.Note, len(snap.UnspentSet)),
		spentSet:      make(map[types.Commitment]noteproto.Note, len(snap.SpentSet)),
		transactions:  make(map[types.Commitment][]byte),
		assetRegistry: make(map[types.AssetID]string, len(snap.AssetRegistry)),
	}
	for k, v := range snap.NullifierMap {
		s.nullifierMap[k] = v
	}
	for k, v := range snap.UnspentSet {
		s.unspentSet[k] = v
	}
	for k, v := range snap.SpentSet {
		s.spentSet[k] = v
	}
	for k, v := range snap.AssetRegistry {
		s.assetRegistry[k] = v
	}
	if snap.LastBlockHeight != nil {
		h := *snap.LastBlockHeight
		s.lastBlockHeight = &h
	}
	return s, nil
}
