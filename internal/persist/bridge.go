// Package persist implements the serialization bridge (spec component
// C6): a stable, hex-at-the-text-boundary projection of wallet state to
// JSON and back, grounded on the teacher's plain encoding/json use for
// wire and config types (see pkg/types) generalized to the sorted
// key/value pair shape the original `serde_helpers` module in
// wallet/src/state.rs uses for its nullifier_map/unspent_set/spent_set/
// asset_registry fields. No third-party serialization library in the
// retrieval pack targets this exact "sorted hex pairs" wire shape, so
// this bridge is hand-rolled over encoding/json and encoding/hex — see
// DESIGN.md.
package persist

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"

	"github.com/veilwallet/core/internal/walletstate"
	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/types"
)

// ErrSerialization is returned when persisted bytes fail to decode.
var ErrSerialization = errors.New("persist: serialization error")

// pair is one hex-encoded (key, value) entry, matching spec §6's
// persisted-state shape: "sequences of [string, string] pairs".
type pair [2]string

// document is the on-disk JSON shape.
type document struct {
	LastBlockHeight    *uint32 `json:"last_block_height,omitempty"`
	NoteCommitmentTree string  `json:"note_commitment_tree"`
	NullifierMap       []pair  `json:"nullifier_map"`
	UnspentSet         []pair  `json:"unspent_set"`
	SpentSet           []pair  `json:"spent_set"`
	AssetRegistry      []pair  `json:"asset_registry"`
	Transactions       []pair  `json:"transactions"`
}

// Save projects a wallet's state to its stable on-disk byte form.
func Save(state *walletstate.State) ([]byte, error) {
	snap, err := state.Snapshot()
	if err != nil {
		return nil, err
	}

	doc := document{
		LastBlockHeight:    snap.LastBlockHeight,
		NoteCommitmentTree: hex.EncodeToString(snap.TreeBytes),
		Transactions:       []pair{},
	}

	doc.NullifierMap = sortedPairs(snap.NullifierMap, func(k types.Nullifier) string { return hex.EncodeToString(k[:]) },
		func(v types.Commitment) string { return hex.EncodeToString(v[:]) })

	doc.UnspentSet = sortedPairs(snap.UnspentSet, func(k types.Commitment) string { return hex.EncodeToString(k[:]) },
		func(v noteproto.Note) string { return hex.EncodeToString(v.MarshalPlaintext()) })

	doc.SpentSet = sortedPairs(snap.SpentSet, func(k types.Commitment) string { return hex.EncodeToString(k[:]) },
		func(v noteproto.Note) string { return hex.EncodeToString(v.MarshalPlaintext()) })

	doc.AssetRegistry = sortedPairs(snap.AssetRegistry, func(k types.AssetID) string { return hex.EncodeToString(k[:]) },
		func(v string) string { return hex.EncodeToString([]byte(v)) })

	return json.Marshal(doc)
}

// Load reverses Save, rebuilding a State from its persisted byte form.
func Load(data []byte) (*walletstate.State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}

	treeBytes, err := hex.DecodeString(doc.NoteCommitmentTree)
	if err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}

	nullifierMap, err := decodePairs(doc.NullifierMap, decodeNullifier, decodeCommitment)
	if err != nil {
		return nil, err
	}
	unspentSet, err := decodePairs(doc.UnspentSet, decodeCommitment, decodeNote)
	if err != nil {
		return nil, err
	}
	spentSet, err := decodePairs(doc.SpentSet, decodeCommitment, decodeNote)
	if err != nil {
		return nil, err
	}
	assetRegistry, err := decodePairs(doc.AssetRegistry, decodeAssetID, decodeDenom)
	if err != nil {
		return nil, err
	}

	snap := walletstate.Snapshot{
		LastBlockHeight: doc.LastBlockHeight,
		TreeBytes:       treeBytes,
		NullifierMap:    nullifierMap,
		UnspentSet:      unspentSet,
		SpentSet:        spentSet,
		AssetRegistry:   assetRegistry,
	}
	state, err := walletstate.FromSnapshot(snap)
	if err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}
	return state, nil
}

func sortedPairs[K comparable, V any](m map[K]V, encodeKey func(K) string, encodeValue func(V) string) []pair {
	pairs := make([]pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, pair{encodeKey(k), encodeValue(v)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}

func decodePairs[K comparable, V any](pairs []pair, decodeKey func(string) (K, error), decodeValue func(string) (V, error)) (map[K]V, error) {
	out := make(map[K]V, len(pairs))
	for _, p := range pairs {
		k, err := decodeKey(p[0])
		if err != nil {
			return nil, errors.Join(ErrSerialization, err)
		}
		v, err := decodeValue(p[1])
		if err != nil {
			return nil, errors.Join(ErrSerialization, err)
		}
		out[k] = v
	}
	return out, nil
}

func decodeNullifier(s string) (types.Nullifier, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return types.Nullifier{}, err
	}
	return types.NullifierFromBytes(b)
}

func decodeCommitment(s string) (types.Commitment, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return types.Commitment{}, err
	}
	return types.CommitmentFromBytes(b)
}

func decodeAssetID(s string) (types.AssetID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return types.AssetID{}, err
	}
	return types.AssetIDFromBytes(b)
}

func decodeNote(s string) (noteproto.Note, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return noteproto.Note{}, err
	}
	return noteproto.UnmarshalNotePlaintext(b)
}

func decodeDenom(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
