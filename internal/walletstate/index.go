package walletstate

import (
	"errors"
	"sort"

	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/types"
)

// ErrAssetNotRegistered signals a note whose asset id has no entry in
// the asset registry — a violation of invariant I5 that should never
// happen for a correctly operated wallet, since RegisterAsset must run
// before (or as part of) scanning notes of that asset.
var ErrAssetNotRegistered = errors.New("walletstate: asset id not registered")

// UnspentNote is one (address index, denomination, note) triple, as
// returned by the spendable index (spec C4).
type UnspentNote struct {
	AddressIndex uint64
	Denom        string
	Note         noteproto.Note
	Commitment   types.Commitment
}

// Index is a read-only snapshot of State's unspent notes, grouped for
// the transaction assembler's note-selection queries.
type Index struct {
	state  *State
	wallet Wallet
}

// NewIndex builds a spendable index over state using wallet's incoming
// viewing key to resolve each note's receiving diversifier index.
func NewIndex(state *State, wallet Wallet) *Index {
	return &Index{state: state, wallet: wallet}
}

// UnspentNotes returns every unspent note together with its receiving
// address index and denomination, in commitment order (for
// reproducibility, not because order carries semantic weight).
func (idx *Index) UnspentNotes() ([]UnspentNote, error) {
	idx.state.mu.RLock()
	defer idx.state.mu.RUnlock()

	commitments := make([]types.Commitment, 0, len(idx.state.unspentSet))
	for c := range idx.state.unspentSet {
		commitments = append(commitments, c)
	}
	sort.Slice(commitments, func(i, j int) bool {
		return string(commitments[i][:]) < string(commitments[j][:])
	})

	result := make([]UnspentNote, 0, len(commitments))
	for _, c := range commitments {
		n := idx.state.unspentSet[c]

		denom, ok := idx.state.assetRegistry[n.AssetID]
		if !ok {
			return nil, ErrAssetNotRegistered
		}

		addressIndex, err := idx.wallet.IndexForDiversifier(n.Diversifier)
		if err != nil {
			return nil, err
		}

		result = append(result, UnspentNote{
			AddressIndex: addressIndex,
			Denom:        denom,
			Note:         n,
			Commitment:   c,
		})
	}
	return result, nil
}

// ByAddressThenDenom groups unspent notes by receiving address index,
// then by denomination.
func (idx *Index) ByAddressThenDenom() (map[uint64]map[string][]UnspentNote, error) {
	notes, err := idx.UnspentNotes()
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint64]map[string][]UnspentNote)
	for _, n := range notes {
		byDenom, ok := grouped[n.AddressIndex]
		if !ok {
			byDenom = make(map[string][]UnspentNote)
			grouped[n.AddressIndex] = byDenom
		}
		byDenom[n.Denom] = append(byDenom[n.Denom], n)
	}
	return grouped, nil
}

// ByDenomThenAddress groups unspent notes by denomination, then by
// receiving address index — the transposition of ByAddressThenDenom,
// used for note selection during transaction assembly.
func (idx *Index) ByDenomThenAddress() (map[string]map[uint64][]UnspentNote, error) {
	notes, err := idx.UnspentNotes()
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]map[uint64][]UnspentNote)
	for _, n := range notes {
		byAddr, ok := grouped[n.Denom]
		if !ok {
			byAddr = make(map[uint64][]UnspentNote)
			grouped[n.Denom] = byAddr
		}
		byAddr[n.AddressIndex] = append(byAddr[n.AddressIndex], n)
	}
	return grouped, nil
}
