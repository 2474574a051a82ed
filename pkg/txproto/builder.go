// Package txproto declares the transaction-builder collaborator the
// assembler in internal/txbuilder drives (spec §6: build_with_root,
// set_fee, set_chain_id, add_spend, add_output, finalize), grounded on
// the shape of the `Alex110709-obsidian-core` and `m1zr-ccoin` teachers'
// TransactionBuilder types — a stateful object accumulating inputs and
// outputs before a single Build/Finalize call.
package txproto

import (
	"io"

	"github.com/veilwallet/core/internal/merkletree"
	"github.com/veilwallet/core/pkg/types"
)

// Spend is one note consumed by a transaction: enough to let the
// builder derive a nullifier and prove membership in the note-commitment
// tree at the anchored root.
type Spend struct {
	SpendKey   [32]byte
	Commitment types.Commitment
	Nullifier  types.Nullifier
	AssetID    types.AssetID
	Amount     uint64
	Position   uint64
	AuthPath   merkletree.AuthPath
}

// Output is one note a transaction creates: a destination diversified
// address, the asset and amount it carries, and an optional memo.
type Output struct {
	TransmissionKey [32]byte
	Diversifier     [11]byte
	AssetID         types.AssetID
	Amount          uint64
	Memo            [512]byte
	OutgoingViewKey [32]byte
}

// Transaction is the finalized, wire-ready result of a build.
type Transaction struct {
	Anchor      types.Hash
	ChainID     string
	Fee         uint64
	Nullifiers  []types.Nullifier
	Commitments []types.Commitment
	Proof       []byte
	Raw         []byte
}

// Builder accumulates spends and outputs anchored at a fixed tree root,
// then finalizes into a Transaction. Implementations are free to defer
// all expensive work (proof generation) to Finalize.
type Builder interface {
	SetFee(fee uint64)
	SetChainID(chainID string)
	AddSpend(spend Spend) error
	AddOutput(output Output) error
	Finalize(rng io.Reader) (Transaction, error)
}

// Factory builds a new Builder anchored at the given Merkle root, per
// spec §6's `build_with_root(root) -> builder`.
type Factory interface {
	BuildWithRoot(root types.Hash) Builder
}
