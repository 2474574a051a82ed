// Package txbuilder implements the transaction assembler (spec
// component C5): note selection for a requested (amount, denom,
// destination), spend/output construction against the current tree
// root, and fee/change accounting. It is grounded on the teacher's
// `internal/zkp.TransactionBuilder.Build` value-conservation check and
// on the original `wallet/src/state.rs` `new_transaction` algorithm for
// the exact selection and shuffling order.
package txbuilder

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/veilwallet/core/internal/walletstate"
	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/txproto"
	"github.com/veilwallet/core/pkg/walletkeys"
)

// Errors returned by Assemble, one per transaction-assembly precondition
// spec §7 names.
var (
	ErrInvalidAddress        = errors.New("txbuilder: invalid destination address")
	ErrInvalidDenomination   = errors.New("txbuilder: invalid denomination")
	ErrNoNotesOfDenomination = errors.New("txbuilder: no notes of requested denomination")
	ErrNoNotesAtAddress      = errors.New("txbuilder: no notes at requested source address")
)

// InsufficientBalanceError reports the shortfall when selected notes
// cannot cover amount+fee.
type InsufficientBalanceError struct {
	Need uint64
	Have uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("txbuilder: insufficient balance: need %d, have %d", e.Need, e.Have)
}

// FinalizationError wraps a failure from the underlying txproto.Builder.
type FinalizationError struct{ Inner error }

func (e *FinalizationError) Error() string { return "txbuilder: finalize failed: " + e.Inner.Error() }
func (e *FinalizationError) Unwrap() error { return e.Inner }

// Wallet is the key-material collaborator the assembler needs: a spend
// key, a full viewing key, an outgoing viewing key, and the ability to
// resolve a diversifier index to its address.
type Wallet interface {
	SpendKey() walletkeys.SpendKey
	FullViewingKey() [32]byte
	OutgoingViewingKey() walletkeys.OutgoingViewingKeyBytes
	AddressByIndex(index uint64) (label, address string, err error)
}

// Request bundles new_transaction's parameters (spec §4.5).
type Request struct {
	Amount            uint64
	Fee               uint64
	Denom             string
	Destination       string
	SourceAddressOpt  *uint64
	ChangeAddressOpt  *uint64
}

// Assembler builds transactions by reading a wallet's chain state and
// key material; it never mutates state itself.
type Assembler struct {
	state   *walletstate.State
	index   *walletstate.Index
	wallet  Wallet
	derive  noteproto.NullifierDeriver
	factory txproto.Factory
}

// New builds an Assembler over the given state, spendable index, wallet
// keys, nullifier deriver, and transaction-builder factory.
func New(state *walletstate.State, index *walletstate.Index, wallet Wallet, derive noteproto.NullifierDeriver, factory txproto.Factory) *Assembler {
	return &Assembler{state: state, index: index, wallet: wallet, derive: derive, factory: factory}
}

// Assemble implements new_transaction. rng must be cryptographically
// secure; it drives both candidate shuffling and the builder's own
// blinding-factor generation.
func (a *Assembler) Assemble(rng io.Reader, req Request) (txproto.Transaction, error) {
	diversifier, transmissionKey, err := walletkeys.ParseAddress(req.Destination)
	if err != nil {
		return txproto.Transaction{}, ErrInvalidAddress
	}

	root := a.state.Tree().Root()
	builder := a.factory.BuildWithRoot(root)
	builder.SetFee(req.Fee)

	byDenom, err := a.index.ByDenomThenAddress()
	if err != nil {
		return txproto.Transaction{}, err
	}
	byAddress, ok := byDenom[req.Denom]
	if !ok {
		return txproto.Transaction{}, ErrNoNotesOfDenomination
	}

	candidates, err := candidateNotes(byAddress, req.SourceAddressOpt)
	if err != nil {
		return txproto.Transaction{}, err
	}

	if err := shuffle(rng, candidates); err != nil {
		return txproto.Transaction{}, err
	}

	threshold := req.Amount + req.Fee
	var total uint64
	var selected []walletstate.UnspentNote
	for _, n := range candidates {
		selected = append(selected, n)
		total += n.Note.Amount
		if total >= threshold {
			break
		}
	}
	if total < threshold {
		return txproto.Transaction{}, &InsufficientBalanceError{Need: threshold, Have: total}
	}

	assetID := selected[0].Note.AssetID

	spendKey := a.wallet.SpendKey()
	fvk := a.wallet.FullViewingKey()
	tree := a.state.Tree()
	for _, n := range selected {
		path, err := tree.AuthenticationPath(n.Commitment)
		if err != nil {
			return txproto.Transaction{}, fmt.Errorf("txbuilder: authentication path missing for selected note: %w", err)
		}
		nullifier := a.derive.DeriveNullifier(fvk, path.Position, n.Commitment)
		if err := builder.AddSpend(txproto.Spend{
			SpendKey:   [32]byte(spendKey),
			Commitment: n.Commitment,
			Nullifier:  nullifier,
			AssetID:    assetID,
			Amount:     n.Note.Amount,
			Position:   path.Position,
			AuthPath:   path,
		}); err != nil {
			return txproto.Transaction{}, err
		}
	}

	var destMemo [512]byte
	if err := builder.AddOutput(txproto.Output{
		TransmissionKey: transmissionKey,
		Diversifier:     diversifier,
		AssetID:         assetID,
		Amount:          req.Amount,
		Memo:            destMemo,
		OutgoingViewKey: [32]byte(a.wallet.OutgoingViewingKey()),
	}); err != nil {
		return txproto.Transaction{}, err
	}

	change := total - threshold
	changeIndex := selected[len(selected)-1].AddressIndex
	if req.ChangeAddressOpt != nil {
		changeIndex = *req.ChangeAddressOpt
	}
	_, changeAddress, err := a.wallet.AddressByIndex(changeIndex)
	if err != nil {
		return txproto.Transaction{}, err
	}
	changeDiversifier, changeTransmissionKey, err := walletkeys.ParseAddress(changeAddress)
	if err != nil {
		return txproto.Transaction{}, err
	}

	var changeMemo [512]byte
	if err := builder.AddOutput(txproto.Output{
		TransmissionKey: changeTransmissionKey,
		Diversifier:     changeDiversifier,
		AssetID:         assetID,
		Amount:          change,
		Memo:            changeMemo,
		OutgoingViewKey: [32]byte(a.wallet.OutgoingViewingKey()),
	}); err != nil {
		return txproto.Transaction{}, err
	}

	tx, err := builder.Finalize(rng)
	if err != nil {
		return txproto.Transaction{}, &FinalizationError{Inner: err}
	}
	return tx, nil
}

func candidateNotes(byAddress map[uint64][]walletstate.UnspentNote, sourceAddressOpt *uint64) ([]walletstate.UnspentNote, error) {
	if sourceAddressOpt != nil {
		notes, ok := byAddress[*sourceAddressOpt]
		if !ok || len(notes) == 0 {
			return nil, ErrNoNotesAtAddress
		}
		out := make([]walletstate.UnspentNote, len(notes))
		copy(out, notes)
		return out, nil
	}

	var all []walletstate.UnspentNote
	for _, notes := range byAddress {
		all = append(all, notes...)
	}
	return all, nil
}

// shuffle performs an unbiased Fisher-Yates shuffle driven by a
// cryptographically secure source, required so note selection does not
// leak wallet structure through deterministic ordering.
func shuffle(rng io.Reader, notes []walletstate.UnspentNote) error {
	for i := len(notes) - 1; i > 0; i-- {
		j, err := rand.Int(rng, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		notes[i], notes[j.Int64()] = notes[j.Int64()], notes[i]
	}
	return nil
}
