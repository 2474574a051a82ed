package proofstub

import (
	"bytes"
	"errors"
	"io"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/txproto"
	"github.com/veilwallet/core/pkg/types"
)

// ErrValueImbalance is returned when spends and outputs plus fee do not
// balance, mirroring the teacher's ErrInsufficientFunds check performed
// before proof generation rather than relying on the circuit alone to
// catch it (cheaper to fail fast on the host than inside the prover).
var ErrValueImbalance = errors.New("proofstub: spend and output amounts do not balance")

// ChainID is the compile-time chain identifier spec §6 calls out; it is
// a package variable rather than a const so a future multi-network
// build can override it, the way the teacher's cmd/ccoind wires a
// network flag into its genesis config.
var ChainID = "veilwallet-mainnet-1"

// Factory builds new transactions against the shared circuit cache.
type Factory struct {
	circuits *CircuitCache
}

// NewFactory returns a txproto.Factory backed by a fresh circuit cache.
func NewFactory() *Factory {
	return &Factory{circuits: NewCircuitCache()}
}

// BuildWithRoot implements txproto.Factory.
func (f *Factory) BuildWithRoot(root types.Hash) txproto.Builder {
	return &builder{
		circuits: f.circuits,
		anchor:   root,
		chainID:  ChainID,
	}
}

type builder struct {
	circuits *CircuitCache
	anchor   types.Hash
	chainID  string
	fee      uint64
	spends   []txproto.Spend
	outputs  []txproto.Output
}

func (b *builder) SetFee(fee uint64)         { b.fee = fee }
func (b *builder) SetChainID(chainID string) { b.chainID = chainID }

func (b *builder) AddSpend(spend txproto.Spend) error {
	b.spends = append(b.spends, spend)
	return nil
}

func (b *builder) AddOutput(output txproto.Output) error {
	b.outputs = append(b.outputs, output)
	return nil
}

// Finalize proves value conservation over the accumulated spends and
// outputs and returns the assembled transaction. rng supplies the
// per-output blinding factors (the one piece of randomness this stage
// still needs, per spec §6's finalize(rng)); groth16 itself draws its
// own internal randomness for proof generation.
func (b *builder) Finalize(rng io.Reader) (txproto.Transaction, error) {
	var spendTotal, outputTotal uint64
	for _, s := range b.spends {
		spendTotal += s.Amount
	}
	for _, o := range b.outputs {
		outputTotal += o.Amount
	}
	if spendTotal != outputTotal+b.fee {
		return txproto.Transaction{}, ErrValueImbalance
	}

	shape, err := b.circuits.get(len(b.spends), len(b.outputs))
	if err != nil {
		return txproto.Transaction{}, err
	}

	assignment := &balanceCircuit{
		Spends:  make([]frontend.Variable, len(b.spends)),
		Outputs: make([]frontend.Variable, len(b.outputs)),
		Fee:     new(big.Int).SetUint64(b.fee),
	}
	for i, s := range b.spends {
		assignment.Spends[i] = new(big.Int).SetUint64(s.Amount)
	}
	for i, o := range b.outputs {
		assignment.Outputs[i] = new(big.Int).SetUint64(o.Amount)
	}

	witness, err := frontend.NewWitness(assignment, shape.ccs.Field())
	if err != nil {
		return txproto.Transaction{}, err
	}

	proof, err := groth16.Prove(shape.ccs, shape.pk, witness)
	if err != nil {
		return txproto.Transaction{}, err
	}

	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return txproto.Transaction{}, err
	}

	nullifiers := make([]types.Nullifier, len(b.spends))
	for i, s := range b.spends {
		nullifiers[i] = s.Nullifier
	}

	commitments := make([]types.Commitment, len(b.outputs))
	for i, o := range b.outputs {
		commitment, err := outputCommitment(rng, o)
		if err != nil {
			return txproto.Transaction{}, err
		}
		commitments[i] = commitment
	}

	return txproto.Transaction{
		Anchor:      b.anchor,
		ChainID:     b.chainID,
		Fee:         b.fee,
		Nullifiers:  nullifiers,
		Commitments: commitments,
		Proof:       proofBuf.Bytes(),
	}, nil
}

// outputCommitment draws a fresh blinding factor and derives a
// commitment for a transaction output through the same Pedersen scheme
// the note layer uses, so downstream scanning of the resulting block
// recognizes it as an ordinary note commitment.
func outputCommitment(rng io.Reader, o txproto.Output) (types.Commitment, error) {
	var blinding [32]byte
	if _, err := io.ReadFull(rng, blinding[:]); err != nil {
		return types.Commitment{}, err
	}

	n := noteproto.Note{
		AssetID:         o.AssetID,
		Amount:          o.Amount,
		Diversifier:     o.Diversifier,
		TransmissionKey: o.TransmissionKey,
		Blinding:        blinding,
	}
	return n.Commitment(), nil
}
