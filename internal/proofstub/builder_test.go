package proofstub

import (
	"crypto/rand"
	"testing"

	"github.com/veilwallet/core/pkg/txproto"
	"github.com/veilwallet/core/pkg/types"
)

func TestFinalizeRejectsValueImbalance(t *testing.T) {
	f := NewFactory()
	b := f.BuildWithRoot(types.Hash{})
	b.SetFee(1)

	if err := b.AddSpend(txproto.Spend{Amount: 10}); err != nil {
		t.Fatalf("AddSpend: %v", err)
	}
	if err := b.AddOutput(txproto.Output{Amount: 10}); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}

	if _, err := b.Finalize(rand.Reader); err != ErrValueImbalance {
		t.Fatalf("err = %v, want ErrValueImbalance (spends=10, outputs=10, fee=1)", err)
	}
}

func TestFinalizeProducesBalancedTransaction(t *testing.T) {
	f := NewFactory()
	root := types.Hash{1, 2, 3}
	b := f.BuildWithRoot(root)
	b.SetFee(1)

	spendNullifier := types.Nullifier{9}
	if err := b.AddSpend(txproto.Spend{Amount: 11, Nullifier: spendNullifier}); err != nil {
		t.Fatalf("AddSpend: %v", err)
	}
	if err := b.AddOutput(txproto.Output{Amount: 10}); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}

	tx, err := b.Finalize(rand.Reader)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if tx.Anchor != root {
		t.Fatalf("Anchor = %v, want %v", tx.Anchor, root)
	}
	if tx.Fee != 1 {
		t.Fatalf("Fee = %d, want 1", tx.Fee)
	}
	if len(tx.Nullifiers) != 1 || tx.Nullifiers[0] != spendNullifier {
		t.Fatalf("Nullifiers = %v, want [%v]", tx.Nullifiers, spendNullifier)
	}
	if len(tx.Commitments) != 1 {
		t.Fatalf("len(Commitments) = %d, want 1", len(tx.Commitments))
	}
	if len(tx.Proof) == 0 {
		t.Fatalf("Proof was empty")
	}
}
