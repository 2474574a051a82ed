package walletstate

import (
	"crypto/rand"
	"testing"

	"golang.org/x/crypto/curve25519"

	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/types"
	"github.com/veilwallet/core/pkg/walletkeys"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestWallet(t *testing.T) *walletkeys.HDWallet {
	t.Helper()
	w, err := walletkeys.NewHDWallet(testMnemonic, "")
	if err != nil {
		t.Fatalf("NewHDWallet: %v", err)
	}
	return w
}

// fragmentFor builds a StateFragment carrying note n encrypted to the
// wallet's own transmission key, so the scanner's trial decryption
// succeeds. The note's Diversifier is left as the caller set it.
func fragmentFor(t *testing.T, w *walletkeys.HDWallet, n noteproto.Note) types.StateFragment {
	t.Helper()

	ivk := w.IncomingViewingKey()
	transmissionKey, err := curve25519.X25519(ivk[:], curve25519.Basepoint)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	var tk [32]byte
	copy(tk[:], transmissionKey)

	ciphertext, ephemeral, err := noteproto.Encrypt(rand.Reader, n, tk)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	return types.StateFragment{
		NoteCommitment: noteCommitmentBytes(n),
		EphemeralKey:   ephemeral,
		EncryptedNote:  ciphertext,
	}
}

func noteCommitmentBytes(n noteproto.Note) []byte {
	c := n.Commitment()
	return c[:]
}

func foreignFragment(t *testing.T, n noteproto.Note) types.StateFragment {
	t.Helper()
	var foreignIVK, tk [32]byte
	if _, err := rand.Read(foreignIVK[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	pub, err := curve25519.X25519(foreignIVK[:], curve25519.Basepoint)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	copy(tk[:], pub)

	ciphertext, ephemeral, err := noteproto.Encrypt(rand.Reader, n, tk)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return types.StateFragment{
		NoteCommitment: noteCommitmentBytes(n),
		EphemeralKey:   ephemeral,
		EncryptedNote:  ciphertext,
	}
}

func buildNote(t *testing.T, _ *walletkeys.HDWallet, assetID types.AssetID, amount uint64) noteproto.Note {
	t.Helper()

	var n noteproto.Note
	n.AssetID = assetID
	n.Amount = amount

	var blinding [32]byte
	if _, err := rand.Read(blinding[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	n.Blinding = blinding

	return n
}

func TestScanBlockDiscoversOwnNote(t *testing.T) {
	w := newTestWallet(t)
	state := New()
	state.RegisterAsset(types.AssetID{1}, "utest")

	n := buildNote(t, w, types.AssetID{1}, 100)
	frag := fragmentFor(t, w, n)

	scanner := NewScanner(state, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)
	err := scanner.ScanBlock(types.CompactBlock{
		Height:    0,
		Fragments: []types.StateFragment{frag},
	})
	if err != nil {
		t.Fatalf("ScanBlock: %v", err)
	}

	if state.UnspentCount() != 1 {
		t.Fatalf("UnspentCount = %d, want 1", state.UnspentCount())
	}
	if state.NullifierCount() != 1 {
		t.Fatalf("NullifierCount = %d, want 1", state.NullifierCount())
	}
}

func TestScanBlockSkipsForeignNote(t *testing.T) {
	w := newTestWallet(t)
	state := New()

	n := buildNote(t, w, types.AssetID{2}, 50)
	frag := foreignFragment(t, n)

	scanner := NewScanner(state, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)
	if err := scanner.ScanBlock(types.CompactBlock{Height: 0, Fragments: []types.StateFragment{frag}}); err != nil {
		t.Fatalf("ScanBlock: %v", err)
	}

	if state.UnspentCount() != 0 {
		t.Fatalf("UnspentCount = %d, want 0 for a note addressed to someone else", state.UnspentCount())
	}
}

func TestScanBlockRejectsUnexpectedHeight(t *testing.T) {
	w := newTestWallet(t)
	state := New()
	scanner := NewScanner(state, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)

	if err := scanner.ScanBlock(types.CompactBlock{Height: 5}); err != ErrUnexpectedBlockHeight {
		t.Fatalf("err = %v, want ErrUnexpectedBlockHeight", err)
	}
}

func TestScanBlockRejectsDuplicateCommitmentWithinBlock(t *testing.T) {
	w := newTestWallet(t)
	state := New()
	n := buildNote(t, w, types.AssetID{3}, 10)
	frag := fragmentFor(t, w, n)

	scanner := NewScanner(state, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)
	err := scanner.ScanBlock(types.CompactBlock{
		Height:    0,
		Fragments: []types.StateFragment{frag, frag},
	})
	if err != ErrDuplicateCommitment {
		t.Fatalf("err = %v, want ErrDuplicateCommitment", err)
	}
	if state.UnspentCount() != 0 {
		t.Fatalf("a rejected block must not mutate state, got UnspentCount = %d", state.UnspentCount())
	}
}

func TestScanBlockAppliesSpendNullifier(t *testing.T) {
	w := newTestWallet(t)
	state := New()
	state.RegisterAsset(types.AssetID{4}, "utest")

	n := buildNote(t, w, types.AssetID{4}, 20)
	frag := fragmentFor(t, w, n)

	scanner := NewScanner(state, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)
	if err := scanner.ScanBlock(types.CompactBlock{Height: 0, Fragments: []types.StateFragment{frag}}); err != nil {
		t.Fatalf("ScanBlock (receive): %v", err)
	}

	var nullifier types.Nullifier
	for nf := range state.nullifierMap {
		nullifier = nf
	}

	if err := scanner.ScanBlock(types.CompactBlock{Height: 1, Nullifiers: [][]byte{nullifier[:]}}); err != nil {
		t.Fatalf("ScanBlock (spend): %v", err)
	}

	if state.UnspentCount() != 0 {
		t.Fatalf("UnspentCount = %d, want 0 after the note's nullifier is seen", state.UnspentCount())
	}
	if state.SpentCount() != 1 {
		t.Fatalf("SpentCount = %d, want 1 after the note's nullifier is seen", state.SpentCount())
	}
}
