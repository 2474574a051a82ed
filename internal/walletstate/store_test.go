package walletstate

import (
	"testing"

	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/types"
)

func TestRegisterAssetOnlyOnce(t *testing.T) {
	s := New()
	if !s.RegisterAsset(types.AssetID{1}, "utest") {
		t.Fatalf("first RegisterAsset should report true")
	}
	if s.RegisterAsset(types.AssetID{1}, "other") {
		t.Fatalf("second RegisterAsset for the same id should report false")
	}
	denom, ok := s.Denom(types.AssetID{1})
	if !ok || denom != "utest" {
		t.Fatalf("Denom = (%q, %v), want (\"utest\", true)", denom, ok)
	}
}

func TestLastBlockHeightUnsetInitially(t *testing.T) {
	s := New()
	if _, ok := s.LastBlockHeight(); ok {
		t.Fatalf("LastBlockHeight reported ok=true before any block was scanned")
	}
}

func TestSnapshotFromSnapshotRoundTrip(t *testing.T) {
	w := newTestWallet(t)
	s := New()
	s.RegisterAsset(types.AssetID{9}, "utest")

	n := buildNote(t, w, types.AssetID{9}, 7)
	frag := fragmentFor(t, w, n)

	scanner := NewScanner(s, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)
	if err := scanner.ScanBlock(types.CompactBlock{Height: 0, Fragments: []types.StateFragment{frag}}); err != nil {
		t.Fatalf("ScanBlock: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	if restored.UnspentCount() != s.UnspentCount() {
		t.Fatalf("UnspentCount mismatch after round trip: got %d, want %d", restored.UnspentCount(), s.UnspentCount())
	}
	if restored.NullifierCount() != s.NullifierCount() {
		t.Fatalf("NullifierCount mismatch after round trip")
	}
	if restored.Tree().Root() != s.Tree().Root() {
		t.Fatalf("tree root mismatch after round trip")
	}
	height, ok := restored.LastBlockHeight()
	wantHeight, wantOK := s.LastBlockHeight()
	if ok != wantOK || height != wantHeight {
		t.Fatalf("LastBlockHeight mismatch after round trip")
	}
}
