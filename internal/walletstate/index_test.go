package walletstate

import (
	"testing"

	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/types"
	"github.com/veilwallet/core/pkg/walletkeys"
)

func TestIndexGroupsUnspentNotes(t *testing.T) {
	w := newTestWallet(t)
	s := New()
	s.RegisterAsset(types.AssetID{1}, "utest")

	_, address, err := w.AddressByIndex(0)
	if err != nil {
		t.Fatalf("AddressByIndex: %v", err)
	}
	diversifier, _, err := walletkeys.ParseAddress(address)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}

	n := buildNote(t, w, types.AssetID{1}, 30)
	n.Diversifier = diversifier
	frag := fragmentFor(t, w, n)

	scanner := NewScanner(s, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)
	if err := scanner.ScanBlock(types.CompactBlock{Height: 0, Fragments: []types.StateFragment{frag}}); err != nil {
		t.Fatalf("ScanBlock: %v", err)
	}

	idx := NewIndex(s, w)
	notes, err := idx.UnspentNotes()
	if err != nil {
		t.Fatalf("UnspentNotes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len(notes) = %d, want 1", len(notes))
	}
	if notes[0].AddressIndex != 0 {
		t.Fatalf("AddressIndex = %d, want 0", notes[0].AddressIndex)
	}
	if notes[0].Denom != "utest" {
		t.Fatalf("Denom = %q, want \"utest\"", notes[0].Denom)
	}

	byDenom, err := idx.ByDenomThenAddress()
	if err != nil {
		t.Fatalf("ByDenomThenAddress: %v", err)
	}
	if len(byDenom["utest"][0]) != 1 {
		t.Fatalf("expected exactly one note grouped under denom \"utest\" address 0")
	}

	byAddress, err := idx.ByAddressThenDenom()
	if err != nil {
		t.Fatalf("ByAddressThenDenom: %v", err)
	}
	if len(byAddress[0]["utest"]) != 1 {
		t.Fatalf("expected exactly one note grouped under address 0 denom \"utest\"")
	}
}

func TestUnspentNotesFailsWithoutAssetRegistration(t *testing.T) {
	w := newTestWallet(t)
	s := New()

	n := buildNote(t, w, types.AssetID{5}, 1)
	frag := fragmentFor(t, w, n)

	scanner := NewScanner(s, w, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, nil)
	if err := scanner.ScanBlock(types.CompactBlock{Height: 0, Fragments: []types.StateFragment{frag}}); err != nil {
		t.Fatalf("ScanBlock: %v", err)
	}

	idx := NewIndex(s, w)
	if _, err := idx.UnspentNotes(); err != ErrAssetNotRegistered {
		t.Fatalf("err = %v, want ErrAssetNotRegistered", err)
	}
}
