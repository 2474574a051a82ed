package walletkeys

import "testing"

func TestAddressByIndexParseAddressRoundTrip(t *testing.T) {
	w, err := NewHDWallet(testMnemonic, "")
	if err != nil {
		t.Fatalf("NewHDWallet: %v", err)
	}

	label, address, err := w.AddressByIndex(0)
	if err != nil {
		t.Fatalf("AddressByIndex: %v", err)
	}
	if label == "" {
		t.Fatalf("label was empty")
	}
	if len(address) <= len(AddressPrefix) || address[:len(AddressPrefix)] != AddressPrefix {
		t.Fatalf("address %q missing prefix %q", address, AddressPrefix)
	}

	diversifier, transmissionKey, err := ParseAddress(address)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}

	w.mu.RLock()
	wantDiversifier := w.diversifiers[0]
	w.mu.RUnlock()

	if diversifier != wantDiversifier {
		t.Fatalf("decoded diversifier does not match wallet record")
	}
	if transmissionKey == ([32]byte{}) {
		t.Fatalf("decoded transmission key was the zero value")
	}
}

func TestAddressByIndexUnknownDiversifier(t *testing.T) {
	w, err := NewHDWallet(testMnemonic, "")
	if err != nil {
		t.Fatalf("NewHDWallet: %v", err)
	}
	if _, _, err := w.AddressByIndex(99); err != ErrUnknownDiversifier {
		t.Fatalf("err = %v, want ErrUnknownDiversifier", err)
	}
}

func TestParseAddressRejectsBadPrefix(t *testing.T) {
	if _, _, err := ParseAddress("notveil1abcdef"); err != ErrInvalidAddress {
		t.Fatalf("err = %v, want ErrInvalidAddress", err)
	}
}

func TestParseAddressRejectsBadChecksum(t *testing.T) {
	w, err := NewHDWallet(testMnemonic, "")
	if err != nil {
		t.Fatalf("NewHDWallet: %v", err)
	}
	_, address, err := w.AddressByIndex(0)
	if err != nil {
		t.Fatalf("AddressByIndex: %v", err)
	}

	corrupted := address[:len(address)-1] + "9"
	if corrupted == address {
		corrupted = address[:len(address)-1] + "8"
	}
	if _, _, err := ParseAddress(corrupted); err != ErrInvalidAddress {
		t.Fatalf("err = %v, want ErrInvalidAddress for a corrupted checksum", err)
	}
}
