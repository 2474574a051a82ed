package noteproto

import (
	"bytes"
	"testing"

	"github.com/veilwallet/core/pkg/types"
)

func sampleNote() Note {
	var n Note
	n.AssetID[0] = 1
	n.Amount = 42
	for i := range n.Diversifier {
		n.Diversifier[i] = byte(i + 1)
	}
	for i := range n.TransmissionKey {
		n.TransmissionKey[i] = byte(i)
	}
	for i := range n.Blinding {
		n.Blinding[i] = byte(255 - i)
	}
	return n
}

func TestNotePlaintextRoundTrip(t *testing.T) {
	n := sampleNote()
	encoded := n.MarshalPlaintext()

	decoded, err := UnmarshalNotePlaintext(encoded)
	if err != nil {
		t.Fatalf("UnmarshalNotePlaintext: %v", err)
	}
	if decoded != n {
		t.Fatalf("decoded note does not match original:\n got  %+v\n want %+v", decoded, n)
	}
}

func TestUnmarshalNotePlaintextRejectsWrongLength(t *testing.T) {
	if _, err := UnmarshalNotePlaintext([]byte{1, 2, 3}); err != ErrMalformedNote {
		t.Fatalf("err = %v, want ErrMalformedNote", err)
	}
}

func TestCommitmentIsDeterministic(t *testing.T) {
	n := sampleNote()
	c1 := n.Commitment()
	c2 := n.Commitment()
	if c1 != c2 {
		t.Fatalf("Commitment is not deterministic for identical inputs")
	}
}

func TestCommitmentChangesWithBlinding(t *testing.T) {
	n1 := sampleNote()
	n2 := n1
	n2.Blinding[0] ^= 0xFF

	if n1.Commitment() == n2.Commitment() {
		t.Fatalf("commitments collided despite different blinding factors")
	}
}

func TestCommitmentIsNotZero(t *testing.T) {
	n := sampleNote()
	c := n.Commitment()
	if bytes.Equal(c[:], (types.Commitment{})[:]) {
		t.Fatalf("commitment was the zero value")
	}
}
