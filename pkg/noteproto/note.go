package noteproto

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/veilwallet/core/pkg/types"
)

// DiversifierSize matches the length Zcash-family protocols use for an
// address diversifier (11 bytes): long enough to avoid collisions across
// a wallet's lifetime, short enough to keep addresses compact.
const DiversifierSize = 11

// ErrMalformedNote is returned when a decrypted plaintext does not match
// the expected fixed-size note layout.
var ErrMalformedNote = errors.New("noteproto: malformed note plaintext")

// Note is the opaque shielded value unit the wallet engine tracks. The
// core treats every field here as data to move around, never to inspect
// for business meaning beyond AssetID/Amount.
type Note struct {
	AssetID         types.AssetID
	Amount          uint64
	Diversifier     [DiversifierSize]byte
	TransmissionKey [32]byte
	Blinding        [32]byte
}

// notePlaintextLen is the fixed wire length of a note's plaintext
// encoding, before encryption.
const notePlaintextLen = types.HashSize + 8 + DiversifierSize + 32 + 32

// MarshalPlaintext encodes the note to its fixed-length plaintext form.
func (n Note) MarshalPlaintext() []byte {
	buf := make([]byte, 0, notePlaintextLen)
	buf = append(buf, n.AssetID[:]...)

	var amountBytes [8]byte
	binary.BigEndian.PutUint64(amountBytes[:], n.Amount)
	buf = append(buf, amountBytes[:]...)

	buf = append(buf, n.Diversifier[:]...)
	buf = append(buf, n.TransmissionKey[:]...)
	buf = append(buf, n.Blinding[:]...)
	return buf
}

// UnmarshalNotePlaintext decodes a note from its fixed-length plaintext
// form, failing if the length does not match exactly.
func UnmarshalNotePlaintext(b []byte) (Note, error) {
	var n Note
	if len(b) != notePlaintextLen {
		return n, ErrMalformedNote
	}

	off := 0
	copy(n.AssetID[:], b[off:off+types.HashSize])
	off += types.HashSize

	n.Amount = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	copy(n.Diversifier[:], b[off:off+DiversifierSize])
	off += DiversifierSize

	copy(n.TransmissionKey[:], b[off:off+32])
	off += 32

	copy(n.Blinding[:], b[off:off+32])
	return n, nil
}

// Commitment computes the note commitment: a Pedersen commitment to the
// note's amount, bound to its asset id, recipient diversifier and
// transmission key, and blinding factor, collapsed to a single field
// element so it can sit as a note-commitment-tree leaf.
func (n Note) Commitment() types.Commitment {
	value := new(big.Int).SetUint64(n.Amount)
	blinder := new(big.Int).SetBytes(n.Blinding[:])
	pc := newPedersenCommitment(value, blinder)

	h := sha256.New()
	h.Write(pc.bytes())
	h.Write(n.AssetID[:])
	h.Write(n.Diversifier[:])
	h.Write(n.TransmissionKey[:])

	var e fr.Element
	e.SetBytes(h.Sum(nil))
	return types.Commitment(e.Bytes())
}
