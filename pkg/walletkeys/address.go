package walletkeys

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/curve25519"

	"github.com/veilwallet/core/pkg/noteproto"
)

// AddressPrefix is prepended to every encoded shielded address this
// wallet produces, echoing the "z"-prefixed shielded vs. plain
// transparent address convention the `Alex110709-obsidian-core` teacher
// tests for in crypto/address_test.go (there: "obs1.../zobs1...").
const AddressPrefix = "zveil1"

// ErrInvalidAddress is returned when a string does not decode to a
// well-formed shielded address.
var ErrInvalidAddress = errors.New("walletkeys: invalid address")

const addressPayloadLen = noteproto.DiversifierSize + 32 // diversifier || transmission key
const checksumLen = 4

// AddressByIndex implements spec §6's `wallet.address_by_index`: it
// returns a human label and the encoded shielded address for one of
// this wallet's diversifier indices.
func (w *HDWallet) AddressByIndex(index uint64) (label string, address string, err error) {
	w.mu.RLock()
	d, ok := w.diversifiers[index]
	ivk := w.ivk
	w.mu.RUnlock()

	if !ok {
		return "", "", ErrUnknownDiversifier
	}

	transmissionKey, err := curve25519.X25519(ivk[:], curve25519.Basepoint)
	if err != nil {
		return "", "", err
	}

	payload := make([]byte, 0, addressPayloadLen)
	payload = append(payload, d[:]...)
	payload = append(payload, transmissionKey...)

	checksum := sha256.Sum256(payload)
	payload = append(payload, checksum[:checksumLen]...)

	address = AddressPrefix + base58.Encode(payload)
	label = "diversifier-" + base58.Encode(byteOf(index))
	return label, address, nil
}

// ParseAddress decodes a shielded address into the diversifier and
// transmission key a note sent to it must carry.
func ParseAddress(address string) (diversifier [noteproto.DiversifierSize]byte, transmissionKey [32]byte, err error) {
	if len(address) <= len(AddressPrefix) || address[:len(AddressPrefix)] != AddressPrefix {
		return diversifier, transmissionKey, ErrInvalidAddress
	}

	payload := base58.Decode(address[len(AddressPrefix):])
	if len(payload) != addressPayloadLen+checksumLen {
		return diversifier, transmissionKey, ErrInvalidAddress
	}

	body, checksum := payload[:addressPayloadLen], payload[addressPayloadLen:]
	want := sha256.Sum256(body)
	for i := 0; i < checksumLen; i++ {
		if checksum[i] != want[i] {
			return diversifier, transmissionKey, ErrInvalidAddress
		}
	}

	copy(diversifier[:], body[:noteproto.DiversifierSize])
	copy(transmissionKey[:], body[noteproto.DiversifierSize:])
	return diversifier, transmissionKey, nil
}
