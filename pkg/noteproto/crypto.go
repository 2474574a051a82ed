package noteproto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/veilwallet/core/pkg/types"
)

// ErrDecryptionFailed is returned by Decrypt when the ciphertext does not
// open under the given incoming viewing key — the ordinary, expected
// outcome for a fragment addressed to someone else.
var ErrDecryptionFailed = errors.New("noteproto: decryption failed")

// ErrInvalidKeyMaterial is returned when a key or ephemeral key is not
// the expected 32-byte X25519 field element.
var ErrInvalidKeyMaterial = errors.New("noteproto: invalid key material")

// hkdfInfo domain-separates the symmetric key derived for note encryption
// from any other use of the same ECDH shared secret.
const hkdfInfo = "veilwallet/note-encryption"

// Decryptor is the external collaborator spec §6 calls `decrypt`: it
// attempts to open a note ciphertext under a wallet's incoming viewing
// key and the sender-chosen ephemeral key carried alongside it.
type Decryptor interface {
	Decrypt(ciphertext, ephemeralKey []byte, ivk [32]byte) (Note, error)
}

// NullifierDeriver is the external collaborator spec §6 calls
// `derive_nullifier`.
type NullifierDeriver interface {
	DeriveNullifier(fvk [32]byte, position uint64, commitment types.Commitment) types.Nullifier
}

// X25519Decryptor implements Decryptor with X25519 ECDH key agreement
// (the ephemeral key is the sender's X25519 public key, the incoming
// viewing key is the recipient's X25519 private scalar) and
// ChaCha20-Poly1305 AEAD, the same primitive family the retrieval pack's
// `golang.org/x/crypto` dependency already supplies.
type X25519Decryptor struct{}

// Decrypt implements Decryptor.
func (X25519Decryptor) Decrypt(ciphertext, ephemeralKey []byte, ivk [32]byte) (Note, error) {
	if len(ephemeralKey) != 32 {
		return Note{}, ErrInvalidKeyMaterial
	}

	shared, err := curve25519.X25519(ivk[:], ephemeralKey)
	if err != nil {
		return Note{}, ErrDecryptionFailed
	}

	key, err := deriveSymmetricKey(shared, ephemeralKey)
	if err != nil {
		return Note{}, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return Note{}, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return Note{}, ErrDecryptionFailed
	}
	var nonce [chacha20poly1305.NonceSize]byte

	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return Note{}, ErrDecryptionFailed
	}

	note, err := UnmarshalNotePlaintext(plaintext)
	if err != nil {
		return Note{}, ErrDecryptionFailed
	}
	return note, nil
}

// Encrypt seals a note plaintext for the recipient's transmission key,
// returning the ciphertext and the sender's freshly generated ephemeral
// public key. Used by tests and by anything constructing fixtures; the
// wallet engine itself never calls this (it only decrypts).
func Encrypt(rng io.Reader, n Note, recipientTransmissionKey [32]byte) (ciphertext, ephemeralPub []byte, err error) {
	var ephemeralPriv [32]byte
	if _, err := io.ReadFull(rng, ephemeralPriv[:]); err != nil {
		return nil, nil, err
	}
	pub, err := curve25519.X25519(ephemeralPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}

	shared, err := curve25519.X25519(ephemeralPriv[:], recipientTransmissionKey[:])
	if err != nil {
		return nil, nil, err
	}

	key, err := deriveSymmetricKey(shared, pub)
	if err != nil {
		return nil, nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, nil, err
	}

	var nonce [chacha20poly1305.NonceSize]byte
	sealed := aead.Seal(nil, nonce[:], n.MarshalPlaintext(), nil)
	return sealed, pub, nil
}

func deriveSymmetricKey(shared, ephemeralPub []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, shared, ephemeralPub, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}
