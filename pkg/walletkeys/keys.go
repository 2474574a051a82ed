// Package walletkeys implements the wallet-key module spec.md
// deliberately excludes from the core ("this spec covers essentially
// all of its substance except the wallet-key module itself"). A full
// repository still needs a concrete implementation of the opaque
// "wallet keys" spec §3 describes and the collaborator interfaces spec
// §6 calls out (`incoming_viewing_key.index_for_diversifier`,
// `wallet.address_by_index`), so this package derives them via BIP32
// child-key derivation over a BIP39 seed, the same primitives the
// `Alex110709-obsidian-core` teacher's `crypto/signature.go` uses for
// mnemonic-based key generation, adapted from a single secp256k1
// signing key into the four-key shielded hierarchy (spend key, full
// viewing key, incoming viewing key, outgoing viewing key) spec.md's
// data model requires.
package walletkeys

import (
	"crypto/sha256"
	"errors"
	"sync"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/veilwallet/core/pkg/noteproto"
)

// ErrUnknownDiversifier is returned when a diversifier does not belong
// to this wallet's diversifier table.
var ErrUnknownDiversifier = errors.New("walletkeys: unknown diversifier")

// Diversifier indexes a family of receiving addresses derived from one
// set of viewing keys.
type Diversifier [noteproto.DiversifierSize]byte

// SpendKey authorizes spending notes received at any of this wallet's
// diversified addresses.
type SpendKey [32]byte

// FullViewingKey can derive nullifiers for notes this wallet received.
type FullViewingKey [32]byte

// IncomingViewingKeyBytes can trial-decrypt notes sent to this wallet.
type IncomingViewingKeyBytes [32]byte

// OutgoingViewingKeyBytes can recover the plaintext of notes this
// wallet sent, from the sender's side.
type OutgoingViewingKeyBytes [32]byte

// bip32 derivation path indices, analogous to the teacher's BIP44
// account path but branching into four purpose-specific children
// instead of one signing key.
const (
	purposeSpend = bip32.FirstHardenedChild + 100
	purposeFVK   = bip32.FirstHardenedChild + 101
	purposeIVK   = bip32.FirstHardenedChild + 102
	purposeOVK   = bip32.FirstHardenedChild + 103
)

// HDWallet is the default concrete wallet-keys implementation: all four
// keys are deterministically derived from a single BIP39 mnemonic.
type HDWallet struct {
	mu sync.RWMutex

	spendKey SpendKey
	fvk      FullViewingKey
	ivk      IncomingViewingKeyBytes
	ovk      OutgoingViewingKeyBytes

	diversifiers  map[uint64]Diversifier
	byDiversifier map[Diversifier]uint64
	nextIndex     uint64
}

// NewHDWallet derives a wallet's keys from a BIP39 mnemonic and
// passphrase. It starts with one diversified address at index 0.
func NewHDWallet(mnemonic, passphrase string) (*HDWallet, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}

	spendBytes, err := deriveChild(master, purposeSpend)
	if err != nil {
		return nil, err
	}
	fvkBytes, err := deriveChild(master, purposeFVK)
	if err != nil {
		return nil, err
	}
	ivkBytes, err := deriveChild(master, purposeIVK)
	if err != nil {
		return nil, err
	}
	ovkBytes, err := deriveChild(master, purposeOVK)
	if err != nil {
		return nil, err
	}

	w := &HDWallet{
		diversifiers:  make(map[uint64]Diversifier),
		byDiversifier: make(map[Diversifier]uint64),
	}
	copy(w.spendKey[:], spendBytes)
	copy(w.fvk[:], fvkBytes)
	copy(w.ivk[:], ivkBytes)
	copy(w.ovk[:], ovkBytes)

	if _, err := w.NewDiversifier(); err != nil {
		return nil, err
	}
	return w, nil
}

// deriveChild derives one hardened child key and returns a 32-byte
// value suitable as shielded key material: the child's extended key
// bytes are hashed down to a fixed-size field, since go-bip32 private
// key material and our 32-byte key types otherwise happen to collide
// in length by coincidence, not by contract.
func deriveChild(master *bip32.Key, index uint32) ([]byte, error) {
	child, err := master.NewChildKey(index)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(child.Key)
	return sum[:], nil
}

// SpendKey returns the wallet's spend authority key.
func (w *HDWallet) SpendKey() SpendKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.spendKey
}

// FullViewingKey implements walletstate.Wallet.
func (w *HDWallet) FullViewingKey() [32]byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fvk
}

// IncomingViewingKey implements walletstate.Wallet.
func (w *HDWallet) IncomingViewingKey() [32]byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ivk
}

// OutgoingViewingKey returns the wallet's outgoing viewing key.
func (w *HDWallet) OutgoingViewingKey() OutgoingViewingKeyBytes {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ovk
}

// IndexForDiversifier implements walletstate.Wallet.
func (w *HDWallet) IndexForDiversifier(diversifier [noteproto.DiversifierSize]byte) (uint64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	index, ok := w.byDiversifier[Diversifier(diversifier)]
	if !ok {
		return 0, ErrUnknownDiversifier
	}
	return index, nil
}

// NewDiversifier allocates the next diversifier index for this wallet
// and returns it, so a new receiving address can be handed out.
func (w *HDWallet) NewDiversifier() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	index := w.nextIndex
	w.nextIndex++

	var d Diversifier
	sum := sha256.Sum256(append(append([]byte{}, w.ivk[:]...), byteOf(index)...))
	copy(d[:], sum[:noteproto.DiversifierSize])

	w.diversifiers[index] = d
	w.byDiversifier[d] = index
	return index, nil
}

func byteOf(index uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(index)
		index >>= 8
	}
	return b
}
