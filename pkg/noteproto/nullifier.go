package noteproto

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/veilwallet/core/pkg/types"
)

// Sha256NullifierDeriver implements NullifierDeriver as
// nullifier = H(full_viewing_key || position || commitment), reduced to
// a BN254 scalar-field element, mirroring the teacher's
// `zkp.DeriveNullifier` construction.
type Sha256NullifierDeriver struct{}

// DeriveNullifier implements NullifierDeriver.
func (Sha256NullifierDeriver) DeriveNullifier(fvk [32]byte, position uint64, commitment types.Commitment) types.Nullifier {
	h := sha256.New()
	h.Write(fvk[:])

	var posBytes [8]byte
	binary.BigEndian.PutUint64(posBytes[:], position)
	h.Write(posBytes[:])

	h.Write(commitment[:])

	var e fr.Element
	e.SetBytes(h.Sum(nil))
	return types.Nullifier(e.Bytes())
}
