// note.go - Commitment, wallet-address commitment and nullifier derivation.
//
// A note is committed into the tree as Poseidon4(ownerX, ownerY, amount,
// randomness). The wallet-address commitment Poseidon2(ownerX, ownerY) keys
// audit records without revealing the owner point, and the nullifier
// Poseidon2(secret, leafIndex) tags a spent leaf without linking it to the
// deposit. All derivations are pure; the engine carries no state between
// calls.
package note

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/field"
	"github.com/veilpay/shieldpool/internal/identity"
	"github.com/veilpay/shieldpool/internal/poseidon"
)

// Commitment derives the tree leaf for a note:
// Poseidon4(ownerX, ownerY, amount, randomness).
func Commitment(eng *poseidon.Engine, owner identity.PublicKey, amount uint64, randomness fr.Element) fr.Element {
	return eng.Hash4(owner.X, owner.Y, field.FromUint64(amount), randomness)
}

// WaCommitment derives the wallet-address commitment:
// Poseidon2(ownerX, ownerY). Audit records are keyed by this value.
func WaCommitment(eng *poseidon.Engine, owner identity.PublicKey) fr.Element {
	return eng.Hash2(owner.X, owner.Y)
}

// Nullifier derives the spend tag for the leaf at leafIndex:
// Poseidon2(secret, leafIndex). The same (secret, index) pair always produces
// the same nullifier, which is what lets the chain reject double spends.
func Nullifier(eng *poseidon.Engine, secret identity.SecretKey, leafIndex uint32) fr.Element {
	return eng.Hash2(secret.Element(), field.FromUint64(uint64(leafIndex)))
}

// NewRandomness samples the commitment blinding factor uniformly from the
// scalar field.
func NewRandomness() (fr.Element, error) {
	var r fr.Element
	if _, err := r.SetRandom(); err != nil {
		return fr.Element{}, errors.Wrap(err, "note: sampling randomness")
	}
	return r, nil
}
