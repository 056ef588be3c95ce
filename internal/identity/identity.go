// identity.go - Embedded-curve identities for pool notes.
//
// A note owner is a point on the Baby Jubjub curve (twisted Edwards over the
// BN254 scalar field), derived from a secret scalar by fixed-base
// multiplication with the curve generator. The companion circuit performs the
// same multiplication on a 128-bit scalar limb, so secrets are canonicalized
// into [0, 2^128) here; both public coordinates are elements of the BN254
// scalar field and feed Poseidon directly.
package identity

import (
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/pkg/errors"
)

// SecretKeyLen is the secret scalar width in bytes.
const SecretKeyLen = 16

// SecretKey is a scalar in [0, 2^128), stored big-endian.
type SecretKey [SecretKeyLen]byte

// PublicKey is the owner point in affine coordinates.
type PublicKey struct {
	X fr.Element
	Y fr.Element
}

// Keypair bundles a secret scalar with its derived owner point.
type Keypair struct {
	Secret SecretKey
	Public PublicKey
}

// NewSecretKey canonicalizes v into a SecretKey by reducing modulo 2^128.
// The reduction keeps the low 128 bits; this is the same canonicalization the
// circuit applies when it consumes only the low scalar limb.
func NewSecretKey(v *big.Int) SecretKey {
	var sk SecretKey
	reduced := new(big.Int).And(v, skMask)
	reduced.FillBytes(sk[:])
	return sk
}

var skMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 8*SecretKeyLen), big.NewInt(1))

// GenerateKeypair samples a uniform secret in [0, 2^128) from rand and
// derives the owner point.
func GenerateKeypair(rand io.Reader) (Keypair, error) {
	var sk SecretKey
	if _, err := io.ReadFull(rand, sk[:]); err != nil {
		return Keypair{}, errors.Wrap(err, "identity: sampling secret key")
	}
	return Keypair{Secret: sk, Public: sk.Public()}, nil
}

// BigInt returns the scalar value of sk.
func (sk SecretKey) BigInt() *big.Int {
	return new(big.Int).SetBytes(sk[:])
}

// Element lifts the scalar into the BN254 scalar field, the form nullifier
// derivation consumes.
func (sk SecretKey) Element() fr.Element {
	var e fr.Element
	e.SetBigInt(sk.BigInt())
	return e
}

// Public derives the owner point: Secret * G for the Baby Jubjub generator.
// Derivation is deterministic; the same secret always lands on the same point.
func (sk SecretKey) Public() PublicKey {
	curve := twistededwards.GetEdwardsCurve()
	var p twistededwards.PointAffine
	p.ScalarMultiplication(&curve.Base, sk.BigInt())
	return PublicKey{X: p.X, Y: p.Y}
}

// IsOnCurve reports whether the public point satisfies the curve equation.
func (pk PublicKey) IsOnCurve() bool {
	p := twistededwards.PointAffine{X: pk.X, Y: pk.Y}
	return p.IsOnCurve()
}
