// field.go - Canonical encodings for BN254 scalar field elements.
//
// Every value the pool circuits consume (commitments, roots, nullifiers,
// packed ciphertext limbs) lives in the BN254 scalar field. This package
// pins the two wire encodings used across the module: 32-byte big-endian
// buffers and 0x-prefixed hex strings. Parsing is strict: wrong lengths and
// non-canonical values (>= modulus) are rejected, never silently reduced.
package field

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
)

// Size is the byte length of a serialized field element.
const Size = fr.Bytes

// Modulus returns the BN254 scalar field modulus as a fresh big.Int.
func Modulus() *big.Int {
	return fr.Modulus()
}

// FromBytes decodes a canonical 32-byte big-endian field element.
func FromBytes(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != Size {
		return e, errors.Wrapf(errs.ErrMalformedInput, "field element must be %d bytes, got %d", Size, len(b))
	}
	var buf [Size]byte
	copy(buf[:], b)
	e, err := fr.BigEndian.Element(&buf)
	if err != nil {
		return fr.Element{}, errors.Wrap(errs.ErrMalformedInput, "field element not canonical")
	}
	return e, nil
}

// ToBytes serializes e as canonical 32-byte big-endian.
func ToBytes(e fr.Element) [Size]byte {
	return e.Bytes()
}

// FromHex decodes a field element from a hex string. A 0x prefix is
// optional; at most 64 digits are accepted and the value must be canonical.
func FromHex(s string) (fr.Element, error) {
	var e fr.Element
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 || len(s) > 2*Size {
		return e, errors.Wrapf(errs.ErrMalformedInput, "hex field element must have 1..%d digits, got %d", 2*Size, len(s))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return e, errors.Wrap(errs.ErrMalformedInput, "invalid hex in field element")
	}
	var buf [Size]byte
	copy(buf[Size-len(raw):], raw)
	return FromBytes(buf[:])
}

// ToHex renders e as 0x-prefixed lowercase hex, zero-padded to 64 digits.
func ToHex(e fr.Element) string {
	b := e.Bytes()
	return "0x" + hex.EncodeToString(b[:])
}

// FromUint64 lifts v into the field.
func FromUint64(v uint64) fr.Element {
	return fr.NewElement(v)
}

// FromBig reduces v modulo the field order. Negative values map to their
// additive inverse class (v mod p), which is the embedding the companion
// circuits use for signed witness coefficients.
func FromBig(v *big.Int) fr.Element {
	var e fr.Element
	e.SetBigInt(v)
	return e
}

// ToBig returns the canonical integer representative of e.
func ToBig(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}
