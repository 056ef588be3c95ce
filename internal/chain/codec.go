// codec.go - Field encodings shared between the prover and the chain program.
package chain

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
)

const (
	// RecipientAddrLen is how many address bytes fit in a recipient field
	// element. The last two address bytes are dropped and must be zero on
	// decode.
	RecipientAddrLen = 30
	// ProofLen is the byte size of a serialized withdraw proof as the chain
	// program expects it.
	ProofLen = 388
)

// ValidateProof checks that a serialized proof blob has the exact length the
// chain program deserializes. Proof contents are opaque at this layer.
func ValidateProof(proof []byte) error {
	if len(proof) != ProofLen {
		return errors.Wrapf(errs.ErrMalformedInput, "chain: proof blob is %d bytes, want %d", len(proof), ProofLen)
	}
	return nil
}

// EncodeRecipient embeds the first 30 bytes of a 32-byte account address in
// a field element, big-endian, leaving the top two bytes zero so the value
// always fits below the modulus.
func EncodeRecipient(addr [32]byte) fr.Element {
	var buf [field.Size]byte
	copy(buf[2:], addr[:RecipientAddrLen])
	var e fr.Element
	e.SetBytes(buf[:])
	return e
}

// DecodeRecipient recovers the address form of a recipient field element.
// The two guard bytes must be zero; the trailing two address bytes come
// back zeroed, matching what the chain program compares against.
func DecodeRecipient(e fr.Element) ([32]byte, error) {
	var addr [32]byte
	buf := field.ToBytes(e)
	if buf[0] != 0 || buf[1] != 0 {
		return addr, errors.Wrap(errs.ErrMalformedInput, "chain: recipient element exceeds 240 bits")
	}
	copy(addr[:RecipientAddrLen], buf[2:])
	return addr, nil
}

// EncodeAmount lifts a token amount into the field.
func EncodeAmount(v uint64) fr.Element {
	return field.FromUint64(v)
}

// DecodeAmount extracts a u64 amount from a field element, rejecting values
// outside the u64 range.
func DecodeAmount(e fr.Element) (uint64, error) {
	buf := field.ToBytes(e)
	for _, b := range buf[:field.Size-8] {
		if b != 0 {
			return 0, errors.Wrap(errs.ErrMalformedInput, "chain: amount element exceeds 64 bits")
		}
	}
	return binary.BigEndian.Uint64(buf[field.Size-8:]), nil
}
