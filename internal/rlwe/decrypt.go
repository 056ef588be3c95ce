// decrypt.go - Audit decryption.
package rlwe

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
)

// Decrypt recovers the owner point from ct under sk:
// m[i] = round(centered((c0[i] + (sk*c1)[i]) mod q) / Δ) mod t,
// then the 64 byte slots reassemble into (ownerX, ownerY).
//
// Decryption succeeding structurally does not make the result trustworthy;
// callers must verify Poseidon2(ownerX, ownerY) against the expected
// wallet-address commitment. When the slots do not even form canonical field
// elements (a sure sign of tampering or a wrong key), Decrypt reports
// ErrVerificationMismatch directly.
func (s *Scheme) Decrypt(sk *PrivateKey, ct *Ciphertext) (fr.Element, fr.Element, error) {
	var zero fr.Element
	if sk == nil || len(sk.Coeffs) != s.params.N {
		return zero, zero, errors.Wrapf(errs.ErrMalformedInput, "rlwe: private key degree %d, want %d", len(sk.Coeffs), s.params.N)
	}
	if err := ct.Validate(s.params); err != nil {
		return zero, zero, err
	}

	// sk * c1 in the ring, then slot-wise rounding on the message slots.
	sc1 := s.negacyclicMul(s.polyFromSigned(sk.Coeffs), s.polyFromUnsigned(ct.C1))

	q := int64(s.params.Q)
	delta := int64(s.params.Delta())
	t := int64(s.params.T)

	slots := make([]uint64, MessageSlots)
	for i := 0; i < MessageSlots; i++ {
		v := (int64(ct.C0[i]) + int64(sc1.Coeffs[0][i])) % q
		if v > q/2 {
			v -= q
		}
		// Round to the nearest multiple of Δ, then reduce mod t.
		m := floorDiv(v+delta/2, delta) % t
		if m < 0 {
			m += t
		}
		slots[i] = uint64(m)
	}

	ownerX, err := decodeOwnerSlot(slots[:32])
	if err != nil {
		return zero, zero, err
	}
	ownerY, err := decodeOwnerSlot(slots[32:])
	if err != nil {
		return zero, zero, err
	}
	return ownerX, ownerY, nil
}

func floorDiv(a, b int64) int64 {
	d := a / b
	if a%b < 0 {
		d--
	}
	return d
}

// decodeOwnerSlot turns 32 little-endian byte slots back into a field
// element, rejecting non-canonical values.
func decodeOwnerSlot(slots []uint64) (fr.Element, error) {
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[31-i] = byte(slots[i])
	}
	e, err := field.FromBytes(be[:])
	if err != nil {
		return fr.Element{}, errors.Wrap(errs.ErrVerificationMismatch, "rlwe: decrypted slots are not a canonical field element")
	}
	return e, nil
}
