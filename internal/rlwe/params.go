// params.go - RLWE parameter set for the audit cipher.
//
// The parameters are a configuration contract with the companion audit
// circuit: the ring degree, modulus, plaintext modulus and noise bound must
// match on both sides or the quotient witnesses stop verifying. They are
// validated on construction rather than trusted.
package rlwe

import (
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
)

const (
	// MessageSlots is the number of plaintext byte slots carried by a
	// ciphertext: 32 little-endian bytes of ownerX followed by 32 of ownerY.
	MessageSlots = 64

	// packGroup coefficients of packBits bits each share one field element.
	packGroup = 7
	packBits  = 32

	// C0PackedLen is the packed field-element count of the sparse ciphertext
	// half: ceil(64/7).
	C0PackedLen = (MessageSlots + packGroup - 1) / packGroup
)

// Params carries the ring and encoding parameters of the audit cipher.
type Params struct {
	// N is the ring degree: polynomials live in Z_q[x]/(x^N + 1).
	N int
	// Q is the coefficient modulus, NTT-friendly (Q ≡ 1 mod 2N).
	Q uint64
	// T is the plaintext modulus; each slot carries one byte.
	T uint64
	// NoiseBound bounds secret and noise coefficients: uniform in
	// [-NoiseBound, NoiseBound].
	NoiseBound int64
}

// DefaultParams returns the production parameter set:
// N=1024, q=167772161 (40*2^22+1), t=256, noise bound 3.
func DefaultParams() Params {
	return Params{
		N:          1024,
		Q:          167772161,
		T:          256,
		NoiseBound: 3,
	}
}

// Delta is the plaintext scaling factor floor(Q/T).
func (p Params) Delta() uint64 {
	return p.Q / p.T
}

// C1PackedLen is the packed field-element count of the dense ciphertext
// half: ceil(N/7).
func (p Params) C1PackedLen() int {
	return (p.N + packGroup - 1) / packGroup
}

// Validate checks the parameter invariants the cipher depends on.
func (p Params) Validate() error {
	if p.N <= 0 || p.N&(p.N-1) != 0 {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: ring degree %d is not a power of two", p.N)
	}
	if p.N < MessageSlots {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: ring degree %d below %d message slots", p.N, MessageSlots)
	}
	if p.Q%(2*uint64(p.N)) != 1 {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: modulus %d is not NTT-friendly for degree %d", p.Q, p.N)
	}
	if p.T == 0 || p.Q/p.T == 0 {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: plaintext modulus %d incompatible with %d", p.T, p.Q)
	}
	if p.NoiseBound <= 0 || p.NoiseBound > 127 {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: noise bound %d out of range", p.NoiseBound)
	}
	return nil
}
