// ciphertext.go - Ciphertext representation and file codec.
//
// The two halves are deliberately distinct types: c0 is sparse (only the 64
// message slots are ever produced, transmitted or checked) while c1 is dense
// (all N coefficients). Keeping them apart prevents a padded c0 from being
// confused with a full polynomial anywhere downstream.
package rlwe

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
)

// SparsePoly holds the message-slot coefficients of c0, length MessageSlots.
type SparsePoly []uint64

// DensePoly holds a full ring polynomial, length N.
type DensePoly []uint64

// Ciphertext is an RLWE encryption of the owner point:
// c0 = b*r + e1 + Δ*msg (sparse), c1 = a*r + e2 (dense).
type Ciphertext struct {
	C0 SparsePoly
	C1 DensePoly
}

// NoiseWitness carries the encryption randomness and the quotient vectors
// the audit circuit needs to re-check the ciphertext equations without
// modular arithmetic: for each slot i,
// <bRow_i, r> + e1[i] + Δ*msg[i] = q*k0[i] + c0[i] over the integers,
// and likewise <aRow_i, r> + e2[i] = q*k1[i] + c1[i] for every coefficient.
type NoiseWitness struct {
	R  []int64 // length N, coefficients in [-NoiseBound, NoiseBound]
	E1 []int64 // length MessageSlots
	E2 []int64 // length N
	K0 []int64 // length MessageSlots
	K1 []int64 // length N
}

// Validate checks lengths and coefficient ranges against params.
func (ct *Ciphertext) Validate(params Params) error {
	if ct == nil {
		return errors.Wrap(errs.ErrMalformedInput, "rlwe: nil ciphertext")
	}
	if len(ct.C0) != MessageSlots {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: c0 has %d slots, want %d", len(ct.C0), MessageSlots)
	}
	if len(ct.C1) != params.N {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: c1 has %d coefficients, want %d", len(ct.C1), params.N)
	}
	for i, v := range ct.C0 {
		if v >= params.Q {
			return errors.Wrapf(errs.ErrMalformedInput, "rlwe: c0[%d] out of range", i)
		}
	}
	for i, v := range ct.C1 {
		if v >= params.Q {
			return errors.Wrapf(errs.ErrMalformedInput, "rlwe: c1[%d] out of range", i)
		}
	}
	return nil
}

type ciphertextJSON struct {
	N  uint64   `json:"n"`
	Q  uint64   `json:"q"`
	C0 []uint64 `json:"c0"`
	C1 []uint64 `json:"c1"`
}

// EncodeCiphertext serializes ct with a parameter echo for load-time checks.
func EncodeCiphertext(ct *Ciphertext, params Params) ([]byte, error) {
	if err := ct.Validate(params); err != nil {
		return nil, err
	}
	return json.MarshalIndent(ciphertextJSON{
		N:  uint64(params.N),
		Q:  params.Q,
		C0: ct.C0,
		C1: ct.C1,
	}, "", "  ")
}

// DecodeCiphertext parses a ciphertext file and validates it against params.
func DecodeCiphertext(data []byte, params Params) (*Ciphertext, error) {
	var raw ciphertextJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errs.ErrMalformedInput, "rlwe: ciphertext json: "+err.Error())
	}
	if raw.N != uint64(params.N) || raw.Q != params.Q {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "rlwe: ciphertext parameters n=%d q=%d do not match n=%d q=%d", raw.N, raw.Q, params.N, params.Q)
	}
	ct := &Ciphertext{C0: raw.C0, C1: raw.C1}
	if err := ct.Validate(params); err != nil {
		return nil, err
	}
	return ct, nil
}
