// pack.go - Ciphertext packing and the ciphertext commitment sponge.
//
// The audit circuit cannot afford one public input per coefficient, so
// coefficients are packed seven at a time into field elements (32 bits per
// coefficient, lowest group position in the lowest bits) and the packed
// vector is absorbed into a Poseidon2 sponge. The sponge shape - width 4,
// rate 3, zero initial state, permute after every absorbed block including
// the final partial one, digest = state[0] - is part of the circuit contract,
// as is the permutation parameterization (t=4, 8 full rounds, 56 partial).
package rlwe

import (
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
)

const (
	spongeWidth         = 4
	spongeRate          = 3
	spongeFullRounds    = 8
	spongePartialRounds = 56
)

var spongePermutation = sync.OnceValue(func() *poseidon2.Permutation {
	return poseidon2.NewPermutation(spongeWidth, spongeFullRounds, spongePartialRounds)
})

// PackCiphertext packs the two ciphertext halves separately:
// 64 sparse slots into C0PackedLen elements, N dense coefficients into
// C1PackedLen elements.
func PackCiphertext(ct *Ciphertext, params Params) (c0Packed, c1Packed []fr.Element, err error) {
	if err := ct.Validate(params); err != nil {
		return nil, nil, err
	}
	return packCoeffs(ct.C0), packCoeffs(ct.C1), nil
}

func packCoeffs(coeffs []uint64) []fr.Element {
	out := make([]fr.Element, 0, (len(coeffs)+packGroup-1)/packGroup)
	for start := 0; start < len(coeffs); start += packGroup {
		end := min(start+packGroup, len(coeffs))
		v := new(big.Int)
		for j := end - 1; j >= start; j-- {
			v.Lsh(v, packBits)
			v.Or(v, new(big.Int).SetUint64(coeffs[j]))
		}
		out = append(out, field.FromBig(v))
	}
	return out
}

// CtCommitment absorbs packed elements into the Poseidon2 sponge and returns
// the digest. The caller passes c0Packed followed by c1Packed.
func CtCommitment(packed []fr.Element) (fr.Element, error) {
	perm := spongePermutation()
	var state [spongeWidth]fr.Element
	for start := 0; start < len(packed); start += spongeRate {
		end := min(start+spongeRate, len(packed))
		for j := start; j < end; j++ {
			state[j-start].Add(&state[j-start], &packed[j])
		}
		if err := perm.Permutation(state[:]); err != nil {
			return fr.Element{}, errors.Wrap(errs.ErrEncryptionFailure, "rlwe: sponge permutation: "+err.Error())
		}
	}
	return state[0], nil
}

// CommitCiphertext packs ct and returns the sponge digest over c0 ‖ c1.
func (s *Scheme) CommitCiphertext(ct *Ciphertext) (fr.Element, error) {
	c0Packed, c1Packed, err := PackCiphertext(ct, s.params)
	if err != nil {
		return fr.Element{}, err
	}
	return CtCommitment(append(c0Packed, c1Packed...))
}
