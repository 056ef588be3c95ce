// encrypt.go - Audit encryption with circuit-compatible witnesses.
//
// Encryption runs twice on purpose. The ciphertext itself comes out of the
// lattigo ring (NTT multiplication, modular additions). The quotient vectors
// k0/k1 are then recomputed coefficient by coefficient over plain int64
// integers, and every residue is cross-checked against the ring result. A
// disagreement means the witness would not satisfy the circuit, so the whole
// encryption is rejected rather than emitting unprovable audit material.
package rlwe

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v4/utils"

	"github.com/veilpay/shieldpool/internal/errs"
)

// Encrypt encrypts the owner point (ownerX, ownerY) under pk and returns the
// ciphertext together with the noise witness the audit circuit consumes.
// Failures here are retriable; callers keep the deposit and try again.
func (s *Scheme) Encrypt(pk *PublicKey, ownerX, ownerY fr.Element, prng utils.PRNG) (*Ciphertext, *NoiseWitness, error) {
	if err := pk.Validate(s.params); err != nil {
		return nil, nil, err
	}
	n := s.params.N
	msg := encodeOwnerSlots(ownerX, ownerY)

	// 1. Sample encryption randomness and noise.
	r := make([]int64, n)
	e1 := make([]int64, MessageSlots)
	e2 := make([]int64, n)
	for _, v := range [][]int64{r, e1, e2} {
		if err := sampleBounded(prng, s.params.NoiseBound, v); err != nil {
			return nil, nil, errors.Wrap(errs.ErrEncryptionFailure, err.Error())
		}
	}

	// 2. Ring path: c0 = b*r + e1 + Δ*msg, c1 = a*r + e2 (mod q, x^N+1).
	rPoly := s.polyFromSigned(r)
	br := s.negacyclicMul(s.polyFromUnsigned(pk.B), rPoly)
	ar := s.negacyclicMul(s.polyFromUnsigned(pk.A), rPoly)

	delta := int64(s.params.Delta())
	e1m := make([]int64, n)
	for i := 0; i < MessageSlots; i++ {
		e1m[i] = e1[i] + delta*int64(msg[i])
	}
	c0Poly := s.ringQ.NewPoly()
	s.ringQ.Add(br, s.polyFromSigned(e1m), c0Poly)
	c1Poly := s.ringQ.NewPoly()
	s.ringQ.Add(ar, s.polyFromSigned(e2), c1Poly)

	ct := &Ciphertext{
		C0: append(SparsePoly(nil), c0Poly.Coeffs[0][:MessageSlots]...),
		C1: append(DensePoly(nil), c1Poly.Coeffs[0]...),
	}

	// 3. Integer path: quotients, cross-checked slot by slot.
	k0, err := s.quotientWitness(pk.B, r, e1, msg, ct.C0)
	if err != nil {
		return nil, nil, err
	}
	k1, err := s.quotientWitness(pk.A, r, e2, nil, ct.C1)
	if err != nil {
		return nil, nil, err
	}

	return ct, &NoiseWitness{R: r, E1: e1, E2: e2, K0: k0, K1: k1}, nil
}

// quotientWitness computes k[i] = (<row_i(polyC), r> + noise[i] + Δ*msg[i]
// - ct[i]) / q over the integers, verifying that the division is exact.
// msg == nil skips the message term (the c1 equation).
func (s *Scheme) quotientWitness(polyC []uint64, r, noise []int64, msg []uint64, ct []uint64) ([]int64, error) {
	q := int64(s.params.Q)
	delta := int64(s.params.Delta())

	k := make([]int64, len(ct))
	for i := range ct {
		full := negacyclicDot(polyC, r, i, q) + noise[i]
		if msg != nil {
			full += delta * int64(msg[i])
		}
		rem := full % q
		if rem < 0 {
			rem += q
		}
		if uint64(rem) != ct[i] {
			return nil, errors.Wrapf(errs.ErrEncryptionFailure, "rlwe: residue mismatch at coefficient %d", i)
		}
		k[i] = (full - rem) / q
	}
	return k, nil
}

// negacyclicDot is the inner product of r with row k of the negacyclic
// matrix of polyC: row_k[j] = polyC[k-j] for k >= j, else q - polyC[k-j+n].
// Magnitudes stay below n * q * NoiseBound, well inside int64.
func negacyclicDot(polyC []uint64, r []int64, k int, q int64) int64 {
	n := len(polyC)
	var acc int64
	for j := 0; j < n; j++ {
		var cell int64
		if d := k - j; d >= 0 {
			cell = int64(polyC[d])
		} else {
			cell = (q - int64(polyC[d+n])) % q
		}
		acc += cell * r[j]
	}
	return acc
}

// encodeOwnerSlots lays the owner point out as 64 byte slots: 32 little-endian
// bytes of ownerX, then 32 of ownerY.
func encodeOwnerSlots(ownerX, ownerY fr.Element) []uint64 {
	slots := make([]uint64, MessageSlots)
	xb := ownerX.Bytes()
	yb := ownerY.Bytes()
	for i := 0; i < 32; i++ {
		slots[i] = uint64(xb[31-i])
		slots[32+i] = uint64(yb[31-i])
	}
	return slots
}
