// scheme.go - Ring arithmetic context for the audit cipher.
//
// All mod-q polynomial arithmetic goes through a lattigo ring: negacyclic
// multiplication is an NTT round trip, additions are coefficient-wise modular.
// Noise sampling draws from a lattigo PRNG with byte-level rejection so the
// distributions stay exactly uniform over their ranges.
package rlwe

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v4/ring"
	"github.com/tuneinsight/lattigo/v4/utils"
)

// Scheme binds a parameter set to its lattigo ring. Construct once and share;
// the ring tables are immutable after NewScheme.
type Scheme struct {
	params Params
	ringQ  *ring.Ring
}

// NewScheme validates params and builds the NTT ring for them.
func NewScheme(params Params) (*Scheme, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ringQ, err := ring.NewRing(params.N, []uint64{params.Q})
	if err != nil {
		return nil, errors.Wrap(err, "rlwe: building ring")
	}
	return &Scheme{params: params, ringQ: ringQ}, nil
}

// Params returns the parameter set the scheme was built with.
func (s *Scheme) Params() Params {
	return s.params
}

// polyFromSigned lifts bounded signed coefficients into R_q.
func (s *Scheme) polyFromSigned(coeffs []int64) *ring.Poly {
	p := s.ringQ.NewPoly()
	q := int64(s.params.Q)
	for i, v := range coeffs {
		if v < 0 {
			p.Coeffs[0][i] = uint64(v + q)
		} else {
			p.Coeffs[0][i] = uint64(v)
		}
	}
	return p
}

// polyFromUnsigned wraps canonical [0, q) coefficients into R_q.
func (s *Scheme) polyFromUnsigned(coeffs []uint64) *ring.Poly {
	p := s.ringQ.NewPoly()
	copy(p.Coeffs[0], coeffs)
	return p
}

// negacyclicMul returns a*b in Z_q[x]/(x^N+1) via an NTT round trip.
func (s *Scheme) negacyclicMul(a, b *ring.Poly) *ring.Poly {
	aT := s.ringQ.NewPoly()
	bT := s.ringQ.NewPoly()
	out := s.ringQ.NewPoly()
	s.ringQ.NTT(a, aT)
	s.ringQ.NTT(b, bT)
	s.ringQ.MulCoeffs(aT, bT, out)
	s.ringQ.InvNTT(out, out)
	return out
}

// sampleBounded fills out with coefficients uniform in [-bound, bound],
// rejection-sampling one byte per draw. Validate caps the bound at 127 so a
// single byte always covers the span.
func sampleBounded(prng utils.PRNG, bound int64, out []int64) error {
	span := uint64(2*bound + 1)
	limit := (256 / span) * span
	var buf [1]byte
	for i := range out {
		for {
			if _, err := io.ReadFull(prng, buf[:]); err != nil {
				return errors.Wrap(err, "rlwe: reading prng")
			}
			if uint64(buf[0]) >= limit {
				continue
			}
			out[i] = int64(uint64(buf[0])%span) - bound
			break
		}
	}
	return nil
}

// sampleUniform fills out with coefficients uniform in [0, q), rejecting
// 32-bit draws above the largest multiple of q.
func sampleUniform(prng utils.PRNG, q uint64, out []uint64) error {
	limit := uint64(1<<32/q) * q
	var buf [4]byte
	for i := range out {
		for {
			if _, err := io.ReadFull(prng, buf[:]); err != nil {
				return errors.Wrap(err, "rlwe: reading prng")
			}
			v := uint64(binary.LittleEndian.Uint32(buf[:]))
			if v >= limit {
				continue
			}
			out[i] = v % q
			break
		}
	}
	return nil
}
