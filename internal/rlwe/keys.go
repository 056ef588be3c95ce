// keys.go - Audit key generation and encodings.
//
// The audit authority generates one RLWE keypair. The public half (a, b) with
// b = -(a*sk) + e is what depositors encrypt against; the private half never
// leaves key generation in one piece - it is split into Shamir shares and
// only ever reassembled inside a decryption.
package rlwe

import (
	"encoding/json"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v4/utils"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
)

// PrivateKey holds the signed secret polynomial. Coefficients are centered
// representatives in (-Q/2, Q/2]; fresh keys keep them within the noise bound.
type PrivateKey struct {
	Coeffs []int64
}

// PublicKey holds the key polynomials with canonical [0, Q) coefficients.
type PublicKey struct {
	A []uint64
	B []uint64
}

// GenerateKey samples a fresh audit keypair from prng:
// sk, e small (coefficients in [-NoiseBound, NoiseBound]), a uniform,
// b = -(a*sk) + e mod q.
func (s *Scheme) GenerateKey(prng utils.PRNG) (*PrivateKey, *PublicKey, error) {
	n := s.params.N

	sk := make([]int64, n)
	if err := sampleBounded(prng, s.params.NoiseBound, sk); err != nil {
		return nil, nil, err
	}
	e := make([]int64, n)
	if err := sampleBounded(prng, s.params.NoiseBound, e); err != nil {
		return nil, nil, err
	}
	a := make([]uint64, n)
	if err := sampleUniform(prng, s.params.Q, a); err != nil {
		return nil, nil, err
	}

	// b = e - a*sk mod q.
	as := s.negacyclicMul(s.polyFromUnsigned(a), s.polyFromSigned(sk))
	b := s.ringQ.NewPoly()
	s.ringQ.Sub(s.polyFromSigned(e), as, b)

	pub := &PublicKey{A: a, B: append([]uint64(nil), b.Coeffs[0]...)}
	return &PrivateKey{Coeffs: sk}, pub, nil
}

// Elements embeds the signed secret coefficients into the BN254 scalar
// field (negative values as p - |v|), the form threshold sharing works on.
func (sk *PrivateKey) Elements() []fr.Element {
	out := make([]fr.Element, len(sk.Coeffs))
	for i, v := range sk.Coeffs {
		out[i] = field.FromBig(big.NewInt(v))
	}
	return out
}

// PrivateKeyFromElements rebuilds a private key from field-valued secret
// coefficients, the form Shamir reconstruction produces. Each element is
// lifted to its centered integer (values above p/2 count as negative), then
// reduced into (-Q/2, Q/2].
func (s *Scheme) PrivateKeyFromElements(coeffs []fr.Element) (*PrivateKey, error) {
	if len(coeffs) != s.params.N {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "rlwe: secret has %d coefficients, want %d", len(coeffs), s.params.N)
	}
	modulus := field.Modulus()
	half := new(big.Int).Rsh(modulus, 1)
	q := new(big.Int).SetUint64(s.params.Q)

	out := make([]int64, len(coeffs))
	for i := range coeffs {
		v := field.ToBig(coeffs[i])
		if v.Cmp(half) > 0 {
			v.Sub(v, modulus)
		}
		v.Mod(v, q)
		c := v.Int64()
		if c > int64(s.params.Q/2) {
			c -= int64(s.params.Q)
		}
		out[i] = c
	}
	return &PrivateKey{Coeffs: out}, nil
}

// Validate checks that the key polynomials match the parameter set.
func (pk *PublicKey) Validate(params Params) error {
	if len(pk.A) != params.N || len(pk.B) != params.N {
		return errors.Wrapf(errs.ErrMalformedInput, "rlwe: public key degree %d/%d, want %d", len(pk.A), len(pk.B), params.N)
	}
	for i := range pk.A {
		if pk.A[i] >= params.Q || pk.B[i] >= params.Q {
			return errors.Wrapf(errs.ErrMalformedInput, "rlwe: public key coefficient %d out of range", i)
		}
	}
	return nil
}

type publicKeyJSON struct {
	N uint64   `json:"n"`
	Q uint64   `json:"q"`
	A []uint64 `json:"a"`
	B []uint64 `json:"b"`
}

// EncodePublicKey serializes pk together with the parameters it was
// generated under.
func EncodePublicKey(pk *PublicKey, params Params) ([]byte, error) {
	if err := pk.Validate(params); err != nil {
		return nil, err
	}
	return json.MarshalIndent(publicKeyJSON{
		N: uint64(params.N),
		Q: params.Q,
		A: pk.A,
		B: pk.B,
	}, "", "  ")
}

// DecodePublicKey parses a public key file and checks it against params.
func DecodePublicKey(data []byte, params Params) (*PublicKey, error) {
	var raw publicKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errs.ErrMalformedInput, "rlwe: public key json: "+err.Error())
	}
	if raw.N != uint64(params.N) || raw.Q != params.Q {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "rlwe: public key parameters n=%d q=%d do not match n=%d q=%d", raw.N, raw.Q, params.N, params.Q)
	}
	pk := &PublicKey{A: raw.A, B: raw.B}
	if err := pk.Validate(params); err != nil {
		return nil, err
	}
	return pk, nil
}
