package rlwe

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v4/utils"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
)

func testScheme(t *testing.T) *Scheme {
	t.Helper()
	s, err := NewScheme(DefaultParams())
	require.NoError(t, err)
	return s
}

func testPRNG(t *testing.T, key byte) utils.PRNG {
	t.Helper()
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = key
	}
	prng, err := utils.NewKeyedPRNG(seed)
	require.NoError(t, err)
	return prng
}

func testOwnerPoint(t *testing.T) (fr.Element, fr.Element) {
	t.Helper()
	x, err := field.FromHex("0x1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f809")
	require.NoError(t, err)
	y, err := field.FromHex("0x2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90a1b")
	require.NoError(t, err)
	return x, y
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
	require.Equal(t, uint64(655360), DefaultParams().Delta())

	cases := []Params{
		{N: 1000, Q: 167772161, T: 256, NoiseBound: 3},   // not a power of two
		{N: 1024, Q: 167772160, T: 256, NoiseBound: 3},   // not NTT friendly
		{N: 1024, Q: 167772161, T: 0, NoiseBound: 3},     // zero plaintext modulus
		{N: 1024, Q: 167772161, T: 256, NoiseBound: 0},   // zero noise
		{N: 1024, Q: 167772161, T: 256, NoiseBound: 200}, // noise beyond byte sampling
		{N: 32, Q: 167772161, T: 256, NoiseBound: 3},     // fewer slots than the message
	}
	for i, p := range cases {
		require.ErrorIs(t, p.Validate(), errs.ErrMalformedInput, "case %d", i)
	}
}

func TestGenerateKeyStructure(t *testing.T) {
	s := testScheme(t)
	sk, pk, err := s.GenerateKey(testPRNG(t, 1))
	require.NoError(t, err)

	params := s.Params()
	require.Len(t, sk.Coeffs, params.N)
	for i, c := range sk.Coeffs {
		require.LessOrEqual(t, c, params.NoiseBound, "sk[%d]", i)
		require.GreaterOrEqual(t, c, -params.NoiseBound, "sk[%d]", i)
	}
	require.NoError(t, pk.Validate(params))

	// b + a*sk must be small: recompute a*sk row by row over the integers
	// and check the centered residue stays within the noise bound.
	q := int64(params.Q)
	for i := 0; i < params.N; i++ {
		dot := negacyclicDot(pk.A, sk.Coeffs, i, q)
		v := (dot + int64(pk.B[i])) % q
		if v < 0 {
			v += q
		}
		if v > q/2 {
			v -= q
		}
		require.LessOrEqual(t, v, params.NoiseBound, "coefficient %d of b + a*sk", i)
		require.GreaterOrEqual(t, v, -params.NoiseBound, "coefficient %d of b + a*sk", i)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	s := testScheme(t)
	sk, pk, err := s.GenerateKey(testPRNG(t, 2))
	require.NoError(t, err)

	x, y := testOwnerPoint(t)
	ct, w, err := s.Encrypt(pk, x, y, testPRNG(t, 3))
	require.NoError(t, err)
	require.Len(t, ct.C0, MessageSlots)
	require.Len(t, ct.C1, s.Params().N)
	require.NotNil(t, w)

	gotX, gotY, err := s.Decrypt(sk, ct)
	require.NoError(t, err)
	require.True(t, x.Equal(&gotX), "ownerX did not survive the round trip")
	require.True(t, y.Equal(&gotY), "ownerY did not survive the round trip")
}

func TestNoiseWitnessIdentities(t *testing.T) {
	s := testScheme(t)
	_, pk, err := s.GenerateKey(testPRNG(t, 4))
	require.NoError(t, err)

	x, y := testOwnerPoint(t)
	ct, w, err := s.Encrypt(pk, x, y, testPRNG(t, 5))
	require.NoError(t, err)

	params := s.Params()
	require.Len(t, w.R, params.N)
	require.Len(t, w.E1, MessageSlots)
	require.Len(t, w.E2, params.N)
	require.Len(t, w.K0, MessageSlots)
	require.Len(t, w.K1, params.N)

	for _, v := range w.R {
		require.LessOrEqual(t, v, params.NoiseBound)
		require.GreaterOrEqual(t, v, -params.NoiseBound)
	}

	// The circuit relation, replayed over the integers: the message term is
	// the slot bytes of (x, y) scaled by Δ.
	msg := encodeOwnerSlots(x, y)
	q := int64(params.Q)
	delta := int64(params.Delta())

	for i := 0; i < MessageSlots; i++ {
		full := negacyclicDot(pk.B, w.R, i, q) + w.E1[i] + delta*int64(msg[i])
		require.Equal(t, full, q*w.K0[i]+int64(ct.C0[i]), "c0 identity at slot %d", i)
	}
	for i := 0; i < params.N; i++ {
		full := negacyclicDot(pk.A, w.R, i, q) + w.E2[i]
		require.Equal(t, full, q*w.K1[i]+int64(ct.C1[i]), "c1 identity at coefficient %d", i)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	s := testScheme(t)
	_, pk, err := s.GenerateKey(testPRNG(t, 6))
	require.NoError(t, err)
	wrongSk, _, err := s.GenerateKey(testPRNG(t, 7))
	require.NoError(t, err)

	x, y := testOwnerPoint(t)
	ct, _, err := s.Encrypt(pk, x, y, testPRNG(t, 8))
	require.NoError(t, err)

	gotX, gotY, err := s.Decrypt(wrongSk, ct)
	if err != nil {
		require.ErrorIs(t, err, errs.ErrVerificationMismatch)
		return
	}
	require.False(t, gotX.Equal(&x) && gotY.Equal(&y), "wrong key must not recover the owner point")
}

func TestTamperedCiphertextChangesPlaintext(t *testing.T) {
	s := testScheme(t)
	sk, pk, err := s.GenerateKey(testPRNG(t, 9))
	require.NoError(t, err)

	x, y := testOwnerPoint(t)
	ct, _, err := s.Encrypt(pk, x, y, testPRNG(t, 10))
	require.NoError(t, err)

	// Shift slot 0 by one plaintext unit; decryption must not return the
	// original point.
	tampered := &Ciphertext{
		C0: append(SparsePoly(nil), ct.C0...),
		C1: append(DensePoly(nil), ct.C1...),
	}
	tampered.C0[0] = (tampered.C0[0] + s.Params().Delta()) % s.Params().Q

	gotX, gotY, err := s.Decrypt(sk, tampered)
	if err != nil {
		require.ErrorIs(t, err, errs.ErrVerificationMismatch)
		return
	}
	require.False(t, gotX.Equal(&x) && gotY.Equal(&y))
}

func TestDecryptRejectsMalformedInputs(t *testing.T) {
	s := testScheme(t)
	sk, pk, err := s.GenerateKey(testPRNG(t, 11))
	require.NoError(t, err)
	x, y := testOwnerPoint(t)
	ct, _, err := s.Encrypt(pk, x, y, testPRNG(t, 12))
	require.NoError(t, err)

	// Truncated c1.
	bad := &Ciphertext{C0: ct.C0, C1: ct.C1[:100]}
	_, _, err = s.Decrypt(sk, bad)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	// Out-of-range coefficient.
	bad2 := &Ciphertext{C0: append(SparsePoly(nil), ct.C0...), C1: ct.C1}
	bad2.C0[5] = s.Params().Q
	_, _, err = s.Decrypt(sk, bad2)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	// Wrong key degree.
	_, _, err = s.Decrypt(&PrivateKey{Coeffs: make([]int64, 12)}, ct)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestPackCiphertextLayout(t *testing.T) {
	s := testScheme(t)
	params := s.Params()

	ct := &Ciphertext{
		C0: make(SparsePoly, MessageSlots),
		C1: make(DensePoly, params.N),
	}
	ct.C0[0] = 1
	ct.C0[1] = 2
	ct.C0[7] = 9 // first slot of the second group
	ct.C1[0] = 5

	c0Packed, c1Packed, err := PackCiphertext(ct, params)
	require.NoError(t, err)
	require.Len(t, c0Packed, C0PackedLen)
	require.Len(t, c1Packed, params.C1PackedLen())
	require.Equal(t, 10, len(c0Packed))
	require.Equal(t, 147, len(c1Packed))

	// Group 0 of c0: 1 + 2*2^32.
	want := new(big.Int).Lsh(big.NewInt(2), 32)
	want.Add(want, big.NewInt(1))
	require.Equal(t, want, field.ToBig(c0Packed[0]))

	// Group 1 of c0 starts at coefficient 7.
	require.Equal(t, big.NewInt(9), field.ToBig(c0Packed[1]))

	require.Equal(t, big.NewInt(5), field.ToBig(c1Packed[0]))
}

func TestCtCommitmentSensitivity(t *testing.T) {
	s := testScheme(t)
	_, pk, err := s.GenerateKey(testPRNG(t, 13))
	require.NoError(t, err)
	x, y := testOwnerPoint(t)
	ct, _, err := s.Encrypt(pk, x, y, testPRNG(t, 14))
	require.NoError(t, err)

	digest, err := s.CommitCiphertext(ct)
	require.NoError(t, err)
	again, err := s.CommitCiphertext(ct)
	require.NoError(t, err)
	require.True(t, digest.Equal(&again), "commitment must be deterministic")

	mutated := &Ciphertext{
		C0: append(SparsePoly(nil), ct.C0...),
		C1: append(DensePoly(nil), ct.C1...),
	}
	mutated.C0[0] = (mutated.C0[0] + 1) % s.Params().Q
	other, err := s.CommitCiphertext(mutated)
	require.NoError(t, err)
	require.False(t, digest.Equal(&other), "single-coefficient change must move the commitment")
}

func TestCiphertextCodecRoundTrip(t *testing.T) {
	s := testScheme(t)
	_, pk, err := s.GenerateKey(testPRNG(t, 15))
	require.NoError(t, err)
	x, y := testOwnerPoint(t)
	ct, _, err := s.Encrypt(pk, x, y, testPRNG(t, 16))
	require.NoError(t, err)

	data, err := EncodeCiphertext(ct, s.Params())
	require.NoError(t, err)

	back, err := DecodeCiphertext(data, s.Params())
	require.NoError(t, err)
	require.Equal(t, ct.C0, back.C0)
	require.Equal(t, ct.C1, back.C1)

	// A parameter mismatch is rejected on load.
	otherParams := s.Params()
	otherParams.Q = 12289
	_, err = DecodeCiphertext(data, otherParams)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = DecodeCiphertext([]byte("{\"n\":1024"), s.Params())
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestPublicKeyCodecRoundTrip(t *testing.T) {
	s := testScheme(t)
	_, pk, err := s.GenerateKey(testPRNG(t, 17))
	require.NoError(t, err)

	data, err := EncodePublicKey(pk, s.Params())
	require.NoError(t, err)

	back, err := DecodePublicKey(data, s.Params())
	require.NoError(t, err)
	require.Equal(t, pk.A, back.A)
	require.Equal(t, pk.B, back.B)
}

func TestPrivateKeyFromElements(t *testing.T) {
	s := testScheme(t)

	coeffs := make([]fr.Element, s.Params().N)
	coeffs[0] = field.FromBig(big.NewInt(3))
	coeffs[1] = field.FromBig(big.NewInt(-2)) // embeds as p-2
	coeffs[2] = field.FromBig(big.NewInt(0))

	sk, err := s.PrivateKeyFromElements(coeffs)
	require.NoError(t, err)
	require.Equal(t, int64(3), sk.Coeffs[0])
	require.Equal(t, int64(-2), sk.Coeffs[1])
	require.Equal(t, int64(0), sk.Coeffs[2])

	_, err = s.PrivateKeyFromElements(coeffs[:10])
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestEncryptIsDeterministicPerSeed(t *testing.T) {
	s := testScheme(t)
	_, pk, err := s.GenerateKey(testPRNG(t, 18))
	require.NoError(t, err)
	x, y := testOwnerPoint(t)

	ct1, _, err := s.Encrypt(pk, x, y, testPRNG(t, 19))
	require.NoError(t, err)
	ct2, _, err := s.Encrypt(pk, x, y, testPRNG(t, 19))
	require.NoError(t, err)
	require.Equal(t, ct1.C0, ct2.C0)
	require.Equal(t, ct1.C1, ct2.C1)

	ct3, _, err := s.Encrypt(pk, x, y, testPRNG(t, 20))
	require.NoError(t, err)
	require.NotEqual(t, ct1.C1, ct3.C1, "different randomness must change the ciphertext")
}
