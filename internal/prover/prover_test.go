package prover

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
	"github.com/veilpay/shieldpool/internal/merkle"
	"github.com/veilpay/shieldpool/internal/rlwe"
)

func felt(v uint64) fr.Element {
	return field.FromUint64(v)
}

func testWithdrawWitness() *WithdrawWitness {
	return &WithdrawWitness{
		Root:         felt(1001),
		Nullifier:    felt(1002),
		Recipient:    felt(1003),
		Amount:       5_000_000,
		WaCommitment: felt(1004),
	}
}

func TestWithdrawWitnessBlobRoundTrip(t *testing.T) {
	want := testWithdrawWitness()
	blob, err := BuildWithdrawWitnessBlob(want)
	require.NoError(t, err)
	require.Len(t, blob, witnessHeaderLen+WithdrawPublicCount*field.Size)

	require.Equal(t, uint32(WithdrawPublicCount), binary.BigEndian.Uint32(blob[0:4]))
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(blob[4:8]))
	require.Equal(t, uint32(WithdrawPublicCount), binary.BigEndian.Uint32(blob[8:12]))

	got, err := ParseWithdrawWitness(blob)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestAuditWitnessBlobRoundTrip(t *testing.T) {
	want := &AuditWitness{WaCommitment: felt(7), CtCommitment: felt(8)}
	blob, err := BuildAuditWitnessBlob(want)
	require.NoError(t, err)
	require.Len(t, blob, witnessHeaderLen+AuditPublicCount*field.Size)

	got, err := ParseAuditWitness(blob)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestParseWitnessRejectsBadLength(t *testing.T) {
	blob, err := BuildWithdrawWitnessBlob(testWithdrawWitness())
	require.NoError(t, err)

	for _, mod := range [][]byte{
		nil,
		blob[:len(blob)-1],
		append(append([]byte{}, blob...), 0),
		blob[:witnessHeaderLen],
	} {
		_, err := ParseWithdrawWitness(mod)
		require.ErrorIs(t, err, errs.ErrMalformedInput, "length %d", len(mod))
	}
}

func TestParseWitnessRejectsBadHeader(t *testing.T) {
	base, err := BuildWithdrawWitnessBlob(testWithdrawWitness())
	require.NoError(t, err)

	patch := func(offset int, v uint32) []byte {
		blob := append([]byte{}, base...)
		binary.BigEndian.PutUint32(blob[offset:offset+4], v)
		return blob
	}

	_, err = ParseWithdrawWitness(patch(0, WithdrawPublicCount+1))
	require.ErrorIs(t, err, errs.ErrMalformedInput)
	_, err = ParseWithdrawWitness(patch(4, 1)) // secret values in a public blob
	require.ErrorIs(t, err, errs.ErrMalformedInput)
	_, err = ParseWithdrawWitness(patch(8, WithdrawPublicCount-1))
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestParseWitnessRejectsNonCanonicalElement(t *testing.T) {
	blob, err := BuildWithdrawWitnessBlob(testWithdrawWitness())
	require.NoError(t, err)

	// Overwrite the root element with the modulus itself.
	field.Modulus().FillBytes(blob[witnessHeaderLen : witnessHeaderLen+field.Size])
	_, err = ParseWithdrawWitness(blob)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestParseWithdrawWitnessRejectsWideAmount(t *testing.T) {
	blob, err := BuildWithdrawWitnessBlob(testWithdrawWitness())
	require.NoError(t, err)

	// Set the amount element to 2^64.
	off := witnessHeaderLen + 3*field.Size
	for i := 0; i < field.Size; i++ {
		blob[off+i] = 0
	}
	blob[off+field.Size-9] = 1
	_, err = ParseWithdrawWitness(blob)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func testWithdrawInputs() *WithdrawInputs {
	in := &WithdrawInputs{
		Root:         felt(21),
		Nullifier:    felt(22),
		Recipient:    felt(23),
		Amount:       42,
		WaCommitment: felt(24),
		SecretKey:    felt(25),
		OwnerX:       felt(26),
		OwnerY:       felt(27),
		Randomness:   felt(28),
		Index:        9,
	}
	for i := range in.Siblings {
		in.Siblings[i] = felt(uint64(100 + i))
	}
	return in
}

func TestWithdrawInputsJSONRoundTrip(t *testing.T) {
	want := testWithdrawInputs()
	blob, err := json.Marshal(want)
	require.NoError(t, err)

	var got WithdrawInputs
	require.NoError(t, json.Unmarshal(blob, &got))
	require.Equal(t, want, &got)
}

func TestWithdrawInputsJSONKeys(t *testing.T) {
	blob, err := json.Marshal(testWithdrawInputs())
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &doc))
	for _, key := range []string{
		"root", "nullifier", "recipient", "amount", "wa_commitment",
		"secret_key", "owner_x", "owner_y", "randomness", "index", "siblings",
	} {
		require.Contains(t, doc, key)
	}
	require.Len(t, doc, 11)

	var siblings []string
	require.NoError(t, json.Unmarshal(doc["siblings"], &siblings))
	require.Len(t, siblings, merkle.Depth)
	require.JSONEq(t, `"0x000000000000000000000000000000000000000000000000000000000000002a"`, string(doc["amount"]))
}

func TestWithdrawInputsUnmarshalRejects(t *testing.T) {
	blob, err := json.Marshal(testWithdrawInputs())
	require.NoError(t, err)

	patch := func(key, value string) []byte {
		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(blob, &doc))
		doc[key] = json.RawMessage(value)
		out, err := json.Marshal(doc)
		require.NoError(t, err)
		return out
	}

	var in WithdrawInputs
	// Tree index past capacity.
	err = json.Unmarshal(patch("index", `"0x10000"`), &in)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
	// Amount wider than 64 bits.
	err = json.Unmarshal(patch("amount", `"0x10000000000000000"`), &in)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
	// Wrong path length.
	err = json.Unmarshal(patch("siblings", `["0x1","0x2"]`), &in)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
	// Non-canonical field value.
	err = json.Unmarshal(patch("root", `"0x30644e72e131a029b85045b68181585d2833e84879b9709143e1f593f0000001"`), &in)
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func testAuditInputs(params rlwe.Params) *AuditInputs {
	in := &AuditInputs{
		SecretKey:    felt(31),
		WaCommitment: felt(32),
		CtCommitment: felt(33),
		C0Packed:     make([]fr.Element, rlwe.C0PackedLen),
		C1Packed:     make([]fr.Element, params.C1PackedLen()),
		R:            make([]int64, params.N),
		E1Sparse:     make([]int64, rlwe.MessageSlots),
		E2:           make([]int64, params.N),
		K0:           make([]int64, rlwe.MessageSlots),
		K1:           make([]int64, params.N),
	}
	for i := range in.C0Packed {
		in.C0Packed[i] = felt(uint64(200 + i))
	}
	for i := range in.R {
		in.R[i] = int64(i%7) - 3 // mix of signs
	}
	for i := range in.E1Sparse {
		in.E1Sparse[i] = -2
		in.K0[i] = int64(i) - 40
	}
	for i := range in.E2 {
		in.E2[i] = 3
		in.K1[i] = -int64(i)
	}
	return in
}

func TestAuditInputsJSONRoundTrip(t *testing.T) {
	params := rlwe.DefaultParams()
	want := testAuditInputs(params)
	require.NoError(t, want.Validate(params))

	blob, err := json.Marshal(want)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &doc))
	for _, key := range []string{
		"secret_key", "wa_commitment", "ct_commitment",
		"c0_packed", "c1_packed", "r", "e1_sparse", "e2", "k0", "k1",
	} {
		require.Contains(t, doc, key)
	}
	require.Len(t, doc, 10)

	var got AuditInputs
	require.NoError(t, json.Unmarshal(blob, &got))
	require.Equal(t, want, &got)
	require.NoError(t, got.Validate(params))
}

func TestAuditInputsNegativeEmbedding(t *testing.T) {
	in := &AuditInputs{R: []int64{-1}}
	blob, err := json.Marshal(in)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &doc))

	// -1 embeds as p-1.
	var r []string
	require.NoError(t, json.Unmarshal(doc["r"], &r))
	pMinusOne, err := field.FromHex(r[0])
	require.NoError(t, err)
	var one, sum fr.Element
	one.SetOne()
	sum.Add(&pMinusOne, &one)
	require.True(t, sum.IsZero())
}

func TestAuditInputsValidateRejectsShape(t *testing.T) {
	params := rlwe.DefaultParams()
	in := testAuditInputs(params)
	in.C0Packed = in.C0Packed[:rlwe.C0PackedLen-1]
	require.ErrorIs(t, in.Validate(params), errs.ErrMalformedInput)

	in = testAuditInputs(params)
	in.K1 = append(in.K1, 0)
	require.ErrorIs(t, in.Validate(params), errs.ErrMalformedInput)
}
