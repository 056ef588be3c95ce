// inputs.go - Named input maps for the external proving service.
//
// The prover consumes JSON documents whose keys are fixed by the circuit
// definitions. Every value is a 0x-prefixed hex field element; signed noise
// terms are embedded in the field as p - |v|.
package prover

import (
	"encoding/json"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
	"github.com/veilpay/shieldpool/internal/merkle"
	"github.com/veilpay/shieldpool/internal/rlwe"
)

// WithdrawInputs carries everything the withdraw circuit takes: the five
// public inputs followed by the private spending material and the Merkle
// path of the note being spent.
type WithdrawInputs struct {
	Root         fr.Element
	Nullifier    fr.Element
	Recipient    fr.Element
	Amount       uint64
	WaCommitment fr.Element
	SecretKey    fr.Element
	OwnerX       fr.Element
	OwnerY       fr.Element
	Randomness   fr.Element
	Index        uint32
	Siblings     [merkle.Depth]fr.Element
}

// AuditInputs carries the audit circuit assignment: the key binding, both
// commitments, the packed ciphertext and the full noise witness.
type AuditInputs struct {
	SecretKey    fr.Element
	WaCommitment fr.Element
	CtCommitment fr.Element
	C0Packed     []fr.Element
	C1Packed     []fr.Element
	R            []int64
	E1Sparse     []int64
	E2           []int64
	K0           []int64
	K1           []int64
}

// hexFr renders a field element as 0x-prefixed hex in JSON.
type hexFr fr.Element

func (h hexFr) MarshalJSON() ([]byte, error) {
	return json.Marshal(field.ToHex(fr.Element(h)))
}

func (h *hexFr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrapf(errs.ErrMalformedInput, "prover: field value: %v", err)
	}
	e, err := field.FromHex(s)
	if err != nil {
		return err
	}
	*h = hexFr(e)
	return nil
}

func hexSlice(values []fr.Element) []hexFr {
	out := make([]hexFr, len(values))
	for i, v := range values {
		out[i] = hexFr(v)
	}
	return out
}

func frSlice(values []hexFr) []fr.Element {
	out := make([]fr.Element, len(values))
	for i, v := range values {
		out[i] = fr.Element(v)
	}
	return out
}

// signedSlice embeds signed integers into the field, negatives as p - |v|.
func signedSlice(values []int64) []hexFr {
	out := make([]hexFr, len(values))
	for i, v := range values {
		out[i] = hexFr(field.FromBig(big.NewInt(v)))
	}
	return out
}

// signedFromHex recovers a signed integer from its field embedding. Values
// in (p/2, p) map to negatives; anything outside the int64 range is
// rejected.
func signedFromHex(values []hexFr) ([]int64, error) {
	half := new(big.Int).Rsh(field.Modulus(), 1)
	out := make([]int64, len(values))
	for i, v := range values {
		b := field.ToBig(fr.Element(v))
		if b.Cmp(half) > 0 {
			b.Sub(b, field.Modulus())
		}
		if !b.IsInt64() {
			return nil, errors.Wrap(errs.ErrMalformedInput, "prover: signed witness value out of int64 range")
		}
		out[i] = b.Int64()
	}
	return out, nil
}

type withdrawInputsJSON struct {
	Root         hexFr   `json:"root"`
	Nullifier    hexFr   `json:"nullifier"`
	Recipient    hexFr   `json:"recipient"`
	Amount       hexFr   `json:"amount"`
	WaCommitment hexFr   `json:"wa_commitment"`
	SecretKey    hexFr   `json:"secret_key"`
	OwnerX       hexFr   `json:"owner_x"`
	OwnerY       hexFr   `json:"owner_y"`
	Randomness   hexFr   `json:"randomness"`
	Index        hexFr   `json:"index"`
	Siblings     []hexFr `json:"siblings"`
}

// MarshalJSON emits the withdraw assignment under the circuit's input names.
func (in *WithdrawInputs) MarshalJSON() ([]byte, error) {
	return json.Marshal(withdrawInputsJSON{
		Root:         hexFr(in.Root),
		Nullifier:    hexFr(in.Nullifier),
		Recipient:    hexFr(in.Recipient),
		Amount:       hexFr(field.FromUint64(in.Amount)),
		WaCommitment: hexFr(in.WaCommitment),
		SecretKey:    hexFr(in.SecretKey),
		OwnerX:       hexFr(in.OwnerX),
		OwnerY:       hexFr(in.OwnerY),
		Randomness:   hexFr(in.Randomness),
		Index:        hexFr(field.FromUint64(uint64(in.Index))),
		Siblings:     hexSlice(in.Siblings[:]),
	})
}

// UnmarshalJSON decodes a withdraw assignment, enforcing the tree depth and
// the u64/index ranges.
func (in *WithdrawInputs) UnmarshalJSON(data []byte) error {
	var raw withdrawInputsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(errs.ErrMalformedInput, "prover: withdraw inputs: %v", err)
	}
	if len(raw.Siblings) != merkle.Depth {
		return errors.Wrapf(errs.ErrMalformedInput, "prover: %d siblings, want %d", len(raw.Siblings), merkle.Depth)
	}
	amount, err := smallUint(fr.Element(raw.Amount), 0)
	if err != nil {
		return errors.Wrap(errs.ErrMalformedInput, "prover: amount exceeds 64 bits")
	}
	index, err := smallUint(fr.Element(raw.Index), merkle.Capacity)
	if err != nil {
		return errors.Wrapf(errs.ErrMalformedInput, "prover: index out of range for depth %d", merkle.Depth)
	}
	in.Root = fr.Element(raw.Root)
	in.Nullifier = fr.Element(raw.Nullifier)
	in.Recipient = fr.Element(raw.Recipient)
	in.Amount = amount
	in.WaCommitment = fr.Element(raw.WaCommitment)
	in.SecretKey = fr.Element(raw.SecretKey)
	in.OwnerX = fr.Element(raw.OwnerX)
	in.OwnerY = fr.Element(raw.OwnerY)
	in.Randomness = fr.Element(raw.Randomness)
	in.Index = uint32(index)
	copy(in.Siblings[:], frSlice(raw.Siblings))
	return nil
}

// smallUint extracts a u64 from a field element, optionally capped below
// limit (0 means the full u64 range).
func smallUint(e fr.Element, limit uint64) (uint64, error) {
	b := field.ToBig(e)
	if !b.IsUint64() {
		return 0, errors.New("value exceeds 64 bits")
	}
	v := b.Uint64()
	if limit > 0 && v >= limit {
		return 0, errors.New("value out of range")
	}
	return v, nil
}

type auditInputsJSON struct {
	SecretKey    hexFr   `json:"secret_key"`
	WaCommitment hexFr   `json:"wa_commitment"`
	CtCommitment hexFr   `json:"ct_commitment"`
	C0Packed     []hexFr `json:"c0_packed"`
	C1Packed     []hexFr `json:"c1_packed"`
	R            []hexFr `json:"r"`
	E1Sparse     []hexFr `json:"e1_sparse"`
	E2           []hexFr `json:"e2"`
	K0           []hexFr `json:"k0"`
	K1           []hexFr `json:"k1"`
}

// MarshalJSON emits the audit assignment under the circuit's input names.
func (in *AuditInputs) MarshalJSON() ([]byte, error) {
	return json.Marshal(auditInputsJSON{
		SecretKey:    hexFr(in.SecretKey),
		WaCommitment: hexFr(in.WaCommitment),
		CtCommitment: hexFr(in.CtCommitment),
		C0Packed:     hexSlice(in.C0Packed),
		C1Packed:     hexSlice(in.C1Packed),
		R:            signedSlice(in.R),
		E1Sparse:     signedSlice(in.E1Sparse),
		E2:           signedSlice(in.E2),
		K0:           signedSlice(in.K0),
		K1:           signedSlice(in.K1),
	})
}

// UnmarshalJSON decodes an audit assignment. Shape checks against concrete
// RLWE parameters live in Validate, not here.
func (in *AuditInputs) UnmarshalJSON(data []byte) error {
	var raw auditInputsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(errs.ErrMalformedInput, "prover: audit inputs: %v", err)
	}
	r, err := signedFromHex(raw.R)
	if err != nil {
		return err
	}
	e1, err := signedFromHex(raw.E1Sparse)
	if err != nil {
		return err
	}
	e2, err := signedFromHex(raw.E2)
	if err != nil {
		return err
	}
	k0, err := signedFromHex(raw.K0)
	if err != nil {
		return err
	}
	k1, err := signedFromHex(raw.K1)
	if err != nil {
		return err
	}
	in.SecretKey = fr.Element(raw.SecretKey)
	in.WaCommitment = fr.Element(raw.WaCommitment)
	in.CtCommitment = fr.Element(raw.CtCommitment)
	in.C0Packed = frSlice(raw.C0Packed)
	in.C1Packed = frSlice(raw.C1Packed)
	in.R = r
	in.E1Sparse = e1
	in.E2 = e2
	in.K0 = k0
	in.K1 = k1
	return nil
}

// Validate checks the assignment shape against concrete RLWE parameters.
func (in *AuditInputs) Validate(params rlwe.Params) error {
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"c0_packed", len(in.C0Packed), rlwe.C0PackedLen},
		{"c1_packed", len(in.C1Packed), params.C1PackedLen()},
		{"r", len(in.R), params.N},
		{"e1_sparse", len(in.E1Sparse), rlwe.MessageSlots},
		{"e2", len(in.E2), params.N},
		{"k0", len(in.K0), rlwe.MessageSlots},
		{"k1", len(in.K1), params.N},
	}
	for _, c := range checks {
		if c.got != c.want {
			return errors.Wrapf(errs.ErrMalformedInput, "prover: %s has %d entries, want %d", c.name, c.got, c.want)
		}
	}
	return nil
}
