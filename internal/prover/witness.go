// witness.go - Public-witness blobs in gnark's binary serialization.
//
// The chain program receives proofs together with a public-witness blob in
// gnark's wire format: a 12-byte header (u32 public count, u32 secret count,
// u32 vector length, all big-endian) followed by the vector as 32-byte
// big-endian field elements. Withdraw proofs expose five public inputs,
// audit proofs two. This package decodes submitted blobs back into typed
// values and builds them for tests and tooling.
package prover

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/witness"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/chain"
	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
)

const (
	witnessHeaderLen = 12

	// WithdrawPublicCount is the number of public inputs a withdraw proof
	// exposes, in order: root, nullifier, recipient, amount, waCommitment.
	WithdrawPublicCount = 5
	// AuditPublicCount is the number of public inputs an audit proof
	// exposes, in order: waCommitment, ctCommitment.
	AuditPublicCount = 2
)

// WithdrawWitness is the decoded public part of a withdraw proof.
type WithdrawWitness struct {
	Root         fr.Element
	Nullifier    fr.Element
	Recipient    fr.Element
	Amount       uint64
	WaCommitment fr.Element
}

// AuditWitness is the decoded public part of an audit proof.
type AuditWitness struct {
	WaCommitment fr.Element
	CtCommitment fr.Element
}

// ParseWithdrawWitness decodes a withdraw public-witness blob. The amount
// element must fit in a u64.
func ParseWithdrawWitness(blob []byte) (*WithdrawWitness, error) {
	vec, err := parsePublicVector(blob, WithdrawPublicCount)
	if err != nil {
		return nil, err
	}
	amount, err := chain.DecodeAmount(vec[3])
	if err != nil {
		return nil, err
	}
	return &WithdrawWitness{
		Root:         vec[0],
		Nullifier:    vec[1],
		Recipient:    vec[2],
		Amount:       amount,
		WaCommitment: vec[4],
	}, nil
}

// ParseAuditWitness decodes an audit public-witness blob.
func ParseAuditWitness(blob []byte) (*AuditWitness, error) {
	vec, err := parsePublicVector(blob, AuditPublicCount)
	if err != nil {
		return nil, err
	}
	return &AuditWitness{WaCommitment: vec[0], CtCommitment: vec[1]}, nil
}

// BuildWithdrawWitnessBlob serializes the public inputs of a withdraw proof.
func BuildWithdrawWitnessBlob(w *WithdrawWitness) ([]byte, error) {
	return buildPublicBlob([]fr.Element{
		w.Root,
		w.Nullifier,
		w.Recipient,
		chain.EncodeAmount(w.Amount),
		w.WaCommitment,
	})
}

// BuildAuditWitnessBlob serializes the public inputs of an audit proof.
func BuildAuditWitnessBlob(w *AuditWitness) ([]byte, error) {
	return buildPublicBlob([]fr.Element{w.WaCommitment, w.CtCommitment})
}

// parsePublicVector validates the blob shape against the expected public
// count, then lets gnark decode it. Element bytes above the modulus fail
// inside the gnark decoder and surface as malformed input.
func parsePublicVector(blob []byte, want int) (fr.Vector, error) {
	wantLen := witnessHeaderLen + want*field.Size
	if len(blob) != wantLen {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "prover: witness blob is %d bytes, want %d", len(blob), wantLen)
	}
	nbPublic := binary.BigEndian.Uint32(blob[0:4])
	nbSecret := binary.BigEndian.Uint32(blob[4:8])
	vecLen := binary.BigEndian.Uint32(blob[8:12])
	if nbPublic != uint32(want) || nbSecret != 0 || vecLen != uint32(want) {
		return nil, errors.Wrapf(errs.ErrMalformedInput,
			"prover: witness header declares %d public, %d secret, %d values, want %d public only",
			nbPublic, nbSecret, vecLen, want)
	}

	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, errors.Wrap(err, "prover: new witness")
	}
	if err := w.UnmarshalBinary(blob); err != nil {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "prover: decode witness blob: %v", err)
	}
	vec, ok := w.Vector().(fr.Vector)
	if !ok || len(vec) != want {
		return nil, errors.Wrap(errs.ErrMalformedInput, "prover: witness vector has unexpected shape")
	}
	return vec, nil
}

// buildPublicBlob fills a public-only gnark witness and marshals it.
func buildPublicBlob(values []fr.Element) ([]byte, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, errors.Wrap(err, "prover: new witness")
	}
	ch := make(chan any, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	if err := w.Fill(len(values), 0, ch); err != nil {
		return nil, errors.Wrap(err, "prover: fill witness")
	}
	blob, err := w.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "prover: encode witness")
	}
	return blob, nil
}
