// audit.go - Audit ciphertext lifecycle and auditor-side verification.
package pool

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/identity"
	"github.com/veilpay/shieldpool/internal/note"
	"github.com/veilpay/shieldpool/internal/poseidon"
	"github.com/veilpay/shieldpool/internal/prover"
	"github.com/veilpay/shieldpool/internal/rlwe"
)

// RetryAudit re-attempts encryption for a deposit still pending. Only valid
// from AuditNotEncrypted.
func (c *Client) RetryAudit(d *Deposit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.AuditState != AuditNotEncrypted {
		return errors.Wrapf(ErrAuditState, "retry from %q", d.AuditState)
	}
	if err := c.encryptAuditLocked(d); err != nil {
		return err
	}
	c.log.Info("audit encryption recovered", zap.Uint32("index", d.Index))
	return nil
}

// MarkAuditSubmitted records that the audit proof for d went on chain. Only
// valid from AuditEncrypted.
func (c *Client) MarkAuditSubmitted(d *Deposit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.AuditState != AuditEncrypted {
		return errors.Wrapf(ErrAuditState, "submit from %q", d.AuditState)
	}
	d.AuditState = AuditSubmitted
	c.log.Info("audit proof submitted", zap.Uint32("index", d.Index))
	return nil
}

// AuditInputs assembles the audit circuit assignment for an encrypted
// deposit: packed ciphertext, ciphertext commitment and the noise witness.
func (c *Client) AuditInputs(d *Deposit) (*prover.AuditInputs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.Ciphertext == nil || d.NoiseWitness == nil {
		return nil, errors.Wrap(ErrAuditState, "audit ciphertext not ready")
	}
	c0Packed, c1Packed, err := rlwe.PackCiphertext(d.Ciphertext, c.scheme.Params())
	if err != nil {
		return nil, err
	}
	ctCommitment, err := c.scheme.CommitCiphertext(d.Ciphertext)
	if err != nil {
		return nil, err
	}
	return &prover.AuditInputs{
		SecretKey:    d.Keys.Secret.Element(),
		WaCommitment: d.WaCommitment,
		CtCommitment: ctCommitment,
		C0Packed:     c0Packed,
		C1Packed:     c1Packed,
		R:            d.NoiseWitness.R,
		E1Sparse:     d.NoiseWitness.E1,
		E2:           d.NoiseWitness.E2,
		K0:           d.NoiseWitness.K0,
		K1:           d.NoiseWitness.K1,
	}, nil
}

// VerifyAuditDecryption checks a threshold-decrypted owner point against the
// key commitment that accompanied the ciphertext on chain. A mismatch means
// the decryption (or the shares behind it) does not belong to this deposit.
func VerifyAuditDecryption(eng *poseidon.Engine, waCommitment, ownerX, ownerY fr.Element) error {
	got := note.WaCommitment(eng, identity.PublicKey{X: ownerX, Y: ownerY})
	if !got.Equal(&waCommitment) {
		return errors.Wrap(errs.ErrVerificationMismatch, "pool: decrypted owner does not match the key commitment")
	}
	return nil
}
