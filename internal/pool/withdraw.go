// withdraw.go - Withdraw assignment assembly and root freshness checks.
package pool

import (
	"go.uber.org/zap"

	"github.com/veilpay/shieldpool/internal/chain"
	"github.com/veilpay/shieldpool/internal/note"
	"github.com/veilpay/shieldpool/internal/prover"
)

// WithdrawInputs assembles the withdraw circuit assignment for d against the
// current local root: membership path, nullifier, recipient and amount
// encodings, and the private spending material.
func (c *Client) WithdrawInputs(d *Deposit, recipient [32]byte) (*prover.WithdrawInputs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	proof, err := c.tree.Proof(d.Index)
	if err != nil {
		return nil, err
	}
	return &prover.WithdrawInputs{
		Root:         c.tree.Root(),
		Nullifier:    note.Nullifier(c.eng, d.Keys.Secret, d.Index),
		Recipient:    chain.EncodeRecipient(recipient),
		Amount:       d.Amount,
		WaCommitment: d.WaCommitment,
		SecretKey:    d.Keys.Secret.Element(),
		OwnerX:       d.Keys.Public.X,
		OwnerY:       d.Keys.Public.Y,
		Randomness:   d.Randomness,
		Index:        d.Index,
		Siblings:     proof.Siblings,
	}, nil
}

// CheckRootFreshness validates a proof root against the parsed on-chain
// ledger. Roots close to eviction still pass but log a warning: a proof
// built on them may expire before it lands.
func (c *Client) CheckRootFreshness(state *chain.PoolState, root [32]byte) (chain.RootStatus, error) {
	status, err := chain.CheckRoot(state, root, c.expiry)
	if err != nil {
		return status, err
	}
	if status.Age >= chain.RootRingSize-c.expiry {
		c.log.Warn("proof root close to eviction, rebuild against a fresh root",
			zap.Int("age", status.Age),
			zap.Int("ring_index", status.RingIndex))
	}
	return status, nil
}
