// client.go - Deposit lifecycle and local pool state.
package pool

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v4/utils"
	"go.uber.org/zap"

	"github.com/veilpay/shieldpool/internal/chain"
	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
	"github.com/veilpay/shieldpool/internal/identity"
	"github.com/veilpay/shieldpool/internal/merkle"
	"github.com/veilpay/shieldpool/internal/note"
	"github.com/veilpay/shieldpool/internal/poseidon"
	"github.com/veilpay/shieldpool/internal/rlwe"
)

// AuditState tracks how far a deposit's audit ciphertext has progressed.
type AuditState string

const (
	// AuditNotEncrypted means encryption has not succeeded yet; the deposit
	// itself stands and encryption can be retried.
	AuditNotEncrypted AuditState = "not_encrypted"
	// AuditEncrypted means ciphertext and noise witness are ready for
	// proving.
	AuditEncrypted AuditState = "encrypted"
	// AuditSubmitted means the audit proof went on chain. Terminal.
	AuditSubmitted AuditState = "submitted"
)

// ErrAuditState rejects audit lifecycle transitions taken out of order.
var ErrAuditState = errors.New("pool: invalid audit state for this operation")

// Deposit is one note owned by this client.
type Deposit struct {
	Index        uint32
	Amount       uint64
	Keys         identity.Keypair
	Randomness   fr.Element
	Commitment   fr.Element
	WaCommitment fr.Element

	AuditState   AuditState
	Ciphertext   *rlwe.Ciphertext
	NoiseWitness *rlwe.NoiseWitness
}

// Config carries everything a Client needs up front.
type Config struct {
	// Params are the RLWE audit parameters; the zero value means
	// rlwe.DefaultParams.
	Params rlwe.Params
	// AuditKey is the auditor's encryption key. Required.
	AuditKey *rlwe.PublicKey
	// ExpiryThreshold marks roots within this many inserts of eviction;
	// zero means chain.DefaultExpiryThreshold.
	ExpiryThreshold int
	// Rand is the entropy source for identities and note randomness; nil
	// means crypto/rand.
	Rand io.Reader
}

// Client mints deposits into the local tree and prepares prover assignments
// for them. Safe for concurrent use.
type Client struct {
	log      *zap.Logger
	eng      *poseidon.Engine
	tree     *merkle.Tree
	scheme   *rlwe.Scheme
	auditKey *rlwe.PublicKey
	expiry   int
	rand     io.Reader

	mu       sync.Mutex
	prng     utils.PRNG
	deposits []*Deposit
}

// New builds a Client: Poseidon self-check, empty tree, RLWE scheme bound to
// the audit key.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AuditKey == nil {
		return nil, errors.Wrap(errs.ErrInitialization, "pool: audit key is required")
	}
	params := cfg.Params
	if params == (rlwe.Params{}) {
		params = rlwe.DefaultParams()
	}
	expiry := cfg.ExpiryThreshold
	if expiry == 0 {
		expiry = chain.DefaultExpiryThreshold
	}
	if expiry < 1 || expiry >= chain.RootRingSize {
		return nil, errors.Wrapf(errs.ErrInitialization, "pool: expiry threshold %d out of range", expiry)
	}

	eng, err := poseidon.New()
	if err != nil {
		return nil, err
	}
	scheme, err := rlwe.NewScheme(params)
	if err != nil {
		return nil, err
	}
	if err := cfg.AuditKey.Validate(params); err != nil {
		return nil, err
	}
	prng, err := utils.NewPRNG()
	if err != nil {
		return nil, errors.Wrapf(errs.ErrInitialization, "pool: rlwe prng: %v", err)
	}
	entropy := cfg.Rand
	if entropy == nil {
		entropy = rand.Reader
	}

	c := &Client{
		log:      log,
		eng:      eng,
		tree:     merkle.NewTree(eng),
		scheme:   scheme,
		auditKey: cfg.AuditKey,
		expiry:   expiry,
		rand:     entropy,
		prng:     prng,
	}
	log.Info("pool client ready",
		zap.Int("tree_depth", merkle.Depth),
		zap.Int("ring_degree", params.N),
		zap.Uint64("modulus", params.Q))
	return c, nil
}

// Deposit mints a note for amount: fresh identity, fresh randomness, leaf
// insert, then audit encryption. Encryption failure does not reject the
// deposit; it stays AuditNotEncrypted for a later RetryAudit.
func (c *Client) Deposit(amount uint64) (*Deposit, error) {
	keys, err := identity.GenerateKeypair(c.rand)
	if err != nil {
		return nil, err
	}
	randomness, err := note.NewRandomness()
	if err != nil {
		return nil, err
	}
	commitment := note.Commitment(c.eng, keys.Public, amount, randomness)
	waCommitment := note.WaCommitment(c.eng, keys.Public)

	c.mu.Lock()
	defer c.mu.Unlock()
	index, root, err := c.tree.Insert(commitment)
	if err != nil {
		return nil, err
	}
	d := &Deposit{
		Index:        index,
		Amount:       amount,
		Keys:         keys,
		Randomness:   randomness,
		Commitment:   commitment,
		WaCommitment: waCommitment,
		AuditState:   AuditNotEncrypted,
	}
	if err := c.encryptAuditLocked(d); err != nil {
		c.log.Warn("audit encryption failed, deposit stays pending",
			zap.Uint32("index", index),
			zap.Error(err))
	}
	c.deposits = append(c.deposits, d)
	c.log.Info("deposit minted",
		zap.Uint32("index", index),
		zap.Uint64("amount", amount),
		zap.String("root", field.ToHex(root)),
		zap.String("audit_state", string(d.AuditState)))
	return d, nil
}

// encryptAuditLocked encrypts the owner point to the audit key and advances
// the deposit to AuditEncrypted. Callers hold c.mu.
func (c *Client) encryptAuditLocked(d *Deposit) error {
	ct, wit, err := c.scheme.Encrypt(c.auditKey, d.Keys.Public.X, d.Keys.Public.Y, c.prng)
	if err != nil {
		return err
	}
	d.Ciphertext = ct
	d.NoiseWitness = wit
	d.AuditState = AuditEncrypted
	return nil
}

// Root returns the current local tree root.
func (c *Client) Root() fr.Element {
	return c.tree.Root()
}

// Len returns how many deposits this client has minted.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deposits)
}

// Deposits returns a snapshot of the client's deposits in mint order.
func (c *Client) Deposits() []*Deposit {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Deposit, len(c.deposits))
	copy(out, c.deposits)
	return out
}
