// main.go - shieldctl: operator tooling for the shielded value pool.
//
// Subcommands:
//   keygen         generate the auditor RLWE keypair and 2-of-3 key shares
//   inspect-state  decode a pool account blob and print the root ring
//   check-root     verdict on a proof root against a pool account blob
//   audit-decrypt  threshold-decrypt an audit ciphertext and verify the owner
//   demo           run the deposit/withdraw/audit flow against a local pool
//
// Usage:
//   shieldctl <command> [flags]
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v4/utils"
	"go.uber.org/zap"

	"github.com/veilpay/shieldpool/internal/chain"
	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
	"github.com/veilpay/shieldpool/internal/pool"
	"github.com/veilpay/shieldpool/internal/poseidon"
	"github.com/veilpay/shieldpool/internal/prover"
	"github.com/veilpay/shieldpool/internal/rlwe"
	"github.com/veilpay/shieldpool/internal/shamir"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "shieldctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	switch cmd {
	case "keygen":
		return runKeygen(args)
	case "inspect-state":
		return runInspectState(args)
	case "check-root":
		return runCheckRoot(args)
	case "audit-decrypt":
		return runAuditDecrypt(args)
	case "demo":
		return runDemo(args)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return errors.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `shieldctl - operator tooling for the shielded value pool

Commands:
  keygen         generate the auditor RLWE keypair and 2-of-3 key shares
  inspect-state  decode a pool account blob and print the root ring
  check-root     verdict on a proof root against a pool account blob
  audit-decrypt  threshold-decrypt an audit ciphertext and verify the owner
  demo           run the deposit/withdraw/audit flow against a local pool

Run 'shieldctl <command> -h' for command flags.
`)
}

// setup loads and validates the config and builds the logger.
func setup(configPath string) (*Config, *zap.Logger, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	configPath := fs.String("config", "shieldctl.json", "config file")
	outDir := fs.String("out", "", "output directory (default: key_dir from config)")
	fs.Parse(args)

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	dir := *outDir
	if dir == "" {
		dir = cfg.KeyDir
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create key directory")
	}

	scheme, err := rlwe.NewScheme(cfg.Params())
	if err != nil {
		return err
	}
	prng, err := utils.NewPRNG()
	if err != nil {
		return errors.Wrap(err, "rlwe prng")
	}
	sk, pk, err := scheme.GenerateKey(prng)
	if err != nil {
		return err
	}

	pkBytes, err := rlwe.EncodePublicKey(pk, cfg.Params())
	if err != nil {
		return err
	}
	pkPath := filepath.Join(dir, "audit_pk.json")
	if err := os.WriteFile(pkPath, pkBytes, 0o644); err != nil {
		return errors.Wrap(err, "write public key")
	}

	shares, err := shamir.Split(sk.Elements(), shamir.DefaultThreshold, shamir.DefaultShares)
	if err != nil {
		return err
	}
	for _, share := range shares {
		data, err := shamir.EncodeShare(share)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("share_%d.json", share.Index))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return errors.Wrap(err, "write key share")
		}
		log.Info("key share written", zap.String("path", path))
	}
	log.Info("audit keypair generated",
		zap.String("public_key", pkPath),
		zap.Int("threshold", shamir.DefaultThreshold),
		zap.Int("shares", shamir.DefaultShares))
	return nil
}

func runInspectState(args []string) error {
	fs := flag.NewFlagSet("inspect-state", flag.ExitOnError)
	configPath := fs.String("config", "shieldctl.json", "config file")
	statePath := fs.String("state", "", "pool account blob")
	fs.Parse(args)
	if *statePath == "" {
		return errors.New("inspect-state: -state is required")
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	blob, err := os.ReadFile(*statePath)
	if err != nil {
		return errors.Wrap(err, "read state blob")
	}
	state, err := chain.ParsePoolState(blob)
	if err != nil {
		return err
	}
	printState(state, cfg.ExpiryThreshold)
	return nil
}

func printState(s *chain.PoolState, threshold int) {
	fmt.Printf("discriminator:    %#016x\n", s.Discriminator)
	fmt.Printf("initialized:      %v\n", s.Initialized())
	fmt.Printf("leaf count:       %d\n", s.LeafCount)
	fmt.Printf("next write index: %d\n", s.NextWriteIndex)
	fmt.Printf("current root:     %x\n", s.CurrentRoot)
	fmt.Println("ring:")
	for i := 0; i < chain.RootRingSize; i++ {
		age := s.Age(i)
		switch {
		case age == chain.AgeEvicted:
			fmt.Printf("  [%2d] (empty)\n", i)
		case s.NearExpiry(i, threshold):
			fmt.Printf("  [%2d] %x  age=%-2d  near expiry\n", i, s.Roots[i], age)
		default:
			fmt.Printf("  [%2d] %x  age=%-2d\n", i, s.Roots[i], age)
		}
	}
}

func runCheckRoot(args []string) error {
	fs := flag.NewFlagSet("check-root", flag.ExitOnError)
	configPath := fs.String("config", "shieldctl.json", "config file")
	statePath := fs.String("state", "", "pool account blob")
	rootHex := fs.String("root", "", "root to check, 32 bytes of hex")
	fs.Parse(args)
	if *statePath == "" || *rootHex == "" {
		return errors.New("check-root: -state and -root are required")
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	root, err := parseRoot(*rootHex)
	if err != nil {
		return err
	}
	blob, err := os.ReadFile(*statePath)
	if err != nil {
		return errors.Wrap(err, "read state blob")
	}
	state, err := chain.ParsePoolState(blob)
	if err != nil {
		return err
	}

	status, err := chain.CheckRoot(state, root, cfg.ExpiryThreshold)
	if err != nil {
		return err
	}
	verdict := "ok"
	if status.Age >= chain.RootRingSize-cfg.ExpiryThreshold {
		verdict = "near expiry, rebuild the proof soon"
	}
	fmt.Printf("root valid: age %d of %d (%s)\n", status.Age, chain.RootRingSize-1, verdict)
	return nil
}

func parseRoot(s string) ([32]byte, error) {
	var root [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(raw) != len(root) {
		return root, errors.Wrap(errs.ErrMalformedInput, "root must be 32 bytes of hex")
	}
	copy(root[:], raw)
	return root, nil
}

func runAuditDecrypt(args []string) error {
	fs := flag.NewFlagSet("audit-decrypt", flag.ExitOnError)
	configPath := fs.String("config", "shieldctl.json", "config file")
	ctPath := fs.String("ciphertext", "", "ciphertext JSON file")
	sharePaths := fs.String("shares", "", "comma-separated key share files (need 2)")
	waHex := fs.String("wa", "", "expected key commitment, hex field element")
	fs.Parse(args)
	if *ctPath == "" || *sharePaths == "" {
		return errors.New("audit-decrypt: -ciphertext and -shares are required")
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	scheme, err := rlwe.NewScheme(cfg.Params())
	if err != nil {
		return err
	}
	ctBytes, err := os.ReadFile(*ctPath)
	if err != nil {
		return errors.Wrap(err, "read ciphertext")
	}
	ct, err := rlwe.DecodeCiphertext(ctBytes, cfg.Params())
	if err != nil {
		return err
	}

	var shares []shamir.KeyShare
	for _, path := range strings.Split(*sharePaths, ",") {
		data, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return errors.Wrap(err, "read key share")
		}
		share, err := shamir.DecodeShare(data)
		if err != nil {
			return err
		}
		shares = append(shares, share)
	}
	coeffs, err := shamir.Reconstruct(shares)
	if err != nil {
		return err
	}
	sk, err := scheme.PrivateKeyFromElements(coeffs)
	if err != nil {
		return err
	}

	ownerX, ownerY, err := scheme.Decrypt(sk, ct)
	if err != nil {
		return err
	}
	if *waHex != "" {
		wa, err := field.FromHex(*waHex)
		if err != nil {
			return err
		}
		eng, err := poseidon.New()
		if err != nil {
			return err
		}
		if err := pool.VerifyAuditDecryption(eng, wa, ownerX, ownerY); err != nil {
			return err
		}
		log.Info("owner point matches the key commitment")
	}
	fmt.Printf("owner_x: %s\n", field.ToHex(ownerX))
	fmt.Printf("owner_y: %s\n", field.ToHex(ownerY))
	return nil
}

func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	configPath := fs.String("config", "shieldctl.json", "config file")
	fs.Parse(args)

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	// 1. Auditor side: RLWE keypair split into 2-of-3 shares.
	scheme, err := rlwe.NewScheme(cfg.Params())
	if err != nil {
		return err
	}
	prng, err := utils.NewPRNG()
	if err != nil {
		return errors.Wrap(err, "rlwe prng")
	}
	sk, pk, err := scheme.GenerateKey(prng)
	if err != nil {
		return err
	}
	shares, err := shamir.Split(sk.Elements(), shamir.DefaultThreshold, shamir.DefaultShares)
	if err != nil {
		return err
	}
	log.Info("audit key ready", zap.Int("shares", len(shares)))

	// 2. Client side: mint a few deposits into the local tree.
	client, err := pool.New(pool.Config{
		Params:          cfg.Params(),
		AuditKey:        pk,
		ExpiryThreshold: cfg.ExpiryThreshold,
	}, log)
	if err != nil {
		return err
	}
	var last *pool.Deposit
	for _, amount := range []uint64{1_000, 2_500, 40} {
		if last, err = client.Deposit(amount); err != nil {
			return err
		}
	}

	// 3. Withdraw assignment and its public witness blob.
	var recipient [32]byte
	if _, err := rand.Read(recipient[:]); err != nil {
		return errors.Wrap(err, "sample recipient")
	}
	withdrawIn, err := client.WithdrawInputs(last, recipient)
	if err != nil {
		return err
	}
	blob, err := prover.BuildWithdrawWitnessBlob(&prover.WithdrawWitness{
		Root:         withdrawIn.Root,
		Nullifier:    withdrawIn.Nullifier,
		Recipient:    withdrawIn.Recipient,
		Amount:       withdrawIn.Amount,
		WaCommitment: withdrawIn.WaCommitment,
	})
	if err != nil {
		return err
	}
	log.Info("withdraw assignment ready",
		zap.Uint32("index", withdrawIn.Index),
		zap.String("nullifier", field.ToHex(withdrawIn.Nullifier)),
		zap.Int("public_witness_bytes", len(blob)))

	// 4. Audit assignment for the same deposit.
	auditIn, err := client.AuditInputs(last)
	if err != nil {
		return err
	}
	log.Info("audit assignment ready",
		zap.String("ct_commitment", field.ToHex(auditIn.CtCommitment)))

	// 5. Threshold decryption with shares 1 and 3, verified against the
	// key commitment.
	coeffs, err := shamir.Reconstruct([]shamir.KeyShare{shares[0], shares[2]})
	if err != nil {
		return err
	}
	skRec, err := scheme.PrivateKeyFromElements(coeffs)
	if err != nil {
		return err
	}
	ownerX, ownerY, err := scheme.Decrypt(skRec, last.Ciphertext)
	if err != nil {
		return err
	}
	eng, err := poseidon.New()
	if err != nil {
		return err
	}
	if err := pool.VerifyAuditDecryption(eng, last.WaCommitment, ownerX, ownerY); err != nil {
		return err
	}
	log.Info("audit decryption verified",
		zap.String("owner_x", field.ToHex(ownerX)),
		zap.String("owner_y", field.ToHex(ownerY)))
	return nil
}
