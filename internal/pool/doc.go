// Package pool orchestrates the client side of the shielded value pool.
//
// Overview:
//   - Deposits mint notes: a fresh embedded-curve identity, a Poseidon
//     commitment over (ownerX, ownerY, amount, randomness), and a leaf in the
//     local incremental Merkle tree mirroring the on-chain one
//   - Every deposit is encrypted to the auditor's RLWE key so a threshold of
//     key-share holders can recover the owner point later
//   - Withdraw and audit proof assignments are assembled here and handed to
//     the external proving service
//
// Security Model:
//   - Circom-compatible Poseidon for commitments, nullifiers and tree nodes
//   - Identity secrets are 128-bit scalars on the BN254 embedded Edwards curve
//   - Audit ciphertexts follow an RLWE scheme over Z_q[x]/(x^1024 + 1) with
//     quotient witnesses so encryption correctness is provable in-circuit
//   - All randomness comes from crypto/rand (identities, note randomness) or
//     a lattigo PRNG (RLWE sampling)
//   - Nullifiers bind the note secret to its leaf index; the chain enforces
//     single spend
//
// Usage:
//   - Build a Client with New, passing the auditor's public key
//   - Deposit mints and registers a note; WithdrawInputs / AuditInputs
//     produce prover assignments for it
//   - Audit encryption failures are non-fatal: the deposit stays usable and
//     RetryAudit attempts encryption again
package pool
