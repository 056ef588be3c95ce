// Package errs declares the error kinds shared across the shieldpool core.
//
// Packages wrap these sentinels with context (github.com/pkg/errors) so that
// callers can classify failures with errors.Is regardless of which layer
// produced them.
package errs

import "errors"

var (
	// ErrInitialization reports a failed cryptographic self-check during
	// engine construction. Callers should abort startup.
	ErrInitialization = errors.New("initialization failure")

	// ErrMalformedInput reports input rejected at a parsing or validation
	// boundary: wrong-length blobs, out-of-range field encodings,
	// out-of-range indexes.
	ErrMalformedInput = errors.New("malformed input")

	// ErrEncryptionFailure reports that audit-ciphertext generation failed.
	// The enclosing deposit remains valid; encryption may be retried.
	ErrEncryptionFailure = errors.New("audit encryption failure")

	// ErrVerificationMismatch reports that a decrypted owner point does not
	// match the expected wallet-address commitment.
	ErrVerificationMismatch = errors.New("verification mismatch")

	// ErrExpiredRoot reports that a proof targets a root that has been
	// evicted from the on-chain ring (or never existed).
	ErrExpiredRoot = errors.New("expired root")
)
