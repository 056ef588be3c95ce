// shamir.go - Threshold sharing of the audit secret key.
//
// The audit key is split 2-of-3: every secret-key coefficient gets its own
// degree-1 polynomial over the BN254 scalar field, evaluated at x = 1, 2, 3.
// Any two shares reconstruct by Lagrange interpolation at zero; one share
// reveals nothing. This package works purely in the field - lifting the
// reconstructed coefficients back into the RLWE ring is the cipher's job.
package shamir

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
)

const (
	// DefaultThreshold is the number of shares a decryption needs.
	DefaultThreshold = 2
	// DefaultShares is the number of shares issued at key generation.
	DefaultShares = 3
)

// KeyShare is one holder's share: the evaluations of every per-coefficient
// polynomial at x = Index.
type KeyShare struct {
	Index     int
	Threshold int
	Shares    int
	Coeffs    []fr.Element
}

// Split shares the secret vector. Each output share carries one evaluation
// per secret coefficient; polynomial coefficients above degree zero are
// sampled fresh per secret coefficient.
func Split(secret []fr.Element, threshold, shares int) ([]KeyShare, error) {
	if threshold < 2 || shares < threshold {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "shamir: invalid scheme %d-of-%d", threshold, shares)
	}
	if len(secret) == 0 {
		return nil, errors.Wrap(errs.ErrMalformedInput, "shamir: empty secret")
	}

	out := make([]KeyShare, shares)
	for i := range out {
		out[i] = KeyShare{
			Index:     i + 1,
			Threshold: threshold,
			Shares:    shares,
			Coeffs:    make([]fr.Element, len(secret)),
		}
	}

	coeffs := make([]fr.Element, threshold-1)
	for c := range secret {
		for d := range coeffs {
			if _, err := coeffs[d].SetRandom(); err != nil {
				return nil, errors.Wrap(err, "shamir: sampling polynomial")
			}
		}
		for i := range out {
			// Horner evaluation of secret + a1*x + ... at x = i+1.
			var x, y fr.Element
			x.SetUint64(uint64(i + 1))
			for d := len(coeffs) - 1; d >= 0; d-- {
				y.Mul(&y, &x)
				y.Add(&y, &coeffs[d])
			}
			y.Mul(&y, &x)
			y.Add(&y, &secret[c])
			out[i].Coeffs[c] = y
		}
	}
	return out, nil
}

// Reconstruct interpolates the secret vector at x = 0 from at least a
// threshold of mutually consistent shares. Fewer than two shares, duplicate
// indexes or mismatched share shapes are rejected before any interpolation.
func Reconstruct(shares []KeyShare) ([]fr.Element, error) {
	if len(shares) < 2 {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "shamir: %d share(s) cannot reconstruct", len(shares))
	}
	threshold := shares[0].Threshold
	width := len(shares[0].Coeffs)
	seen := make(map[int]bool, len(shares))
	for _, s := range shares {
		if s.Index < 1 {
			return nil, errors.Wrapf(errs.ErrMalformedInput, "shamir: share index %d out of range", s.Index)
		}
		if seen[s.Index] {
			return nil, errors.Wrapf(errs.ErrMalformedInput, "shamir: duplicate share index %d", s.Index)
		}
		seen[s.Index] = true
		if s.Threshold != threshold || len(s.Coeffs) != width {
			return nil, errors.Wrap(errs.ErrMalformedInput, "shamir: shares disagree on scheme shape")
		}
	}
	if len(shares) < threshold {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "shamir: %d shares below threshold %d", len(shares), threshold)
	}

	// Lagrange basis at zero: L_i = prod_{j != i} x_j / (x_j - x_i).
	// The basis only depends on the index set, so compute it once and reuse
	// it across all secret coefficients.
	basis := make([]fr.Element, len(shares))
	for i := range shares {
		basis[i].SetOne()
		var xi fr.Element
		xi.SetUint64(uint64(shares[i].Index))
		for j := range shares {
			if j == i {
				continue
			}
			var xj, d fr.Element
			xj.SetUint64(uint64(shares[j].Index))
			d.Sub(&xj, &xi)
			d.Inverse(&d)
			d.Mul(&d, &xj)
			basis[i].Mul(&basis[i], &d)
		}
	}

	secret := make([]fr.Element, width)
	for c := 0; c < width; c++ {
		var acc, term fr.Element
		for i := range shares {
			term.Mul(&shares[i].Coeffs[c], &basis[i])
			acc.Add(&acc, &term)
		}
		secret[c] = acc
	}
	return secret, nil
}
