// share_file.go - JSON share files.
//
// Shares travel as standalone JSON documents, one per holder. Field values
// are decimal strings: the y coordinates are full-width field elements and
// would not survive a float64 round trip as bare JSON numbers.
package shamir

import (
	"encoding/json"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
	"github.com/veilpay/shieldpool/internal/field"
)

type shareCoefficientJSON struct {
	X int    `json:"x"`
	Y string `json:"y"`
}

type shareFileJSON struct {
	ShareIndex   int                    `json:"share_index"`
	Threshold    int                    `json:"threshold"`
	NumShares    int                    `json:"num_shares"`
	Coefficients []shareCoefficientJSON `json:"coefficients"`
}

// EncodeShare serializes one share to its JSON file form.
func EncodeShare(s KeyShare) ([]byte, error) {
	if s.Index < 1 || s.Threshold < 2 || len(s.Coeffs) == 0 {
		return nil, errors.Wrap(errs.ErrMalformedInput, "shamir: share not well formed")
	}
	doc := shareFileJSON{
		ShareIndex:   s.Index,
		Threshold:    s.Threshold,
		NumShares:    s.Shares,
		Coefficients: make([]shareCoefficientJSON, len(s.Coeffs)),
	}
	for i := range s.Coeffs {
		doc.Coefficients[i] = shareCoefficientJSON{
			X: s.Index,
			Y: field.ToBig(s.Coeffs[i]).String(),
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeShare parses a share file, checking internal consistency: every
// coefficient must sit at the share's own x-coordinate and every y must be a
// canonical field value.
func DecodeShare(data []byte) (KeyShare, error) {
	var doc shareFileJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return KeyShare{}, errors.Wrap(errs.ErrMalformedInput, "shamir: share json: "+err.Error())
	}
	if doc.ShareIndex < 1 || doc.Threshold < 2 || doc.NumShares < doc.Threshold {
		return KeyShare{}, errors.Wrapf(errs.ErrMalformedInput, "shamir: share header %d/%d-of-%d", doc.ShareIndex, doc.Threshold, doc.NumShares)
	}
	if len(doc.Coefficients) == 0 {
		return KeyShare{}, errors.Wrap(errs.ErrMalformedInput, "shamir: share has no coefficients")
	}

	coeffs := make([]fr.Element, len(doc.Coefficients))
	modulus := field.Modulus()
	for i, c := range doc.Coefficients {
		if c.X != doc.ShareIndex {
			return KeyShare{}, errors.Wrapf(errs.ErrMalformedInput, "shamir: coefficient %d at x=%d, expected x=%d", i, c.X, doc.ShareIndex)
		}
		v, ok := new(big.Int).SetString(c.Y, 10)
		if !ok || v.Sign() < 0 || v.Cmp(modulus) >= 0 {
			return KeyShare{}, errors.Wrapf(errs.ErrMalformedInput, "shamir: coefficient %d is not a canonical field value", i)
		}
		coeffs[i] = field.FromBig(v)
	}
	return KeyShare{
		Index:     doc.ShareIndex,
		Threshold: doc.Threshold,
		Shares:    doc.NumShares,
		Coeffs:    coeffs,
	}, nil
}
