package field

import (
	"math/big"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/veilpay/shieldpool/internal/errs"
)

func TestBytesRoundTrip(t *testing.T) {
	e := FromUint64(123456789)
	b := ToBytes(e)

	back, err := FromBytes(b[:])
	require.NoError(t, err)
	require.True(t, e.Equal(&back), "byte round trip changed the element")
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 31, 33, 64} {
		_, err := FromBytes(make([]byte, n))
		require.ErrorIs(t, err, errs.ErrMalformedInput, "length %d must be rejected", n)
	}
}

func TestFromBytesRejectsNonCanonical(t *testing.T) {
	// The modulus itself is the smallest non-canonical value.
	mod := Modulus()
	var buf [Size]byte
	mod.FillBytes(buf[:])

	_, err := FromBytes(buf[:])
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	// 2^256 - 1 is far out of range.
	for i := range buf {
		buf[i] = 0xff
	}
	_, err = FromBytes(buf[:])
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestHexRoundTrip(t *testing.T) {
	e := FromUint64(0xdeadbeef)

	s := ToHex(e)
	require.Len(t, s, 2+2*Size)
	require.Equal(t, "0x", s[:2])

	back, err := FromHex(s)
	require.NoError(t, err)
	require.True(t, e.Equal(&back))

	// Short forms parse too: no prefix, odd digit count.
	short, err := FromHex("deadbeef")
	require.NoError(t, err)
	require.True(t, e.Equal(&short))

	odd, err := FromHex("0xf")
	require.NoError(t, err)
	fifteen := FromUint64(15)
	require.True(t, fifteen.Equal(&odd))
}

func TestFromHexRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "0x", "0xzz", "0x" + strings.Repeat("0", 65)} {
		_, err := FromHex(s)
		require.ErrorIs(t, err, errs.ErrMalformedInput, "input %q must be rejected", s)
	}
}

func TestFromBigEmbedsSigned(t *testing.T) {
	// -3 must land on p-3, the embedding used for signed noise coefficients.
	e := FromBig(big.NewInt(-3))

	var want fr.Element
	want.SetInt64(-3)
	require.True(t, want.Equal(&e))

	expected := new(big.Int).Sub(Modulus(), big.NewInt(3))
	require.Equal(t, expected, ToBig(e))
}
