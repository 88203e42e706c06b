package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtocolID(t *testing.T) {
	id, err := NewProtocolID("photon-gov")
	require.NoError(t, err)
	require.Equal(t, GovProtocolID, id)
	require.True(t, id.IsGovernance())
	require.Equal(t, "photon-gov", id.String())
	require.Equal(t, byte(0), id[31])

	_, err = NewProtocolID("this-protocol-name-is-way-too-long-to-fit")
	require.ErrorContains(t, err, "longer than 32 bytes")
	require.Panics(t, func() { MustProtocolID("this-protocol-name-is-way-too-long-to-fit") })

	// binary ID is shown as hex
	bin := ProtocolID{0xFF, 0x01}
	require.Equal(t, "0xff01000000000000000000000000000000000000000000000000000000000000", bin.String())

	var back ProtocolID
	require.NoError(t, back.UnmarshalText([]byte(bin.String())))
	require.Equal(t, bin, back)
	require.NoError(t, back.UnmarshalText([]byte("photon-gov")))
	require.Equal(t, GovProtocolID, back)
	require.Error(t, back.UnmarshalText([]byte("0x0102")))

	_, err = BytesToProtocolID([]byte{1})
	require.Error(t, err)
}

func TestAddress(t *testing.T) {
	var a Address
	require.True(t, a.IsZero())
	a[31] = 1
	require.False(t, a.IsZero())

	b, err := a.MarshalText()
	require.NoError(t, err)
	var back Address
	require.NoError(t, back.UnmarshalText(b))
	require.Equal(t, a, back)
	require.Error(t, back.UnmarshalText([]byte("0x01")))
	require.Error(t, back.UnmarshalText([]byte("not hex")))

	_, err = BytesToAddress([]byte{1, 2})
	require.ErrorIs(t, err, ErrInvalidAddress)
	c, err := BytesToAddress(a[:])
	require.NoError(t, err)
	require.Equal(t, a, c)
}

func TestChainID(t *testing.T) {
	id := NewChainID(33133)
	require.Equal(t, "33133", id.String())
	require.EqualValues(t, 33133, id.Big().Int64())

	parsed, err := ParseChainID("0x816d")
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	maxID := "340282366920938463463374607431768211455" // 2^128-1
	parsed, err = ParseChainID(maxID)
	require.NoError(t, err)
	require.Equal(t, maxID, parsed.String())

	_, err = ParseChainID("340282366920938463463374607431768211456")
	require.ErrorContains(t, err, "does not fit into 128 bits")
	_, err = ParseChainID("abc")
	require.Error(t, err)

	fromBig, err := ChainIDFromBig(big.NewInt(33133))
	require.NoError(t, err)
	require.Equal(t, id, fromBig)
	_, err = ChainIDFromBig(big.NewInt(-1))
	require.Error(t, err)
	_, err = ChainIDFromBig(new(big.Int).Lsh(big.NewInt(1), 128))
	require.Error(t, err)

	var txt ChainID
	require.NoError(t, txt.UnmarshalText([]byte("42")))
	require.Equal(t, NewChainID(42), txt)
}

func TestErrors(t *testing.T) {
	seen := map[uint32]string{}
	for _, e := range allErrors {
		require.NotContains(t, seen, e.Code, "duplicate code %d", e.Code)
		seen[e.Code] = e.Name
		require.Equal(t, e, ErrorByCode(e.Code))
	}
	require.Nil(t, ErrorByCode(1))

	err := errors.Join(errors.New("other"), ErrSelectorTooBig)
	e, ok := CodeOf(err)
	require.True(t, ok)
	require.EqualValues(t, 6029, e.Code)
	require.Equal(t, "SelectorTooBig (6029)", e.Error())

	_, ok = CodeOf(errors.New("plain"))
	require.False(t, ok)
}

func TestSignatureBytes(t *testing.T) {
	raw := make([]byte, 65)
	raw[0], raw[32], raw[64] = 1, 2, 28
	sig, err := SignatureFromBytes(raw)
	require.NoError(t, err)
	require.EqualValues(t, 28, sig.V)
	b := sig.Bytes()
	require.EqualValues(t, 1, b[64])
	require.Equal(t, raw[:64], b[:64])

	_, err = SignatureFromBytes(raw[:64])
	require.ErrorIs(t, err, ErrInvalidSignature)
}
