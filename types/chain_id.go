package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// ChainID is 128 bit chain identifier stored big-endian.
type ChainID [16]byte

func NewChainID(v uint64) ChainID {
	return chainIDFromUint256(uint256.NewInt(v))
}

/*
ParseChainID parses decimal or "0x" prefixed hex string, the value must
fit into 128 bits.
*/
func ParseChainID(s string) (ChainID, error) {
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return ChainID{}, fmt.Errorf("parsing chain id %q: %w", s, err)
	}
	if v.BitLen() > 128 {
		return ChainID{}, fmt.Errorf("chain id %q does not fit into 128 bits", s)
	}
	return chainIDFromUint256(v), nil
}

// ChainIDFromBig converts ABI decoded integer, fails when it is negative or wider than 128 bits.
func ChainIDFromBig(b *big.Int) (ChainID, error) {
	if b == nil || b.Sign() < 0 || b.BitLen() > 128 {
		return ChainID{}, fmt.Errorf("invalid chain id value %v", b)
	}
	v, _ := uint256.FromBig(b)
	return chainIDFromUint256(v), nil
}

func chainIDFromUint256(v *uint256.Int) ChainID {
	var id ChainID
	b := v.Bytes32()
	copy(id[:], b[16:])
	return id
}

func (c ChainID) uint256() *uint256.Int {
	return new(uint256.Int).SetBytes16(c[:])
}

func (c ChainID) Big() *big.Int { return c.uint256().ToBig() }

func (c ChainID) String() string { return c.uint256().Dec() }

func (c ChainID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ChainID) UnmarshalText(input []byte) error {
	v, err := ParseChainID(string(input))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
