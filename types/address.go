package types

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type (
	// EthAddress is a transmitter identity, the low 20 bytes of keccak256 of
	// uncompressed secp256k1 public key.
	EthAddress = common.Address

	// Hash is 32 byte keccak256 digest.
	Hash = common.Hash

	Bytes = hexutil.Bytes

	// Address is an identity on the destination chain (executor, proposer,
	// admin, protocol address). For callers it is the ed25519 public key.
	Address [32]byte

	// Bytes32 is an opaque fixed size value (op metadata, signature scalars).
	Bytes32 [32]byte

	// ProtocolID identifies a protocol registered with the endpoint. Human
	// readable IDs are right padded with zero bytes.
	ProtocolID [32]byte
)

var (
	zeroAddress Address

	// GovProtocolID is the reserved id of the endpoint's own governance protocol.
	GovProtocolID = MustProtocolID("photon-gov")
)

func (a Address) IsZero() bool { return a == zeroAddress }

func (a Address) Bytes() []byte { return a[:] }

func (a Address) String() string { return hexutil.Encode(a[:]) }

func (a Address) MarshalText() ([]byte, error) {
	return hexutil.Bytes(a[:]).MarshalText()
}

func (a *Address) UnmarshalText(input []byte) error {
	return unmarshalFixed("Address", input, a[:])
}

// BytesToAddress returns Address with value b, fails if len(b) != 32.
func BytesToAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != len(a) {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (b Bytes32) String() string { return hexutil.Encode(b[:]) }

func (b Bytes32) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b[:]).MarshalText()
}

func (b *Bytes32) UnmarshalText(input []byte) error {
	return unmarshalFixed("Bytes32", input, b[:])
}

/*
NewProtocolID creates ID from human readable name, name must not be longer
than 32 bytes.
*/
func NewProtocolID(name string) (ProtocolID, error) {
	var id ProtocolID
	if len(name) > len(id) {
		return id, fmt.Errorf("protocol id %q is longer than %d bytes", name, len(id))
	}
	copy(id[:], name)
	return id, nil
}

func MustProtocolID(name string) ProtocolID {
	id, err := NewProtocolID(name)
	if err != nil {
		panic(err)
	}
	return id
}

// BytesToProtocolID returns ProtocolID with value b, fails if len(b) != 32.
func BytesToProtocolID(b []byte) (ProtocolID, error) {
	var id ProtocolID
	if len(b) != len(id) {
		return id, fmt.Errorf("protocol id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id ProtocolID) Bytes() []byte { return id[:] }

func (id ProtocolID) IsGovernance() bool { return id == GovProtocolID }

/*
String returns the name of the ID when it consists of printable characters
followed by zero padding, otherwise hex encoding of the ID.
*/
func (id ProtocolID) String() string {
	name := bytes.TrimRight(id[:], "\x00")
	if len(name) == 0 {
		return hexutil.Encode(id[:])
	}
	for _, c := range name {
		if c < 0x20 || c > 0x7e {
			return hexutil.Encode(id[:])
		}
	}
	return string(name)
}

func (id ProtocolID) MarshalText() ([]byte, error) {
	return hexutil.Bytes(id[:]).MarshalText()
}

// UnmarshalText accepts both hex encoded ID and a name.
func (id *ProtocolID) UnmarshalText(input []byte) error {
	if strings.HasPrefix(string(input), "0x") {
		return unmarshalFixed("ProtocolID", input, id[:])
	}
	v, err := NewProtocolID(string(input))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func unmarshalFixed(typeName string, input, out []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalText(input); err != nil {
		return fmt.Errorf("decoding %s: %w", typeName, err)
	}
	if len(b) != len(out) {
		return fmt.Errorf("decoding %s: expected %d bytes, got %d", typeName, len(out), len(b))
	}
	copy(out, b)
	return nil
}
