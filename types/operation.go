package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

/*
OperationData is the operation observed on the source chain. The canonical
hash of the operation, the one transmitters sign, is keccak256 of the ABI
encoding of the fields in declaration order.
*/
type OperationData struct {
	_                struct{}   `cbor:",toarray"`
	ProtocolID       ProtocolID `json:"protocolId"`
	Meta             Bytes32    `json:"meta"`
	SrcChainID       ChainID    `json:"srcChainId"`
	SrcBlockNumber   uint64     `json:"srcBlockNumber"`
	SrcOpTxID        Bytes      `json:"srcOpTxId"`
	Nonce            uint64     `json:"nonce"`
	DestChainID      ChainID    `json:"destChainId"`
	ProtocolAddr     Address    `json:"protocolAddr"`
	FunctionSelector Bytes      `json:"functionSelector"`
	Params           Bytes      `json:"params"`
	Reserved         Bytes      `json:"reserved"`
}

var opDataArguments = abi.Arguments{
	{Name: "protocolId", Type: mustABIType("bytes")},
	{Name: "meta", Type: mustABIType("bytes32")},
	{Name: "srcChainId", Type: mustABIType("uint128")},
	{Name: "srcBlockNumber", Type: mustABIType("uint64")},
	{Name: "srcOpTxId", Type: mustABIType("bytes")},
	{Name: "nonce", Type: mustABIType("uint64")},
	{Name: "destChainId", Type: mustABIType("uint128")},
	{Name: "protocolAddr", Type: mustABIType("bytes32")},
	{Name: "functionSelector", Type: mustABIType("bytes")},
	{Name: "params", Type: mustABIType("bytes")},
	{Name: "reserved", Type: mustABIType("bytes")},
}

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Errorf("creating ABI type %q: %w", t, err))
	}
	return typ
}

// Encode returns ABI encoding of the operation.
func (op *OperationData) Encode() ([]byte, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: operation data is nil", ErrInvalidOpData)
	}
	b, err := opDataArguments.Pack(
		op.ProtocolID[:],
		[32]byte(op.Meta),
		op.SrcChainID.Big(),
		op.SrcBlockNumber,
		nonNil(op.SrcOpTxID),
		op.Nonce,
		op.DestChainID.Big(),
		[32]byte(op.ProtocolAddr),
		nonNil(op.FunctionSelector),
		nonNil(op.Params),
		nonNil(op.Reserved),
	)
	if err != nil {
		return nil, fmt.Errorf("ABI encoding operation data: %w", err)
	}
	return b, nil
}

// Hash returns the canonical operation hash.
func (op *OperationData) Hash() (Hash, error) {
	b, err := op.Encode()
	if err != nil {
		return Hash{}, err
	}
	return crypto.Keccak256Hash(b), nil
}

// Selector returns decoded function selector of the operation.
func (op *OperationData) Selector() (FunctionSelector, error) {
	return ParseFunctionSelector(op.FunctionSelector)
}

// DecodeOperationData is the inverse of OperationData.Encode.
func DecodeOperationData(data []byte) (*OperationData, error) {
	values, err := opDataArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOpData, err)
	}
	if len(values) != len(opDataArguments) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidOpData, len(opDataArguments), len(values))
	}

	op := &OperationData{}
	if op.ProtocolID, err = BytesToProtocolID(values[0].([]byte)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOpData, err)
	}
	op.Meta = values[1].([32]byte)
	if op.SrcChainID, err = ChainIDFromBig(values[2].(*big.Int)); err != nil {
		return nil, fmt.Errorf("%w: source chain: %w", ErrInvalidOpData, err)
	}
	op.SrcBlockNumber = values[3].(uint64)
	op.SrcOpTxID = values[4].([]byte)
	op.Nonce = values[5].(uint64)
	if op.DestChainID, err = ChainIDFromBig(values[6].(*big.Int)); err != nil {
		return nil, fmt.Errorf("%w: destination chain: %w", ErrInvalidOpData, err)
	}
	op.ProtocolAddr = values[7].([32]byte)
	op.FunctionSelector = values[8].([]byte)
	op.Params = values[9].([]byte)
	op.Reserved = values[10].([]byte)
	return op, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
