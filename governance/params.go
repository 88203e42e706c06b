package governance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/photon-ccm/photon/types"
)

/*
Params are the decoded parameters of a governance operation. Every
operation targets a single protocol of the registry.
*/
type Params interface {
	Protocol() types.ProtocolID
	Encode() ([]byte, error)
}

type (
	// AddAllowedProtocolParams is ABI encoded as (bytes32, uint256, address[]).
	AddAllowedProtocolParams struct {
		ProtocolID          types.ProtocolID
		ConsensusTargetRate uint64
		Transmitters        []types.EthAddress
	}

	/*
		AddressParams are parameters of the protocol address, proposer and
		executor operations, ABI encoded as (bytes32, bytes32).
	*/
	AddressParams struct {
		ProtocolID types.ProtocolID
		Address    types.Address
	}

	// TransmittersParams is ABI encoded as (bytes32, address[]).
	TransmittersParams struct {
		ProtocolID   types.ProtocolID
		Transmitters []types.EthAddress
	}

	// UpdateTransmittersParams is ABI encoded as (bytes32, address[], address[]).
	UpdateTransmittersParams struct {
		ProtocolID types.ProtocolID
		ToAdd      []types.EthAddress
		ToRemove   []types.EthAddress
	}

	// RateParams is ABI encoded as (bytes32, uint256).
	RateParams struct {
		ProtocolID          types.ProtocolID
		ConsensusTargetRate uint64
	}
)

var (
	typeBytes32   = mustType("bytes32")
	typeUint256   = mustType("uint256")
	typeAddresses = mustType("address[]")

	argsAddAllowedProtocol = abi.Arguments{{Name: "protocolId", Type: typeBytes32}, {Name: "consensusTargetRate", Type: typeUint256}, {Name: "transmitters", Type: typeAddresses}}
	argsAddress            = abi.Arguments{{Name: "protocolId", Type: typeBytes32}, {Name: "address", Type: typeBytes32}}
	argsTransmitters       = abi.Arguments{{Name: "protocolId", Type: typeBytes32}, {Name: "transmitters", Type: typeAddresses}}
	argsUpdateTransmitters = abi.Arguments{{Name: "protocolId", Type: typeBytes32}, {Name: "toAdd", Type: typeAddresses}, {Name: "toRemove", Type: typeAddresses}}
	argsRate               = abi.Arguments{{Name: "protocolId", Type: typeBytes32}, {Name: "consensusTargetRate", Type: typeUint256}}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Errorf("creating ABI type %q: %w", t, err))
	}
	return typ
}

func (p *AddAllowedProtocolParams) Protocol() types.ProtocolID { return p.ProtocolID }

func (p *AddAllowedProtocolParams) Encode() ([]byte, error) {
	return pack(argsAddAllowedProtocol, [32]byte(p.ProtocolID), new(big.Int).SetUint64(p.ConsensusTargetRate), toCommon(p.Transmitters))
}

func (p *AddressParams) Protocol() types.ProtocolID { return p.ProtocolID }

func (p *AddressParams) Encode() ([]byte, error) {
	return pack(argsAddress, [32]byte(p.ProtocolID), [32]byte(p.Address))
}

func (p *TransmittersParams) Protocol() types.ProtocolID { return p.ProtocolID }

func (p *TransmittersParams) Encode() ([]byte, error) {
	return pack(argsTransmitters, [32]byte(p.ProtocolID), toCommon(p.Transmitters))
}

func (p *UpdateTransmittersParams) Protocol() types.ProtocolID { return p.ProtocolID }

func (p *UpdateTransmittersParams) Encode() ([]byte, error) {
	return pack(argsUpdateTransmitters, [32]byte(p.ProtocolID), toCommon(p.ToAdd), toCommon(p.ToRemove))
}

func (p *RateParams) Protocol() types.ProtocolID { return p.ProtocolID }

func (p *RateParams) Encode() ([]byte, error) {
	return pack(argsRate, [32]byte(p.ProtocolID), new(big.Int).SetUint64(p.ConsensusTargetRate))
}

func decodeAddAllowedProtocol(data []byte) (*AddAllowedProtocolParams, error) {
	v, err := unpack(argsAddAllowedProtocol, data)
	if err != nil {
		return nil, err
	}
	rate, err := toRate(v[1])
	if err != nil {
		return nil, err
	}
	return &AddAllowedProtocolParams{
		ProtocolID:          v[0].([32]byte),
		ConsensusTargetRate: rate,
		Transmitters:        v[2].([]common.Address),
	}, nil
}

func decodeAddress(data []byte) (*AddressParams, error) {
	v, err := unpack(argsAddress, data)
	if err != nil {
		return nil, err
	}
	return &AddressParams{ProtocolID: v[0].([32]byte), Address: v[1].([32]byte)}, nil
}

func decodeTransmitters(data []byte) (*TransmittersParams, error) {
	v, err := unpack(argsTransmitters, data)
	if err != nil {
		return nil, err
	}
	return &TransmittersParams{ProtocolID: v[0].([32]byte), Transmitters: v[1].([]common.Address)}, nil
}

func decodeUpdateTransmitters(data []byte) (*UpdateTransmittersParams, error) {
	v, err := unpack(argsUpdateTransmitters, data)
	if err != nil {
		return nil, err
	}
	return &UpdateTransmittersParams{
		ProtocolID: v[0].([32]byte),
		ToAdd:      v[1].([]common.Address),
		ToRemove:   v[2].([]common.Address),
	}, nil
}

func decodeRate(data []byte) (*RateParams, error) {
	v, err := unpack(argsRate, data)
	if err != nil {
		return nil, err
	}
	rate, err := toRate(v[1])
	if err != nil {
		return nil, err
	}
	return &RateParams{ProtocolID: v[0].([32]byte), ConsensusTargetRate: rate}, nil
}

func pack(args abi.Arguments, values ...any) ([]byte, error) {
	b, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("ABI encoding governance params: %w", err)
	}
	return b, nil
}

func unpack(args abi.Arguments, data []byte) ([]any, error) {
	v, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding params: %w", types.ErrInvalidGovMsg, err)
	}
	if len(v) != len(args) {
		return nil, fmt.Errorf("%w: expected %d params, got %d", types.ErrInvalidGovMsg, len(args), len(v))
	}
	return v, nil
}

func toRate(v any) (uint64, error) {
	b, ok := v.(*big.Int)
	if !ok || !b.IsUint64() {
		return 0, fmt.Errorf("%w: consensus target rate %v out of range", types.ErrInvalidGovMsg, v)
	}
	return b.Uint64(), nil
}

// toCommon makes sure nil list is encoded as empty array.
func toCommon(addrs []types.EthAddress) []common.Address {
	if addrs == nil {
		return []common.Address{}
	}
	return addrs
}
