package types

import (
	"slices"
)

const (
	RateDecimals uint64 = 10000

	MinConsensusTargetRate uint64 = 5000
	MaxConsensusTargetRate uint64 = RateDecimals

	MaxTransmitters = 20
	MaxExecutors    = 20
	MaxProposers    = 20
)

// ProtocolInfo is the registry entry of a protocol.
type ProtocolInfo struct {
	_                   struct{}     `cbor:",toarray"`
	IsInit              bool         `json:"isInit"`
	ConsensusTargetRate uint64       `json:"consensusTargetRate"`
	ProtocolAddress     Address      `json:"protocolAddress"`
	Transmitters        []EthAddress `json:"transmitters"`
	Executors           []Address    `json:"executors"`
	Proposers           []Address    `json:"proposers"`
}

func (pi *ProtocolInfo) IsTransmitter(addr EthAddress) bool {
	return slices.Contains(pi.Transmitters, addr)
}

func (pi *ProtocolInfo) IsExecutor(addr Address) bool {
	return slices.Contains(pi.Executors, addr)
}

func (pi *ProtocolInfo) IsProposer(addr Address) bool {
	return slices.Contains(pi.Proposers, addr)
}

// Clone returns deep copy of the protocol info.
func (pi *ProtocolInfo) Clone() *ProtocolInfo {
	if pi == nil {
		return nil
	}
	return &ProtocolInfo{
		IsInit:              pi.IsInit,
		ConsensusTargetRate: pi.ConsensusTargetRate,
		ProtocolAddress:     pi.ProtocolAddress,
		Transmitters:        slices.Clone(pi.Transmitters),
		Executors:           slices.Clone(pi.Executors),
		Proposers:           slices.Clone(pi.Proposers),
	}
}

/*
ConsensusReached returns true when signatures of the current transmitters
among "signers" satisfy the target rate:

	countCurrent * RateDecimals / len(Transmitters) >= ConsensusTargetRate

Integer (floor) division is used so the number of required signatures is
ceil(rate * transmitters / RateDecimals).
*/
func (pi *ProtocolInfo) ConsensusReached(signers []EthAddress) bool {
	if len(pi.Transmitters) == 0 {
		return false
	}
	var cnt uint64
	for _, s := range signers {
		if pi.IsTransmitter(s) {
			cnt++
		}
	}
	return cnt*RateDecimals/uint64(len(pi.Transmitters)) >= pi.ConsensusTargetRate
}

// GlobalConfig is the endpoint wide configuration.
type GlobalConfig struct {
	_              struct{} `cbor:",toarray"`
	Admin          Address  `json:"admin"`
	SourceChainID  ChainID  `json:"sourceChainId"`
	MasterContract Bytes32  `json:"masterContract"`
	// Nonce of the next outbound proposal.
	Nonce uint64 `json:"nonce"`
}
