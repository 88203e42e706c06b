/*
Package registry implements the mutations of the protocol registry and the
global config.

All the functions are pure, they never modify their input but return
modified copy instead. On error the returned value is nil, so a failing
mutation can't leave the registry partially changed.
*/
package registry

import (
	"fmt"
	"slices"

	"github.com/photon-ccm/photon/types"
)

// InitParams are the parameters of the one-time endpoint initialization.
type InitParams struct {
	Admin               types.Address
	SourceChainID       types.ChainID
	MasterContract      types.Bytes32
	ConsensusTargetRate uint64
	Transmitters        []types.EthAddress
	Executors           []types.Address
}

/*
Initialize creates the global config and the governance protocol entry.
"cfg" is the currently stored config, initialization fails when it is
already set.
*/
func Initialize(cfg *types.GlobalConfig, p InitParams) (*types.GlobalConfig, *types.ProtocolInfo, error) {
	if cfg != nil {
		return nil, nil, types.ErrAlreadyInitialized
	}
	if p.Admin.IsZero() {
		return nil, nil, fmt.Errorf("%w: admin address is zero", types.ErrInvalidAddress)
	}
	if len(p.Transmitters) == 0 {
		return nil, nil, fmt.Errorf("%w: governance protocol requires transmitters", types.ErrNoTransmittersAllowed)
	}
	if len(p.Executors) == 0 {
		return nil, nil, fmt.Errorf("%w: governance protocol requires executors", types.ErrNoExecutorsAllowed)
	}
	gov, err := RegisterProtocol(nil, p.ConsensusTargetRate, p.Transmitters)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range p.Executors {
		if gov, err = AddExecutor(gov, e); err != nil {
			return nil, nil, err
		}
	}
	return &types.GlobalConfig{
		Admin:          p.Admin,
		SourceChainID:  p.SourceChainID,
		MasterContract: p.MasterContract,
	}, gov, nil
}

/*
SetAdmin replaces the admin of the endpoint. Only the deployer of the
endpoint is allowed to do that.
*/
func SetAdmin(cfg *types.GlobalConfig, caller, deployer, admin types.Address) (*types.GlobalConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: endpoint is not initialized", types.ErrProtocolNotInit)
	}
	if caller != deployer {
		return nil, types.ErrIsNotAdmin
	}
	if admin.IsZero() {
		return nil, fmt.Errorf("%w: admin address is zero", types.ErrInvalidAddress)
	}
	c := *cfg
	c.Admin = admin
	return &c, nil
}

// IncrementNonce returns copy of the config with the proposal nonce incremented.
func IncrementNonce(cfg *types.GlobalConfig) *types.GlobalConfig {
	c := *cfg
	c.Nonce++
	return &c
}

func ValidateRate(rate uint64) error {
	if rate < types.MinConsensusTargetRate {
		return fmt.Errorf("%w: %d is below %d", types.ErrConsensusTargetRateTooLow, rate, types.MinConsensusTargetRate)
	}
	if rate > types.MaxConsensusTargetRate {
		return fmt.Errorf("%w: %d is above %d", types.ErrConsensusTargetRateTooHigh, rate, types.MaxConsensusTargetRate)
	}
	return nil
}

/*
RegisterProtocol creates registry entry for a new protocol. "existing" is
the currently stored entry of the protocol, nil if there is none.
*/
func RegisterProtocol(existing *types.ProtocolInfo, rate uint64, transmitters []types.EthAddress) (*types.ProtocolInfo, error) {
	if existing != nil && existing.IsInit {
		return nil, types.ErrProtocolAlreadyInit
	}
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}
	pi := &types.ProtocolInfo{
		IsInit:              true,
		ConsensusTargetRate: rate,
		Transmitters:        []types.EthAddress{},
		Executors:           []types.Address{},
		Proposers:           []types.Address{},
	}
	return AddTransmitters(pi, transmitters)
}

func SetConsensusTargetRate(pi *types.ProtocolInfo, rate uint64) (*types.ProtocolInfo, error) {
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}
	c := pi.Clone()
	c.ConsensusTargetRate = rate
	return c, nil
}

func SetProtocolAddress(pi *types.ProtocolInfo, addr types.Address) (*types.ProtocolInfo, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: protocol address is zero", types.ErrInvalidAddress)
	}
	c := pi.Clone()
	c.ProtocolAddress = addr
	return c, nil
}

// ClearProtocolAddress removes the protocol address, "addr" must be the current address.
func ClearProtocolAddress(pi *types.ProtocolInfo, addr types.Address) (*types.ProtocolInfo, error) {
	if pi.ProtocolAddress.IsZero() {
		return nil, types.ErrProtocolAddressNotProvided
	}
	if pi.ProtocolAddress != addr {
		return nil, fmt.Errorf("%w: protocol address is %s, not %s", types.ErrProtocolAddressMismatch, pi.ProtocolAddress, addr)
	}
	c := pi.Clone()
	c.ProtocolAddress = types.Address{}
	return c, nil
}

func AddTransmitters(pi *types.ProtocolInfo, addrs []types.EthAddress) (*types.ProtocolInfo, error) {
	c := pi.Clone()
	var err error
	for _, a := range addrs {
		if c.Transmitters, err = addMember(c.Transmitters, a, types.MaxTransmitters, types.ErrInvalidAddress, types.ErrTransmitterIsAlreadyAllowed, types.ErrMaxTransmittersExceeded); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func RemoveTransmitters(pi *types.ProtocolInfo, addrs []types.EthAddress) (*types.ProtocolInfo, error) {
	c := pi.Clone()
	var err error
	for _, a := range addrs {
		if c.Transmitters, err = removeMember(c.Transmitters, a, types.ErrTransmitterIsNotAllowed); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// UpdateTransmitters removes "toRemove" and then adds "toAdd" transmitters.
func UpdateTransmitters(pi *types.ProtocolInfo, toAdd, toRemove []types.EthAddress) (*types.ProtocolInfo, error) {
	c, err := RemoveTransmitters(pi, toRemove)
	if err != nil {
		return nil, err
	}
	return AddTransmitters(c, toAdd)
}

func AddExecutor(pi *types.ProtocolInfo, addr types.Address) (*types.ProtocolInfo, error) {
	c := pi.Clone()
	var err error
	if c.Executors, err = addMember(c.Executors, addr, types.MaxExecutors, types.ErrInvalidExecutorAddress, types.ErrExecutorIsAlreadyAllowed, types.ErrMaxExecutorsExceeded); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveExecutor removes executor of the protocol "id", the governance protocol must keep at least one executor.
func RemoveExecutor(id types.ProtocolID, pi *types.ProtocolInfo, addr types.Address) (*types.ProtocolInfo, error) {
	c := pi.Clone()
	var err error
	if c.Executors, err = removeMember(c.Executors, addr, types.ErrExecutorIsNotAllowed); err != nil {
		return nil, err
	}
	if id.IsGovernance() && len(c.Executors) == 0 {
		return nil, types.ErrTryingToRemoveLastGovExecutor
	}
	return c, nil
}

func AddProposer(pi *types.ProtocolInfo, addr types.Address) (*types.ProtocolInfo, error) {
	c := pi.Clone()
	var err error
	if c.Proposers, err = addMember(c.Proposers, addr, types.MaxProposers, types.ErrInvalidProposerAddress, types.ErrProposerIsAlreadyAllowed, types.ErrMaxProposersExceeded); err != nil {
		return nil, err
	}
	return c, nil
}

func RemoveProposer(pi *types.ProtocolInfo, addr types.Address) (*types.ProtocolInfo, error) {
	c := pi.Clone()
	var err error
	if c.Proposers, err = removeMember(c.Proposers, addr, types.ErrProposerIsNotAllowed); err != nil {
		return nil, err
	}
	return c, nil
}

func addMember[T comparable](set []T, addr T, capacity int, errZero, errDup, errFull error) ([]T, error) {
	var zero T
	if addr == zero {
		return nil, fmt.Errorf("%w: zero address", errZero)
	}
	if slices.Contains(set, addr) {
		return nil, fmt.Errorf("%w: %v", errDup, addr)
	}
	if len(set) >= capacity {
		return nil, fmt.Errorf("%w: max %d", errFull, capacity)
	}
	return append(set, addr), nil
}

func removeMember[T comparable](set []T, addr T, errMissing error) ([]T, error) {
	idx := slices.Index(set, addr)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %v", errMissing, addr)
	}
	return slices.Delete(set, idx, idx+1), nil
}
