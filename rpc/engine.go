package rpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/photon-ccm/photon/endpoint"
	"github.com/photon-ccm/photon/events"
	"github.com/photon-ccm/photon/registry"
	"github.com/photon-ccm/photon/types"
)

// Engine is the endpoint the API serves.
type Engine interface {
	ChainID() types.ChainID
	Config() (*types.GlobalConfig, error)
	Protocol(id types.ProtocolID) (*types.ProtocolInfo, error)
	Protocols() ([]types.ProtocolID, error)
	Operation(hash types.Hash) (*types.OpInfo, error)
	Events(from uint64, limit int) ([]types.Event, error)
	Proposals(from uint64, limit int) ([]types.ProposeEvent, error)
	Subscribe() *events.Subscription

	Initialize(ctx context.Context, caller types.Address, params registry.InitParams) error
	SetAdmin(ctx context.Context, caller, admin types.Address) error
	LoadOperation(ctx context.Context, caller types.Address, opData *types.OperationData, expectedHash types.Hash) error
	SignOperation(ctx context.Context, caller types.Address, opHash types.Hash, sigs []types.TransmitterSignature) (bool, error)
	ExecuteOperation(ctx context.Context, caller types.Address, opHash types.Hash) error
	Propose(ctx context.Context, caller types.Address, p endpoint.Proposal) (*types.ProposeEvent, error)
}

var _ Engine = (*endpoint.Endpoint)(nil)

// Request bodies of the mutating REST API calls.
type (
	InitializeRequest struct {
		Admin               types.Address      `json:"admin"`
		SourceChainID       types.ChainID      `json:"sourceChainId"`
		MasterContract      types.Bytes32      `json:"masterContract"`
		ConsensusTargetRate uint64             `json:"consensusTargetRate"`
		Transmitters        []types.EthAddress `json:"transmitters"`
		Executors           []types.Address    `json:"executors"`
	}

	SetAdminRequest struct {
		Admin types.Address `json:"admin"`
	}

	LoadOperationRequest struct {
		OpData *types.OperationData `json:"opData"`
		OpHash types.Hash           `json:"opHash"`
	}

	SignOperationRequest struct {
		Signatures []types.TransmitterSignature `json:"signatures"`
	}

	SignOperationResponse struct {
		ConsensusReached bool `json:"consensusReached"`
	}

	ProposeRequest struct {
		ProtocolID       types.ProtocolID `json:"protocolId"`
		DstChainID       types.ChainID    `json:"dstChainId"`
		ProtocolAddress  types.Bytes      `json:"protocolAddress"`
		FunctionSelector types.Bytes      `json:"functionSelector"`
		Params           types.Bytes      `json:"params"`
	}
)

func (r *InitializeRequest) params() registry.InitParams {
	return registry.InitParams{
		Admin:               r.Admin,
		SourceChainID:       r.SourceChainID,
		MasterContract:      r.MasterContract,
		ConsensusTargetRate: r.ConsensusTargetRate,
		Transmitters:        r.Transmitters,
		Executors:           r.Executors,
	}
}

func (r *ProposeRequest) proposal() (endpoint.Proposal, error) {
	sel, err := types.ParseFunctionSelector(r.FunctionSelector)
	if err != nil {
		return endpoint.Proposal{}, err
	}
	return endpoint.Proposal{
		ProtocolID:      r.ProtocolID,
		DstChainID:      r.DstChainID,
		ProtocolAddress: r.ProtocolAddress,
		Selector:        sel,
		Params:          r.Params,
	}, nil
}

/*
httpStatus returns HTTP status code for the error returned by the engine.
*/
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrIsNotAdmin),
		errors.Is(err, types.ErrExecutorIsNotAllowed),
		errors.Is(err, types.ErrProposerIsNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, types.ErrOpStateInvalid), errors.Is(err, types.ErrAlreadyInitialized):
		return http.StatusConflict
	}
	if _, ok := types.CodeOf(err); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
