/*
Package governance implements the governance operations of the endpoint,
ie operations which mutate the protocol registry of the endpoint itself.
*/
package governance

import (
	"fmt"

	"github.com/photon-ccm/photon/registry"
	"github.com/photon-ccm/photon/types"
)

type (
	// Registry is the protocol registry view the governance operations work on.
	Registry interface {
		Protocol(id types.ProtocolID) (*types.ProtocolInfo, error)
		SetProtocol(id types.ProtocolID, pi *types.ProtocolInfo) error
	}

	Handler interface {
		Decode(params []byte) (Params, error)
		Apply(reg Registry, params Params) error
	}

	// handler binds params decoder and mutation of a concrete params type.
	handler[P Params] struct {
		decode func([]byte) (P, error)
		apply  func(reg Registry, params P) error
	}

	Handlers map[Operation]Handler

	// Call is a decoded governance operation ready to be applied.
	Call struct {
		Operation Operation
		Params    Params
	}
)

func newHandler[P Params](d func([]byte) (P, error), a func(Registry, P) error) *handler[P] {
	return &handler[P]{decode: d, apply: a}
}

func (h *handler[P]) Decode(params []byte) (Params, error) {
	return h.decode(params)
}

func (h *handler[P]) Apply(reg Registry, params Params) error {
	p, ok := params.(P)
	if !ok {
		return fmt.Errorf("incorrect params type %T", params)
	}
	return h.apply(reg, p)
}

// DefaultHandlers returns handlers of all the governance operations.
func DefaultHandlers() Handlers {
	return Handlers{
		AddAllowedProtocol:           newHandler(decodeAddAllowedProtocol, addAllowedProtocol),
		AddAllowedProtocolAddress:    newHandler(decodeAddress, mutate(func(pi *types.ProtocolInfo, p *AddressParams) (*types.ProtocolInfo, error) { return registry.SetProtocolAddress(pi, p.Address) })),
		RemoveAllowedProtocolAddress: newHandler(decodeAddress, mutate(func(pi *types.ProtocolInfo, p *AddressParams) (*types.ProtocolInfo, error) { return registry.ClearProtocolAddress(pi, p.Address) })),
		AddAllowedProposerAddress:    newHandler(decodeAddress, mutate(func(pi *types.ProtocolInfo, p *AddressParams) (*types.ProtocolInfo, error) { return registry.AddProposer(pi, p.Address) })),
		RemoveAllowedProposerAddress: newHandler(decodeAddress, mutate(func(pi *types.ProtocolInfo, p *AddressParams) (*types.ProtocolInfo, error) { return registry.RemoveProposer(pi, p.Address) })),
		AddExecutor:                  newHandler(decodeAddress, mutate(func(pi *types.ProtocolInfo, p *AddressParams) (*types.ProtocolInfo, error) { return registry.AddExecutor(pi, p.Address) })),
		RemoveExecutor: newHandler(decodeAddress, mutate(func(pi *types.ProtocolInfo, p *AddressParams) (*types.ProtocolInfo, error) {
			return registry.RemoveExecutor(p.ProtocolID, pi, p.Address)
		})),
		AddTransmitters: newHandler(decodeTransmitters, mutate(func(pi *types.ProtocolInfo, p *TransmittersParams) (*types.ProtocolInfo, error) {
			return registry.AddTransmitters(pi, p.Transmitters)
		})),
		RemoveTransmitters: newHandler(decodeTransmitters, mutate(func(pi *types.ProtocolInfo, p *TransmittersParams) (*types.ProtocolInfo, error) {
			return registry.RemoveTransmitters(pi, p.Transmitters)
		})),
		UpdateTransmitters: newHandler(decodeUpdateTransmitters, mutate(func(pi *types.ProtocolInfo, p *UpdateTransmittersParams) (*types.ProtocolInfo, error) {
			return registry.UpdateTransmitters(pi, p.ToAdd, p.ToRemove)
		})),
		SetConsensusTargetRate: newHandler(decodeRate, mutate(func(pi *types.ProtocolInfo, p *RateParams) (*types.ProtocolInfo, error) {
			return registry.SetConsensusTargetRate(pi, p.ConsensusTargetRate)
		})),
	}
}

/*
Decode resolves the operation by the selector and decodes its parameters.
It doesn't access the registry so caller can use the target protocol of
the returned call to lock the records before applying it.
*/
func (h Handlers) Decode(sel types.FunctionSelector, params []byte) (*Call, error) {
	op, err := OperationFromSelector(sel)
	if err != nil {
		return nil, err
	}
	handler, ok := h[op]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for governance operation %s", types.ErrInvalidGovMsg, op)
	}
	p, err := handler.Decode(params)
	if err != nil {
		return nil, fmt.Errorf("'%s' params: %w", op, err)
	}
	return &Call{Operation: op, Params: p}, nil
}

// Apply validates and applies the call to the registry.
func (h Handlers) Apply(reg Registry, call *Call) error {
	handler, ok := h[call.Operation]
	if !ok {
		return fmt.Errorf("%w: no handler for governance operation %s", types.ErrInvalidGovMsg, call.Operation)
	}
	if err := handler.Apply(reg, call.Params); err != nil {
		return fmt.Errorf("'%s' failed: %w", call.Operation, err)
	}
	return nil
}

func (h Handlers) Add(src Handlers) error {
	for op, handler := range src {
		if handler == nil {
			return fmt.Errorf("governance handler must not be nil (%s)", op)
		}
		if _, ok := h[op]; ok {
			return fmt.Errorf("governance handler for %s is already registered", op)
		}
		h[op] = handler
	}
	return nil
}

func addAllowedProtocol(reg Registry, p *AddAllowedProtocolParams) error {
	existing, err := reg.Protocol(p.ProtocolID)
	if err != nil {
		return err
	}
	pi, err := registry.RegisterProtocol(existing, p.ConsensusTargetRate, p.Transmitters)
	if err != nil {
		return err
	}
	return reg.SetProtocol(p.ProtocolID, pi)
}

// mutate returns apply func which loads the target protocol, mutates it and stores the result.
func mutate[P Params](fn func(*types.ProtocolInfo, P) (*types.ProtocolInfo, error)) func(Registry, P) error {
	return func(reg Registry, p P) error {
		id := p.Protocol()
		pi, err := reg.Protocol(id)
		if err != nil {
			return err
		}
		if pi == nil || !pi.IsInit {
			return fmt.Errorf("%w: %s", types.ErrProtocolNotInit, id)
		}
		if pi, err = fn(pi, p); err != nil {
			return err
		}
		return reg.SetProtocol(id, pi)
	}
}
