package endpoint

import (
	"context"
	"fmt"

	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/observability"
	"github.com/photon-ccm/photon/registry"
	"github.com/photon-ccm/photon/storage"
	"github.com/photon-ccm/photon/types"
)

// Proposal is an outbound operation for another chain.
type Proposal struct {
	ProtocolID      types.ProtocolID
	DstChainID      types.ChainID
	ProtocolAddress []byte
	Selector        types.FunctionSelector
	Params          []byte
}

/*
Propose emits ProposeEvent for the relayers to deliver to the destination
chain. Caller must be a proposer of the protocol. The event carries the
current proposal nonce of the endpoint, the nonce is incremented after that.
The event and the new nonce are committed together.
*/
func (e *Endpoint) Propose(ctx context.Context, caller types.Address, p Proposal) (_ *types.ProposeEvent, rErr error) {
	ctx, done := e.observe(ctx, "Propose", observability.Protocol(p.ProtocolID))
	defer func() { done(rErr) }()

	if err := p.Selector.Validate(); err != nil {
		return nil, fmt.Errorf("proposing: %w", err)
	}

	defer e.locks.Acquire(lockConfig(true), lockProtocol(p.ProtocolID, false))()

	var ev *types.ProposeEvent
	err := e.updateAndEmit(ctx, func(tx *storage.Tx) ([]types.Event, error) {
		pi, err := protocolOf(tx, p.ProtocolID)
		if err != nil {
			return nil, err
		}
		if !pi.IsProposer(caller) {
			return nil, fmt.Errorf("%w: %s is not proposer of %s", types.ErrProposerIsNotAllowed, caller, p.ProtocolID)
		}
		cfg, err := configOf(tx)
		if err != nil {
			return nil, err
		}
		ev = &types.ProposeEvent{
			ProtocolID:       p.ProtocolID,
			Nonce:            cfg.Nonce,
			DstChainID:       p.DstChainID,
			ProtocolAddress:  append(types.Bytes{}, p.ProtocolAddress...),
			FunctionSelector: p.Selector.Bytes(),
			Params:           append(types.Bytes{}, p.Params...),
		}
		if err := tx.SetConfig(registry.IncrementNonce(cfg)); err != nil {
			return nil, err
		}
		return []types.Event{{Kind: types.EventPropose, Propose: ev}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("proposing: %w", err)
	}

	e.log.InfoContext(ctx, fmt.Sprintf("proposal %d to chain %s", ev.Nonce, ev.DstChainID), logger.Protocol(p.ProtocolID), logger.Caller(caller))
	return ev, nil
}
