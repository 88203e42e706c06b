package endpoint

import (
	"context"
	"fmt"

	"github.com/photon-ccm/photon/governance"
	"github.com/photon-ccm/photon/internal/keylock"
	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/observability"
	"github.com/photon-ccm/photon/storage"
	"github.com/photon-ccm/photon/types"
)

/*
ExecuteOperation executes the approved operation. The operation is marked
as executed and committed before the payload runs, so the operation is
executed at most once: when the payload (governance mutation or delegated
call) fails the error is returned but the operation stays executed.
ProposalExecuted event is committed together with the status.

Operations of the governance protocol are applied to the registry of the
endpoint, operations of other protocols are delivered to the target
attached to the protocol address.
*/
func (e *Endpoint) ExecuteOperation(ctx context.Context, caller types.Address, opHash types.Hash) (rErr error) {
	ctx, done := e.observe(ctx, "ExecuteOperation", observability.OpHash(opHash))
	defer func() { done(rErr) }()

	peek, err := e.Operation(opHash)
	if err != nil {
		return err
	}
	if peek.Status != types.OpStatusSigned {
		return fmt.Errorf("%w: operation must be %s to be executed, it is %s", types.ErrOpStateInvalid, types.OpStatusSigned, peek.Status)
	}
	opData := peek.OpData
	sel, err := opData.Selector()
	if err != nil {
		return fmt.Errorf("executing operation: %w", err)
	}

	// governance call is decoded up front as the protocol it targets must be locked too
	var govCall *governance.Call
	locks := []keylock.Request{lockOp(opHash), lockProtocol(opData.ProtocolID, false)}
	if opData.ProtocolID.IsGovernance() && !sel.IsDummy() {
		if govCall, err = e.gov.Decode(sel, opData.Params); err != nil {
			return fmt.Errorf("executing operation: %w", err)
		}
		locks = append(locks, lockConfig(false), lockProtocol(govCall.Params.Protocol(), true))
	}
	release := e.locks.Acquire(locks...)
	defer release()

	var target Target
	err = e.updateAndEmit(ctx, func(tx *storage.Tx) ([]types.Event, error) {
		oi, err := tx.Op(opHash)
		if err != nil {
			return nil, err
		}
		if oi == nil || oi.Status != types.OpStatusSigned {
			return nil, fmt.Errorf("%w: operation must be %s to be executed", types.ErrOpStateInvalid, types.OpStatusSigned)
		}
		pi, err := protocolOf(tx, opData.ProtocolID)
		if err != nil {
			return nil, err
		}
		if err := requireExecutor(pi, opData.ProtocolID, caller); err != nil {
			return nil, err
		}
		if pi.ProtocolAddress != opData.ProtocolAddr {
			return nil, fmt.Errorf("%w: protocol address is %s, operation is for %s", types.ErrProtocolAddressMismatch, pi.ProtocolAddress, opData.ProtocolAddr)
		}

		switch {
		case sel.IsDummy():
		case govCall != nil:
			cfg, err := configOf(tx)
			if err != nil {
				return nil, err
			}
			if opData.SrcChainID != cfg.SourceChainID {
				return nil, fmt.Errorf("%w: governance operation from chain %s, expected %s", types.ErrInvalidProtoMsg, opData.SrcChainID, cfg.SourceChainID)
			}
		default:
			if target, err = e.targets.get(opData.ProtocolID, pi.ProtocolAddress); err != nil {
				return nil, err
			}
		}

		if err := oi.Advance(types.OpStatusExecuted); err != nil {
			return nil, err
		}
		if err := tx.SetOp(opHash, oi); err != nil {
			return nil, err
		}
		return []types.Event{proposalEvent(types.EventProposalExecuted, opHash, caller)}, nil
	})
	if err != nil {
		return fmt.Errorf("executing operation: %w", err)
	}
	e.metrics.opStatus(ctx, types.OpStatusExecuted)

	log := e.log.With(logger.OpHash(opHash), logger.Protocol(opData.ProtocolID))
	switch {
	case govCall != nil:
		err = e.update(func(tx *storage.Tx) error { return e.gov.Apply(tx, govCall) })
		release()
	case target != nil:
		// target may be slow, the operation is already executed so there is no need to hold the locks
		release()
		err = target.DelegatedCall(ctx, DelegatedCall{
			OpHash:         opHash,
			ProtocolID:     opData.ProtocolID,
			SrcChainID:     opData.SrcChainID,
			SrcBlockNumber: opData.SrcBlockNumber,
			SrcOpTxID:      opData.SrcOpTxID,
			Selector:       sel,
			Params:         opData.Params,
		})
	}
	if err != nil {
		log.WarnContext(ctx, "operation executed but payload failed", logger.Error(err))
		return fmt.Errorf("operation %s payload: %w", opHash, err)
	}
	log.InfoContext(ctx, fmt.Sprintf("operation executed (%s)", sel))
	return nil
}
