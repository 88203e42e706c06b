package endpoint

import (
	"context"
	"fmt"

	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/observability"
	"github.com/photon-ccm/photon/storage"
	"github.com/photon-ccm/photon/types"
)

/*
LoadOperation creates record of the operation observed on the source chain.
"expectedHash" is the hash the caller computed, it must match the
canonical hash of "opData". Caller must be executor of the protocol of the
operation.
*/
func (e *Endpoint) LoadOperation(ctx context.Context, caller types.Address, opData *types.OperationData, expectedHash types.Hash) (rErr error) {
	ctx, done := e.observe(ctx, "LoadOperation", observability.OpHash(expectedHash))
	defer func() { done(rErr) }()

	opHash, err := opData.Hash()
	if err != nil {
		return err
	}
	if opHash != expectedHash {
		return fmt.Errorf("%w: operation hash is %s, expected %s", types.ErrCachedOpHashMismatch, opHash, expectedHash)
	}

	defer e.locks.Acquire(lockProtocol(opData.ProtocolID, false), lockOp(opHash))()

	err = e.updateAndEmit(ctx, func(tx *storage.Tx) ([]types.Event, error) {
		oi, err := tx.Op(opHash)
		if err != nil {
			return nil, err
		}
		if oi != nil && oi.Status != types.OpStatusNone {
			return nil, fmt.Errorf("%w: operation is already %s", types.ErrOpStateInvalid, oi.Status)
		}
		pi, err := protocolOf(tx, opData.ProtocolID)
		if err != nil {
			return nil, err
		}
		if opData.DestChainID != e.chainID {
			return nil, fmt.Errorf("%w: destination chain is %s, this is %s", types.ErrOpIsNotForThisChain, opData.DestChainID, e.chainID)
		}
		if err := requireExecutor(pi, opData.ProtocolID, caller); err != nil {
			return nil, err
		}

		oi = &types.OpInfo{UniqueSigners: []types.EthAddress{}, OpData: opData}
		if err := oi.Advance(types.OpStatusInit); err != nil {
			return nil, err
		}
		if err := tx.SetOp(opHash, oi); err != nil {
			return nil, err
		}
		return []types.Event{proposalEvent(types.EventProposalLoaded, opHash, caller)}, nil
	})
	if err != nil {
		return fmt.Errorf("loading operation: %w", err)
	}

	e.metrics.opStatus(ctx, types.OpStatusInit)
	e.log.InfoContext(ctx, "operation loaded", logger.OpHash(opHash), logger.Protocol(opData.ProtocolID), logger.Caller(caller))
	return nil
}
