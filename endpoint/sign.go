package endpoint

import (
	"context"
	"fmt"

	"github.com/photon-ccm/photon/crypto"
	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/observability"
	"github.com/photon-ccm/photon/storage"
	"github.com/photon-ccm/photon/types"
)

/*
SignOperation adds transmitter signatures to the loaded operation. Signatures
of the transmitters who have already signed are ignored. When signatures of
the current transmitters reach the consensus target rate of the protocol
the operation becomes approved (status Signed) and true is returned.

Either all the signatures are accepted or none, a single invalid signature
fails the call.
*/
func (e *Endpoint) SignOperation(ctx context.Context, caller types.Address, opHash types.Hash, sigs []types.TransmitterSignature) (reached bool, rErr error) {
	ctx, done := e.observe(ctx, "SignOperation", observability.OpHash(opHash))
	defer func() { done(rErr) }()

	// protocol of the operation never changes so it is safe to read it before taking the locks
	peek, err := e.Operation(opHash)
	if err != nil {
		return false, err
	}
	protocolID := peek.OpData.ProtocolID

	defer e.locks.Acquire(lockProtocol(protocolID, false), lockOp(opHash))()

	accepted := 0
	err = e.updateAndEmit(ctx, func(tx *storage.Tx) ([]types.Event, error) {
		oi, err := tx.Op(opHash)
		if err != nil {
			return nil, err
		}
		if oi == nil || oi.Status != types.OpStatusInit {
			return nil, fmt.Errorf("%w: operation must be %s to be signed", types.ErrOpStateInvalid, types.OpStatusInit)
		}
		pi, err := protocolOf(tx, protocolID)
		if err != nil {
			return nil, err
		}
		if err := requireExecutor(pi, protocolID, caller); err != nil {
			return nil, err
		}
		if len(pi.Transmitters) == 0 {
			return nil, fmt.Errorf("%w: protocol %s has no transmitters", types.ErrNoTransmittersAllowed, protocolID)
		}

		for i, sig := range sigs {
			signer, err := crypto.RecoverOpSigner(opHash, sig)
			if err != nil {
				return nil, fmt.Errorf("signature %d: %w", i, err)
			}
			if !pi.IsTransmitter(signer) {
				return nil, fmt.Errorf("%w: signature %d: %s is not a transmitter", types.ErrInvalidSignature, i, signer)
			}
			added, err := oi.AddSigner(signer, pi.IsTransmitter)
			if err != nil {
				return nil, err
			}
			if added {
				accepted++
			}
		}

		var evs []types.Event
		if reached = pi.ConsensusReached(oi.UniqueSigners); reached {
			if err := oi.Advance(types.OpStatusSigned); err != nil {
				return nil, err
			}
			evs = append(evs, proposalEvent(types.EventProposalApproved, opHash, caller))
		}
		if err := tx.SetOp(opHash, oi); err != nil {
			return nil, err
		}
		return evs, nil
	})
	if err != nil {
		return false, fmt.Errorf("signing operation: %w", err)
	}

	e.metrics.signatures.Add(ctx, int64(accepted))
	e.log.DebugContext(ctx, fmt.Sprintf("accepted %d new signatures", accepted), logger.OpHash(opHash))
	if reached {
		e.metrics.opStatus(ctx, types.OpStatusSigned)
		e.log.InfoContext(ctx, "operation approved", logger.OpHash(opHash), logger.Protocol(protocolID))
	}
	return reached, nil
}
