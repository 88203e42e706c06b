package endpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/photon-ccm/photon/types"
)

type (
	/*
		Target is a protocol which can be called by the endpoint when an
		approved operation of the protocol is executed.
	*/
	Target interface {
		// ProtocolID returns ID of the protocol the target implements.
		ProtocolID() types.ProtocolID
		DelegatedCall(ctx context.Context, call DelegatedCall) error
	}

	// DelegatedCall is the payload of an executed operation delivered to the target.
	DelegatedCall struct {
		OpHash         types.Hash             `json:"opHash"`
		ProtocolID     types.ProtocolID       `json:"protocolId"`
		SrcChainID     types.ChainID          `json:"srcChainId"`
		SrcBlockNumber uint64                 `json:"srcBlockNumber"`
		SrcOpTxID      types.Bytes            `json:"srcOpTxId"`
		Selector       types.FunctionSelector `json:"-"`
		Params         types.Bytes            `json:"params"`
	}

	// targets is the set of targets attached to protocol addresses.
	targets struct {
		mu sync.RWMutex
		m  map[types.Address]Target
	}
)

func newTargets() *targets {
	return &targets{m: make(map[types.Address]Target)}
}

func (t *targets) attach(addr types.Address, target Target) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: target address is zero", types.ErrInvalidAddress)
	}
	if target == nil {
		return fmt.Errorf("target for %s is nil", addr)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[addr]; ok {
		return fmt.Errorf("target for %s is already attached", addr)
	}
	t.m[addr] = target
	return nil
}

func (t *targets) detach(addr types.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, addr)
}

/*
get returns target attached to the protocol address. The target must
implement the protocol "id".
*/
func (t *targets) get(id types.ProtocolID, addr types.Address) (Target, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: protocol %s has no address", types.ErrProtocolAddressNotProvided, id)
	}
	t.mu.RLock()
	target, ok := t.m[addr]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no target attached to %s", types.ErrProtocolAddressNotProvided, addr)
	}
	if tid := target.ProtocolID(); tid != id {
		return nil, fmt.Errorf("%w: target at %s serves protocol %s, not %s", types.ErrTargetProtocolMismatch, addr, tid, id)
	}
	return target, nil
}
