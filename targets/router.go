/*
Package targets contains implementations of the delegated call targets:
the in-process Router which dispatches the call to entry points by function
selector and httptarget which forwards the call to an external service.
*/
package targets

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/photon-ccm/photon/endpoint"
	"github.com/photon-ccm/photon/types"
)

// EntryPoint is a function of the target protocol which can be called by the approved operation.
type EntryPoint func(ctx context.Context, call endpoint.DelegatedCall) error

// EntryPoints maps function selector (FunctionSelector.Key) to the entry point.
type EntryPoints map[string]EntryPoint

/*
Router is a Target which dispatches the delegated calls to the entry points
registered for the function selector of the call.
*/
type Router struct {
	id      types.ProtocolID
	mu      sync.RWMutex
	entries EntryPoints
}

func NewRouter(id types.ProtocolID) *Router {
	return &Router{id: id, entries: make(EntryPoints)}
}

func (r *Router) ProtocolID() types.ProtocolID { return r.id }

// Handle registers entry point for the selector.
func (r *Router) Handle(sel types.FunctionSelector, fn EntryPoint) error {
	if sel.IsDummy() {
		return fmt.Errorf("%w: entry point can't be registered for dummy selector", types.ErrInvalidMethodSelector)
	}
	if err := sel.Validate(); err != nil {
		return err
	}
	return r.Add(EntryPoints{sel.Key(): fn})
}

func (r *Router) Add(src EntryPoints) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, fn := range src {
		if fn == nil {
			return fmt.Errorf("entry point must not be nil (%x)", key)
		}
		if _, ok := r.entries[key]; ok {
			return fmt.Errorf("entry point for %x is already registered", key)
		}
		r.entries[key] = fn
	}
	return nil
}

func (r *Router) DelegatedCall(ctx context.Context, call endpoint.DelegatedCall) error {
	if call.ProtocolID != r.id {
		return fmt.Errorf("%w: call for %s, router serves %s", types.ErrTargetProtocolMismatch, call.ProtocolID, r.id)
	}
	r.mu.RLock()
	fn, ok := r.entries[call.Selector.Key()]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: protocol %s has no entry point %s", types.ErrInvalidMethodSelector, r.id, call.Selector)
	}
	if err := fn(ctx, call); err != nil {
		return fmt.Errorf("'%s' failed: %w", call.Selector, err)
	}
	return nil
}

/*
ABIEntryPoint returns entry point which unpacks the params of the call
according to "args" before calling "fn".
*/
func ABIEntryPoint(args abi.Arguments, fn func(ctx context.Context, call endpoint.DelegatedCall, values []any) error) EntryPoint {
	return func(ctx context.Context, call endpoint.DelegatedCall) error {
		values, err := args.Unpack(call.Params)
		if err != nil {
			return fmt.Errorf("%w: decoding params: %v", types.ErrInvalidProtoMsg, err)
		}
		return fn(ctx, call, values)
	}
}
