package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/types"
)

// EndpointNamespace is the JSON-RPC namespace of the EndpointAPI.
const EndpointNamespace = "photon"

/*
EndpointAPI is the read-only JSON-RPC API of the endpoint, methods are
available as "photon_<method>", ie "photon_getOperation". Events can be
followed using "photon_subscribe" with "events" subscription (websocket only).
*/
type EndpointAPI struct {
	engine        Engine
	log           *slog.Logger
	updateMetrics func(ctx context.Context, method string, start time.Time, apiErr error)
}

// Error wraps the engine error so that go-ethereum RPC server reports its code and name.
type Error struct {
	err error
}

func NewEndpointAPI(engine Engine, obs Observability) *EndpointAPI {
	log := obs.Logger().With(logger.Module("jrpc"))
	return &EndpointAPI{
		engine:        engine,
		log:           log,
		updateMetrics: metricsUpdater(obs.Meter(metricsScopeJRPCAPI), log),
	}
}

type ChainInfo struct {
	ChainID     types.ChainID `json:"chainId"`
	Initialized bool          `json:"initialized"`
}

func (api *EndpointAPI) GetChainInfo(ctx context.Context) (_ *ChainInfo, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "getChainInfo", start, retErr) }(time.Now())

	_, err := api.engine.Config()
	if err != nil && !errors.Is(err, types.ErrProtocolNotInit) {
		return nil, apiError(err)
	}
	return &ChainInfo{ChainID: api.engine.ChainID(), Initialized: err == nil}, nil
}

func (api *EndpointAPI) GetConfig(ctx context.Context) (_ *types.GlobalConfig, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "getConfig", start, retErr) }(time.Now())

	cfg, err := api.engine.Config()
	if err != nil {
		return nil, apiError(err)
	}
	return cfg, nil
}

func (api *EndpointAPI) GetProtocols(ctx context.Context) (_ []types.ProtocolID, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "getProtocols", start, retErr) }(time.Now())

	ids, err := api.engine.Protocols()
	if err != nil {
		return nil, apiError(err)
	}
	return nonNil(ids), nil
}

func (api *EndpointAPI) GetProtocol(ctx context.Context, id types.ProtocolID) (_ *types.ProtocolInfo, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "getProtocol", start, retErr) }(time.Now())

	pi, err := api.engine.Protocol(id)
	if err != nil {
		return nil, apiError(err)
	}
	return pi, nil
}

func (api *EndpointAPI) GetOperation(ctx context.Context, opHash types.Hash) (_ *types.OpInfo, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "getOperation", start, retErr) }(time.Now())

	oi, err := api.engine.Operation(opHash)
	if err != nil {
		return nil, apiError(err)
	}
	return oi, nil
}

// HashOperation returns the canonical hash of the operation, the one transmitters sign.
func (api *EndpointAPI) HashOperation(ctx context.Context, opData *types.OperationData) (_ types.Hash, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "hashOperation", start, retErr) }(time.Now())

	h, err := opData.Hash()
	if err != nil {
		return types.Hash{}, apiError(err)
	}
	return h, nil
}

func (api *EndpointAPI) GetEvents(ctx context.Context, from uint64, limit int) (_ []types.Event, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "getEvents", start, retErr) }(time.Now())

	if limit <= 0 || limit > maxPageSize {
		return nil, fmt.Errorf("limit must be in range 1..%d", maxPageSize)
	}
	evs, err := api.engine.Events(from, limit)
	if err != nil {
		return nil, apiError(err)
	}
	return nonNil(evs), nil
}

func (api *EndpointAPI) GetProposals(ctx context.Context, fromNonce uint64, limit int) (_ []types.ProposeEvent, retErr error) {
	defer func(start time.Time) { api.updateMetrics(ctx, "getProposals", start, retErr) }(time.Now())

	if limit <= 0 || limit > maxPageSize {
		return nil, fmt.Errorf("limit must be in range 1..%d", maxPageSize)
	}
	props, err := api.engine.Proposals(fromNonce, limit)
	if err != nil {
		return nil, apiError(err)
	}
	return nonNil(props), nil
}

/*
Events creates subscription which notifies the client about the events
emitted by the endpoint from now on. When the client doesn't keep up the
subscription is terminated.
*/
func (api *EndpointAPI) Events(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	sub := api.engine.Subscribe()
	rpcSub := notifier.CreateSubscription()
	go func() {
		defer sub.Close()
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					api.log.Debug(fmt.Sprintf("subscription %s dropped", rpcSub.ID))
					return
				}
				if err := notifier.Notify(rpcSub.ID, ev); err != nil {
					api.log.Debug(fmt.Sprintf("notifying subscription %s", rpcSub.ID), logger.Error(err))
					return
				}
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}

func apiError(err error) error {
	if _, ok := types.CodeOf(err); ok {
		return &Error{err: err}
	}
	return err
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// ErrorCode returns the code of the endpoint error, go-ethereum RPC server uses it as the JSON-RPC error code.
func (e *Error) ErrorCode() int {
	if c, ok := types.CodeOf(e.err); ok {
		return int(c.Code)
	}
	return -32000
}

func (e *Error) ErrorData() any {
	if c, ok := types.CodeOf(e.err); ok {
		return c.Name
	}
	return nil
}
