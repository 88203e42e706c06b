/*
Package endpoint implements the operation consensus and execution engine.

Every exported method which changes the state is an "instruction": it
takes locks of the records it reads and writes, validates everything in a
single storage transaction and commits the changes only when all the
checks pass. The events of the instruction are committed in the same
transaction and published to the subscribers after the commit. Instructions
working on unrelated operations and protocols never contend.

Callers of the instructions are identified by their 32 byte address, the
host API is responsible for authenticating them.
*/
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/photon-ccm/photon/events"
	"github.com/photon-ccm/photon/governance"
	"github.com/photon-ccm/photon/internal/keylock"
	"github.com/photon-ccm/photon/keyvaluedb"
	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/storage"
	"github.com/photon-ccm/photon/types"
)

type (
	Observability interface {
		Meter(name string, opts ...metric.MeterOption) metric.Meter
		Tracer(name string, opts ...trace.TracerOption) trace.Tracer
		Logger() *slog.Logger
	}

	Endpoint struct {
		store    *storage.Store
		events   *events.Log
		locks    *keylock.Locker
		gov      governance.Handlers
		targets  *targets
		chainID  types.ChainID
		deployer types.Address

		log     *slog.Logger
		tracer  trace.Tracer
		metrics *metrics
	}

	Option func(*options)

	options struct {
		chainID  types.ChainID
		deployer types.Address
		targets  map[types.Address]Target
		gov      governance.Handlers
		bus      *events.Bus
	}
)

// WithChainID sets ID of the chain the endpoint runs on, operations destined to other chains are rejected.
func WithChainID(id types.ChainID) Option {
	return func(o *options) { o.chainID = id }
}

// WithDeployer sets identity which is allowed to initialize the endpoint and change its admin.
func WithDeployer(addr types.Address) Option {
	return func(o *options) { o.deployer = addr }
}

// WithTarget attaches delegated call target to the protocol address.
func WithTarget(addr types.Address, target Target) Option {
	return func(o *options) { o.targets[addr] = target }
}

func WithGovernanceHandlers(h governance.Handlers) Option {
	return func(o *options) { o.gov = h }
}

// WithEventBus sets the bus events are published to, by default new bus is created.
func WithEventBus(bus *events.Bus) Option {
	return func(o *options) { o.bus = bus }
}

func New(db keyvaluedb.KeyValueDB, obs Observability, opts ...Option) (*Endpoint, error) {
	o := &options{targets: make(map[types.Address]Target)}
	for _, opt := range opts {
		opt(o)
	}
	if o.deployer.IsZero() {
		return nil, errors.New("deployer address must be set")
	}
	if o.gov == nil {
		o.gov = governance.DefaultHandlers()
	}

	store, err := storage.New(db)
	if err != nil {
		return nil, fmt.Errorf("creating record store: %w", err)
	}
	log := obs.Logger().With(logger.Module("endpoint"))
	evLog, err := events.NewLog(db, o.bus, log)
	if err != nil {
		return nil, fmt.Errorf("creating event log: %w", err)
	}

	e := &Endpoint{
		store:    store,
		events:   evLog,
		locks:    keylock.New(),
		gov:      o.gov,
		targets:  newTargets(),
		chainID:  o.chainID,
		deployer: o.deployer,
		log:      log,
		tracer:   obs.Tracer("endpoint"),
	}
	for addr, t := range o.targets {
		if err := e.targets.attach(addr, t); err != nil {
			return nil, fmt.Errorf("attaching target: %w", err)
		}
	}
	if e.metrics, err = newMetrics(obs.Meter("endpoint")); err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	return e, nil
}

func (e *Endpoint) ChainID() types.ChainID { return e.chainID }

func (e *Endpoint) Deployer() types.Address { return e.deployer }

// AttachTarget attaches delegated call target to the protocol address.
func (e *Endpoint) AttachTarget(addr types.Address, target Target) error {
	return e.targets.attach(addr, target)
}

func (e *Endpoint) DetachTarget(addr types.Address) {
	e.targets.detach(addr)
}

// Config returns the global config, ErrProtocolNotInit when the endpoint hasn't been initialized.
func (e *Endpoint) Config() (*types.GlobalConfig, error) {
	cfg, err := e.store.Config()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: endpoint is not initialized", types.ErrProtocolNotInit)
	}
	return cfg, nil
}

func (e *Endpoint) Protocol(id types.ProtocolID) (*types.ProtocolInfo, error) {
	pi, err := e.store.Protocol(id)
	if err != nil {
		return nil, err
	}
	if pi == nil || !pi.IsInit {
		return nil, fmt.Errorf("%w: %s", types.ErrProtocolNotInit, id)
	}
	return pi, nil
}

func (e *Endpoint) Protocols() ([]types.ProtocolID, error) {
	return e.store.Protocols()
}

// Operation returns record of the operation, ErrOpStateInvalid when it has not been loaded.
func (e *Endpoint) Operation(hash types.Hash) (*types.OpInfo, error) {
	oi, err := e.store.Op(hash)
	if err != nil {
		return nil, err
	}
	if oi == nil {
		return nil, fmt.Errorf("%w: operation %s not found", types.ErrOpStateInvalid, hash)
	}
	return oi, nil
}

// Events returns up to "limit" events starting from sequence number "from".
func (e *Endpoint) Events(from uint64, limit int) ([]types.Event, error) {
	return e.events.Range(from, limit)
}

// Proposals returns up to "limit" outbound proposals starting from nonce "from".
func (e *Endpoint) Proposals(from uint64, limit int) ([]types.ProposeEvent, error) {
	return e.events.Proposals(from, limit)
}

/*
Subscribe returns subscription to the events emitted from now on. The
subscription must be closed by the caller.
*/
func (e *Endpoint) Subscribe() *events.Subscription {
	return e.events.Bus().Subscribe()
}

// update runs "fn" in storage transaction, the transaction is committed when "fn" succeeds.
func (e *Endpoint) update(fn func(tx *storage.Tx) error) error {
	return e.updateAndEmit(context.Background(), func(tx *storage.Tx) ([]types.Event, error) {
		return nil, fn(tx)
	})
}

/*
updateAndEmit runs "fn" in storage transaction, when "fn" succeeds the
events it returns are appended to the event log in the same transaction.
*/
func (e *Endpoint) updateAndEmit(ctx context.Context, fn func(tx *storage.Tx) ([]types.Event, error)) error {
	tx, err := e.store.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	evs, err := fn(tx)
	if err != nil {
		return err
	}
	if _, err := e.events.Commit(ctx, tx.KV(), evs...); err != nil {
		return fmt.Errorf("committing db transaction: %w", err)
	}
	return nil
}

func proposalEvent(kind types.EventKind, opHash types.Hash, executor types.Address) types.Event {
	return types.Event{Kind: kind, Proposal: &types.ProposalEvent{OpHash: opHash, Executor: executor}}
}

func lockConfig(exclusive bool) keylock.Request {
	if exclusive {
		return keylock.Write(storage.ConfigKey())
	}
	return keylock.Read(storage.ConfigKey())
}

func lockProtocol(id types.ProtocolID, exclusive bool) keylock.Request {
	if exclusive {
		return keylock.Write(storage.ProtocolKey(id))
	}
	return keylock.Read(storage.ProtocolKey(id))
}

func lockOp(hash types.Hash) keylock.Request {
	return keylock.Write(storage.OpKey(hash))
}

// protocolOf returns initialized protocol from the tx.
func protocolOf(tx *storage.Tx, id types.ProtocolID) (*types.ProtocolInfo, error) {
	pi, err := tx.Protocol(id)
	if err != nil {
		return nil, err
	}
	if pi == nil || !pi.IsInit {
		return nil, fmt.Errorf("%w: %s", types.ErrProtocolNotInit, id)
	}
	return pi, nil
}

// configOf returns global config from the tx.
func configOf(tx *storage.Tx) (*types.GlobalConfig, error) {
	cfg, err := tx.Config()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: endpoint is not initialized", types.ErrProtocolNotInit)
	}
	return cfg, nil
}

func requireExecutor(pi *types.ProtocolInfo, id types.ProtocolID, caller types.Address) error {
	if !pi.IsExecutor(caller) {
		return fmt.Errorf("%w: %s is not executor of %s", types.ErrExecutorIsNotAllowed, caller, id)
	}
	return nil
}
