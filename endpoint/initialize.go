package endpoint

import (
	"context"
	"fmt"

	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/registry"
	"github.com/photon-ccm/photon/storage"
	"github.com/photon-ccm/photon/types"
)

/*
Initialize creates the global config and registers the governance protocol.
Only the deployer of the endpoint may call it and only once.
*/
func (e *Endpoint) Initialize(ctx context.Context, caller types.Address, params registry.InitParams) (rErr error) {
	ctx, done := e.observe(ctx, "Initialize")
	defer func() { done(rErr) }()

	if caller != e.deployer {
		return fmt.Errorf("%w: %s is not the deployer", types.ErrIsNotAdmin, caller)
	}

	defer e.locks.Acquire(lockConfig(true), lockProtocol(types.GovProtocolID, true))()

	err := e.update(func(tx *storage.Tx) error {
		cur, err := tx.Config()
		if err != nil {
			return err
		}
		cfg, gov, err := registry.Initialize(cur, params)
		if err != nil {
			return err
		}
		if err := tx.SetConfig(cfg); err != nil {
			return err
		}
		return tx.SetProtocol(types.GovProtocolID, gov)
	})
	if err != nil {
		return fmt.Errorf("initializing endpoint: %w", err)
	}
	e.log.InfoContext(ctx, "endpoint initialized", logger.Data(params))
	return nil
}

// SetAdmin replaces the admin of the endpoint, only the deployer may call it.
func (e *Endpoint) SetAdmin(ctx context.Context, caller, admin types.Address) (rErr error) {
	ctx, done := e.observe(ctx, "SetAdmin")
	defer func() { done(rErr) }()

	defer e.locks.Acquire(lockConfig(true))()

	err := e.update(func(tx *storage.Tx) error {
		cur, err := tx.Config()
		if err != nil {
			return err
		}
		cfg, err := registry.SetAdmin(cur, caller, e.deployer, admin)
		if err != nil {
			return err
		}
		return tx.SetConfig(cfg)
	})
	if err != nil {
		return fmt.Errorf("setting admin: %w", err)
	}
	e.log.InfoContext(ctx, "endpoint admin changed", logger.Caller(admin))
	return nil
}
