package endpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/crypto"
	"github.com/photon-ccm/photon/governance"
	testobs "github.com/photon-ccm/photon/internal/testutils/observability"
	testsig "github.com/photon-ccm/photon/internal/testutils/sig"
	"github.com/photon-ccm/photon/keyvaluedb"
	"github.com/photon-ccm/photon/keyvaluedb/memorydb"
	"github.com/photon-ccm/photon/registry"
	"github.com/photon-ccm/photon/types"
)

var (
	localChain = types.NewChainID(2)
	srcChain   = types.NewChainID(1)

	feedID   = types.MustProtocolID("price-feed")
	feedAddr = types.Address{0xFE, 0xED}

	deployer = types.Address{0xD0}
	admin    = types.Address{0xAD}
	executor = types.Address{0xE0}
	proposer = types.Address{0xB0}
)

type testEnv struct {
	*Endpoint
	t            *testing.T
	transmitters []*crypto.InMemorySecp256K1Signer
	nonce        uint64
}

func newEndpoint(t *testing.T, db keyvaluedb.KeyValueDB, opts ...Option) *Endpoint {
	t.Helper()
	opts = append([]Option{WithChainID(localChain), WithDeployer(deployer)}, opts...)
	e, err := New(db, testobs.Default(t), opts...)
	require.NoError(t, err)
	return e
}

func newMemDB(t *testing.T) *memorydb.MemoryDB {
	db, err := memorydb.New()
	require.NoError(t, err)
	return db
}

// newTestEnv returns initialized endpoint, governance protocol has three transmitters.
func newTestEnv(t *testing.T, db keyvaluedb.KeyValueDB, opts ...Option) *testEnv {
	t.Helper()
	signers, addrs := testsig.NewTransmitters(t, 3)
	env := &testEnv{Endpoint: newEndpoint(t, db, opts...), t: t, transmitters: signers}
	err := env.Initialize(context.Background(), deployer, registry.InitParams{
		Admin:               admin,
		SourceChainID:       srcChain,
		MasterContract:      types.Bytes32{0xCC},
		ConsensusTargetRate: 6667,
		Transmitters:        addrs,
		Executors:           []types.Address{executor},
	})
	require.NoError(t, err)
	return env
}

func (env *testEnv) transmitterAddrs() []types.EthAddress {
	addrs := make([]types.EthAddress, len(env.transmitters))
	for i, s := range env.transmitters {
		addrs[i] = s.Address()
	}
	return addrs
}

func (env *testEnv) newOp(id types.ProtocolID, addr types.Address, sel types.FunctionSelector, params []byte) *types.OperationData {
	env.nonce++
	return &types.OperationData{
		ProtocolID:       id,
		Meta:             types.Bytes32{byte(env.nonce)},
		SrcChainID:       srcChain,
		SrcBlockNumber:   1000 + env.nonce,
		SrcOpTxID:        []byte{0x7A, byte(env.nonce)},
		Nonce:            env.nonce,
		DestChainID:      localChain,
		ProtocolAddr:     addr,
		FunctionSelector: sel.Bytes(),
		Params:           params,
		Reserved:         []byte{},
	}
}

func (env *testEnv) govOp(op governance.Operation, p governance.Params) *types.OperationData {
	env.t.Helper()
	b, err := p.Encode()
	require.NoError(env.t, err)
	return env.newOp(types.GovProtocolID, types.Address{}, op.CodeSelector(), b)
}

// approve loads the operation and signs it by all the transmitters.
func (env *testEnv) approve(opData *types.OperationData) types.Hash {
	env.t.Helper()
	ctx := context.Background()
	opHash, err := opData.Hash()
	require.NoError(env.t, err)
	require.NoError(env.t, env.LoadOperation(ctx, executor, opData, opHash))
	reached, err := env.SignOperation(ctx, executor, opHash, testsig.SignOp(env.t, opHash, env.transmitters...))
	require.NoError(env.t, err)
	require.True(env.t, reached)
	return opHash
}

// run approves and executes the operation, returns the outcome of the execution.
func (env *testEnv) run(opData *types.OperationData) (types.Hash, error) {
	env.t.Helper()
	opHash := env.approve(opData)
	return opHash, env.ExecuteOperation(context.Background(), executor, opHash)
}

func (env *testEnv) gov(op governance.Operation, p governance.Params) error {
	env.t.Helper()
	_, err := env.run(env.govOp(op, p))
	return err
}

// registerFeed registers the "price-feed" protocol using governance operations.
func (env *testEnv) registerFeed() {
	env.t.Helper()
	require.NoError(env.t, env.gov(governance.AddAllowedProtocol, &governance.AddAllowedProtocolParams{ProtocolID: feedID, ConsensusTargetRate: 6667, Transmitters: env.transmitterAddrs()}))
	require.NoError(env.t, env.gov(governance.AddExecutor, &governance.AddressParams{ProtocolID: feedID, Address: executor}))
	require.NoError(env.t, env.gov(governance.AddAllowedProtocolAddress, &governance.AddressParams{ProtocolID: feedID, Address: feedAddr}))
	require.NoError(env.t, env.gov(governance.AddAllowedProposerAddress, &governance.AddressParams{ProtocolID: feedID, Address: proposer}))
}

func opStatus(t *testing.T, e *Endpoint, opHash types.Hash) types.OpStatus {
	t.Helper()
	oi, err := e.Operation(opHash)
	require.NoError(t, err)
	return oi.Status
}

func TestNew(t *testing.T) {
	db := newMemDB(t)

	e, err := New(db, testobs.Default(t))
	require.EqualError(t, err, "deployer address must be set")
	require.Nil(t, e)

	e, err = New(db, testobs.Default(t), WithDeployer(deployer), WithTarget(types.Address{}, NewFakeTarget(feedID)))
	require.ErrorIs(t, err, types.ErrInvalidAddress)
	require.Nil(t, e)

	e = newEndpoint(t, db)
	require.Equal(t, localChain, e.ChainID())
	require.Equal(t, deployer, e.Deployer())
	_, err = e.Config()
	require.ErrorIs(t, err, types.ErrProtocolNotInit)
	_, err = e.Protocol(types.GovProtocolID)
	require.ErrorIs(t, err, types.ErrProtocolNotInit)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	_, addrs := testsig.NewTransmitters(t, 2)
	params := registry.InitParams{
		Admin:               admin,
		SourceChainID:       srcChain,
		ConsensusTargetRate: 6667,
		Transmitters:        addrs,
		Executors:           []types.Address{executor},
	}

	e := newEndpoint(t, newMemDB(t))
	require.ErrorIs(t, e.Initialize(ctx, admin, params), types.ErrIsNotAdmin)

	noExecutors := params
	noExecutors.Executors = nil
	require.ErrorIs(t, e.Initialize(ctx, deployer, noExecutors), types.ErrNoExecutorsAllowed)

	lowRate := params
	lowRate.ConsensusTargetRate = 4999
	require.ErrorIs(t, e.Initialize(ctx, deployer, lowRate), types.ErrConsensusTargetRateTooLow)

	// failed attempts must not leave anything behind
	_, err := e.Config()
	require.ErrorIs(t, err, types.ErrProtocolNotInit)

	require.NoError(t, e.Initialize(ctx, deployer, params))
	require.ErrorIs(t, e.Initialize(ctx, deployer, params), types.ErrAlreadyInitialized)

	cfg, err := e.Config()
	require.NoError(t, err)
	require.Equal(t, admin, cfg.Admin)
	require.Equal(t, srcChain, cfg.SourceChainID)
	require.EqualValues(t, 0, cfg.Nonce)

	gov, err := e.Protocol(types.GovProtocolID)
	require.NoError(t, err)
	require.True(t, gov.IsInit)
	require.EqualValues(t, 6667, gov.ConsensusTargetRate)
	require.ElementsMatch(t, addrs, gov.Transmitters)
	require.Equal(t, []types.Address{executor}, gov.Executors)

	ids, err := e.Protocols()
	require.NoError(t, err)
	require.Equal(t, []types.ProtocolID{types.GovProtocolID}, ids)
}

func TestSetAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEndpoint(t, newMemDB(t))
	require.ErrorIs(t, e.SetAdmin(ctx, deployer, admin), types.ErrProtocolNotInit)

	env := newTestEnv(t, newMemDB(t))
	newAdmin := types.Address{0xA1}
	require.ErrorIs(t, env.SetAdmin(ctx, admin, newAdmin), types.ErrIsNotAdmin)
	require.ErrorIs(t, env.SetAdmin(ctx, deployer, types.Address{}), types.ErrInvalidAddress)
	require.NoError(t, env.SetAdmin(ctx, deployer, newAdmin))

	cfg, err := env.Config()
	require.NoError(t, err)
	require.Equal(t, newAdmin, cfg.Admin)
}

func TestSubscribe(t *testing.T) {
	env := newTestEnv(t, newMemDB(t))
	sub := env.Subscribe()
	defer sub.Close()

	opHash, err := env.run(env.newOp(types.GovProtocolID, types.Address{}, types.DummySelector(), nil))
	require.NoError(t, err)

	for _, kind := range []types.EventKind{types.EventProposalLoaded, types.EventProposalApproved, types.EventProposalExecuted} {
		ev := <-sub.Events()
		require.Equal(t, kind, ev.Kind)
		require.Equal(t, opHash, ev.Proposal.OpHash)
		require.Equal(t, executor, ev.Proposal.Executor)
	}

	evs, err := env.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, evs, 3)
	for i, ev := range evs {
		require.EqualValues(t, i, ev.Seq)
	}
	evs, err = env.Events(1, 1)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, types.EventProposalApproved, evs[0].Kind)
}
