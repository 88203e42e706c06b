package governance

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/keyvaluedb/memorydb"
	"github.com/photon-ccm/photon/storage"
	"github.com/photon-ccm/photon/types"
)

var targetID = types.MustProtocolID("price-feed")

func TestParams_RoundTrip(t *testing.T) {
	tests := []struct {
		op     Operation
		params Params
	}{
		{AddAllowedProtocol, &AddAllowedProtocolParams{ProtocolID: targetID, ConsensusTargetRate: 6667, Transmitters: []types.EthAddress{{1}, {2}}}},
		{AddAllowedProtocolAddress, &AddressParams{ProtocolID: targetID, Address: types.Address{3}}},
		{RemoveExecutor, &AddressParams{ProtocolID: targetID, Address: types.Address{4}}},
		{AddTransmitters, &TransmittersParams{ProtocolID: targetID, Transmitters: []types.EthAddress{{5}}}},
		{UpdateTransmitters, &UpdateTransmittersParams{ProtocolID: targetID, ToAdd: []types.EthAddress{{6}}, ToRemove: []types.EthAddress{{7}, {8}}}},
		{SetConsensusTargetRate, &RateParams{ProtocolID: targetID, ConsensusTargetRate: 10000}},
	}
	h := DefaultHandlers()
	for _, tc := range tests {
		t.Run(tc.op.String(), func(t *testing.T) {
			b, err := tc.params.Encode()
			require.NoError(t, err)
			call, err := h.Decode(tc.op.CodeSelector(), b)
			require.NoError(t, err)
			require.Equal(t, tc.op, call.Operation)
			require.Equal(t, tc.params, call.Params)
			require.Equal(t, targetID, call.Params.Protocol())
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	h := DefaultHandlers()

	_, err := h.Decode(AddExecutor.CodeSelector(), []byte{1, 2, 3})
	require.ErrorIs(t, err, types.ErrInvalidGovMsg)

	_, err = h.Decode(types.SelectorByNameOf("Upgrade"), nil)
	require.ErrorIs(t, err, types.ErrInvalidGovMsg)

	// rate which doesn't fit into uint64
	b, err := argsRate.Pack([32]byte(targetID), new(big.Int).Lsh(big.NewInt(1), 70))
	require.NoError(t, err)
	_, err = h.Decode(SetConsensusTargetRate.CodeSelector(), b)
	require.ErrorIs(t, err, types.ErrInvalidGovMsg)

	empty := Handlers{}
	_, err = empty.Decode(AddExecutor.CodeSelector(), nil)
	require.ErrorIs(t, err, types.ErrInvalidGovMsg)
}

func newRegistry(t *testing.T) *storage.Tx {
	db, err := memorydb.New()
	require.NoError(t, err)
	s, err := storage.New(db)
	require.NoError(t, err)
	tx, err := s.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func apply(t *testing.T, reg Registry, op Operation, p Params) error {
	t.Helper()
	b, err := p.Encode()
	require.NoError(t, err)
	h := DefaultHandlers()
	call, err := h.Decode(op.NameSelector(), b)
	require.NoError(t, err)
	return h.Apply(reg, call)
}

func TestApply_ProtocolLifecycle(t *testing.T) {
	reg := newRegistry(t)

	require.ErrorIs(t, apply(t, reg, AddExecutor, &AddressParams{ProtocolID: targetID, Address: types.Address{1}}), types.ErrProtocolNotInit)

	require.NoError(t, apply(t, reg, AddAllowedProtocol, &AddAllowedProtocolParams{ProtocolID: targetID, ConsensusTargetRate: 5000, Transmitters: []types.EthAddress{{1}}}))
	require.ErrorIs(t, apply(t, reg, AddAllowedProtocol, &AddAllowedProtocolParams{ProtocolID: targetID, ConsensusTargetRate: 5000}), types.ErrProtocolAlreadyInit)

	require.NoError(t, apply(t, reg, AddAllowedProtocolAddress, &AddressParams{ProtocolID: targetID, Address: types.Address{0xAD}}))
	require.NoError(t, apply(t, reg, AddAllowedProposerAddress, &AddressParams{ProtocolID: targetID, Address: types.Address{0xB0}}))
	require.NoError(t, apply(t, reg, AddExecutor, &AddressParams{ProtocolID: targetID, Address: types.Address{0xE0}}))
	require.NoError(t, apply(t, reg, AddTransmitters, &TransmittersParams{ProtocolID: targetID, Transmitters: []types.EthAddress{{2}, {3}}}))
	require.NoError(t, apply(t, reg, UpdateTransmitters, &UpdateTransmittersParams{ProtocolID: targetID, ToAdd: []types.EthAddress{{4}}, ToRemove: []types.EthAddress{{1}}}))
	require.NoError(t, apply(t, reg, SetConsensusTargetRate, &RateParams{ProtocolID: targetID, ConsensusTargetRate: 7500}))

	pi, err := reg.Protocol(targetID)
	require.NoError(t, err)
	require.Equal(t, &types.ProtocolInfo{
		IsInit:              true,
		ConsensusTargetRate: 7500,
		ProtocolAddress:     types.Address{0xAD},
		Transmitters:        []types.EthAddress{{2}, {3}, {4}},
		Executors:           []types.Address{{0xE0}},
		Proposers:           []types.Address{{0xB0}},
	}, pi)

	require.NoError(t, apply(t, reg, RemoveAllowedProtocolAddress, &AddressParams{ProtocolID: targetID, Address: types.Address{0xAD}}))
	require.NoError(t, apply(t, reg, RemoveAllowedProposerAddress, &AddressParams{ProtocolID: targetID, Address: types.Address{0xB0}}))
	require.NoError(t, apply(t, reg, RemoveExecutor, &AddressParams{ProtocolID: targetID, Address: types.Address{0xE0}}))
	require.NoError(t, apply(t, reg, RemoveTransmitters, &TransmittersParams{ProtocolID: targetID, Transmitters: []types.EthAddress{{2}}}))

	pi, err = reg.Protocol(targetID)
	require.NoError(t, err)
	require.True(t, pi.ProtocolAddress.IsZero())
	require.Empty(t, pi.Proposers)
	require.Empty(t, pi.Executors)
	require.Equal(t, []types.EthAddress{{3}, {4}}, pi.Transmitters)
}

func TestApply_FailureLeavesRegistryUnchanged(t *testing.T) {
	reg := newRegistry(t)
	gov := &types.ProtocolInfo{IsInit: true, ConsensusTargetRate: 6667, Transmitters: []types.EthAddress{{1}}, Executors: []types.Address{{1}}, Proposers: []types.Address{}}
	require.NoError(t, reg.SetProtocol(types.GovProtocolID, gov))

	require.ErrorIs(t, apply(t, reg, SetConsensusTargetRate, &RateParams{ProtocolID: types.GovProtocolID, ConsensusTargetRate: 4000}), types.ErrConsensusTargetRateTooLow)
	require.ErrorIs(t, apply(t, reg, RemoveExecutor, &AddressParams{ProtocolID: types.GovProtocolID, Address: types.Address{1}}), types.ErrTryingToRemoveLastGovExecutor)
	// second address is a duplicate, the first one must not be added either
	require.ErrorIs(t, apply(t, reg, AddTransmitters, &TransmittersParams{ProtocolID: types.GovProtocolID, Transmitters: []types.EthAddress{{2}, {1}}}), types.ErrTransmitterIsAlreadyAllowed)

	pi, err := reg.Protocol(types.GovProtocolID)
	require.NoError(t, err)
	require.Equal(t, gov, pi)
}

func TestHandlers_Add(t *testing.T) {
	h := Handlers{}
	require.NoError(t, h.Add(DefaultHandlers()))
	require.Len(t, h, 11)
	require.EqualError(t, h.Add(Handlers{AddExecutor: DefaultHandlers()[AddExecutor]}), "governance handler for AddExecutor is already registered")
	require.EqualError(t, Handlers{}.Add(Handlers{AddExecutor: nil}), "governance handler must not be nil (AddExecutor)")
}
