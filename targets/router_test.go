package targets

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/endpoint"
	"github.com/photon-ccm/photon/types"
)

var _ endpoint.Target = (*Router)(nil)

var feedID = types.MustProtocolID("price-feed")

func TestRouter_Handle(t *testing.T) {
	r := NewRouter(feedID)
	require.Equal(t, feedID, r.ProtocolID())
	nop := func(context.Context, endpoint.DelegatedCall) error { return nil }

	require.ErrorIs(t, r.Handle(types.DummySelector(), nop), types.ErrInvalidMethodSelector)
	require.ErrorIs(t, r.Handle(types.SelectorByNameOf(strings.Repeat("n", 33)), nop), types.ErrSelectorTooBig)
	require.EqualError(t, r.Handle(types.SelectorByNameOf("x"), nil), "entry point must not be nil (010178)")

	require.NoError(t, r.Handle(types.SelectorByNameOf("update"), nop))
	require.EqualError(t, r.Handle(types.SelectorByNameOf("update"), nop), "entry point for 0106757064617465 is already registered")
	// same payload but different kind is different selector
	require.NoError(t, r.Handle(types.SelectorByCodeOf([]byte("update")), nop))
}

func TestRouter_DelegatedCall(t *testing.T) {
	ctx := context.Background()
	r := NewRouter(feedID)

	var got []string
	require.NoError(t, r.Handle(types.SelectorByNameOf("update"), func(_ context.Context, call endpoint.DelegatedCall) error {
		got = append(got, string(call.Params))
		return nil
	}))
	require.NoError(t, r.Handle(types.SelectorByCodeOf([]byte{0x01}), func(context.Context, endpoint.DelegatedCall) error {
		return errors.New("boom")
	}))

	call := endpoint.DelegatedCall{ProtocolID: feedID, Selector: types.SelectorByNameOf("update"), Params: []byte("BTC")}
	require.NoError(t, r.DelegatedCall(ctx, call))
	require.Equal(t, []string{"BTC"}, got)

	// names are case sensitive
	call.Selector = types.SelectorByNameOf("Update")
	require.ErrorIs(t, r.DelegatedCall(ctx, call), types.ErrInvalidMethodSelector)

	call.Selector = types.SelectorByCodeOf([]byte{0x01})
	require.EqualError(t, r.DelegatedCall(ctx, call), "'code:01' failed: boom")

	call.ProtocolID = types.MustProtocolID("oracle")
	require.ErrorIs(t, r.DelegatedCall(ctx, call), types.ErrTargetProtocolMismatch)
}

func TestABIEntryPoint(t *testing.T) {
	uint256Type, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Name: "symbol", Type: stringType}, {Name: "price", Type: uint256Type}}

	prices := map[string]*big.Int{}
	ep := ABIEntryPoint(args, func(_ context.Context, _ endpoint.DelegatedCall, values []any) error {
		prices[values[0].(string)] = values[1].(*big.Int)
		return nil
	})

	params, err := args.Pack("ETH", big.NewInt(4000))
	require.NoError(t, err)
	require.NoError(t, ep(context.Background(), endpoint.DelegatedCall{Params: params}))
	require.Equal(t, big.NewInt(4000), prices["ETH"])

	require.ErrorIs(t, ep(context.Background(), endpoint.DelegatedCall{Params: []byte{1}}), types.ErrInvalidProtoMsg)
}
