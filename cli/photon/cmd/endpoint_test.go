package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testobs "github.com/photon-ccm/photon/internal/testutils/observability"
	"github.com/photon-ccm/photon/types"
)

func TestNewEndpoint_Restart(t *testing.T) {
	ctx := context.Background()
	home := t.TempDir()
	g := newTestGenesis(t)
	g.write(t, home, "")
	config := &endpointConfig{Base: &baseConfiguration{HomeDir: home}}
	obs := testobs.Default(t)

	ep, closeDB, err := newEndpoint(ctx, config, obs)
	require.NoError(t, err)
	require.Equal(t, types.NewChainID(2), ep.ChainID())
	cfg, err := ep.Config()
	require.NoError(t, err)
	require.Equal(t, g.admin, cfg.Admin)
	require.NoError(t, closeDB())

	// stored config survives and genesis initialization is skipped
	ep, closeDB, err = newEndpoint(ctx, config, obs)
	require.NoError(t, err)
	defer closeDB()
	cfg, err = ep.Config()
	require.NoError(t, err)
	require.Equal(t, g.admin, cfg.Admin)
	evs, err := ep.Events(0, 10)
	require.NoError(t, err)
	require.Empty(t, evs)
}

func TestNewEndpoint_MissingGenesis(t *testing.T) {
	config := &endpointConfig{Base: &baseConfiguration{HomeDir: t.TempDir()}}
	_, _, err := newEndpoint(context.Background(), config, testobs.Default(t))
	require.ErrorContains(t, err, "opening genesis file")
}

func TestRunEndpoint(t *testing.T) {
	home := t.TempDir()
	g := newTestGenesis(t)
	g.write(t, home, "")

	// find free port for the RPC server
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := execCmdContext(ctx, t, home, "endpoint", "--rpc-server-address", addr)
		done <- err
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("endpoint didn't stop")
		}
	})

	var info struct {
		ChainID     types.ChainID `json:"chainId"`
		Initialized bool          `json:"initialized"`
	}
	require.Eventually(t, func() bool {
		rsp, err := http.Get(fmt.Sprintf("http://%s/api/v1/info", addr))
		if err != nil {
			return false
		}
		defer rsp.Body.Close()
		return rsp.StatusCode == http.StatusOK && json.NewDecoder(rsp.Body).Decode(&info) == nil
	}, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, types.NewChainID(2), info.ChainID)
	require.True(t, info.Initialized)
}

func TestRunEndpoint_NoServer(t *testing.T) {
	home := t.TempDir()
	newTestGenesis(t).write(t, home, "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := execCmdContext(ctx, t, home, "endpoint", "--rpc-server-address", "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
