package httptarget

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/endpoint"
	"github.com/photon-ccm/photon/types"
)

var _ endpoint.Target = (*Client)(nil)

var feedID = types.MustProtocolID("price-feed")

func TestNew(t *testing.T) {
	_, err := New(feedID, "ftp://example.com")
	require.EqualError(t, err, `unsupported service URL scheme "ftp"`)

	_, err = New(feedID, "http://a b")
	require.ErrorContains(t, err, "parsing service URL")

	c, err := New(feedID, "http://localhost:8080/calls")
	require.NoError(t, err)
	require.Equal(t, feedID, c.ProtocolID())
	require.Equal(t, "http://localhost:8080/calls", c.URL())
}

func TestClient_DelegatedCall(t *testing.T) {
	var (
		got    map[string]any
		apiKey string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		apiKey = r.Header.Get("X-Api-Key")
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(feedID, srv.URL, WithHeader("X-Api-Key", "secret"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	call := endpoint.DelegatedCall{
		OpHash:         types.Hash{0xAA},
		ProtocolID:     feedID,
		SrcChainID:     types.NewChainID(1),
		SrcBlockNumber: 12,
		SrcOpTxID:      types.Bytes{0x0F},
		Selector:       types.SelectorByNameOf("update"),
		Params:         types.Bytes{1, 2},
	}
	require.NoError(t, c.DelegatedCall(context.Background(), call))
	require.Equal(t, "secret", apiKey)
	require.Equal(t, call.OpHash.Hex(), got["opHash"])
	require.Equal(t, "1", got["srcChainId"])
	require.EqualValues(t, 12, got["srcBlockNumber"])
	require.Equal(t, "0x0102", got["params"])
	require.Equal(t, "0x0106757064617465", got["functionSelector"])
}

func TestClient_DelegatedCall_Errors(t *testing.T) {
	call := endpoint.DelegatedCall{ProtocolID: feedID, Selector: types.SelectorByNameOf("update")}

	t.Run("error message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unknown symbol"}`))
		}))
		defer srv.Close()
		c, err := New(feedID, srv.URL)
		require.NoError(t, err)
		require.EqualError(t, c.DelegatedCall(context.Background(), call), "protocol service responded with 400 Bad Request: unknown symbol")
	})

	t.Run("no error message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "oops", http.StatusInternalServerError)
		}))
		defer srv.Close()
		c, err := New(feedID, srv.URL)
		require.NoError(t, err)
		require.EqualError(t, c.DelegatedCall(context.Background(), call), "protocol service responded with 500 Internal Server Error")
	})

	t.Run("service down", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c, err := New(feedID, url)
		require.NoError(t, err)
		require.ErrorContains(t, c.DelegatedCall(context.Background(), call), "calling protocol service")
	})
}
