package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/sentinel"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithHTTPClient(srv.Client()))
}

func TestGetNetwork(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/eth", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"netid":"eth","symbol":"ETH","name":"Ethereum","enabled":true}`))
	})

	n, err := client.GetNetwork(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "eth", n.ID)
	assert.Equal(t, "ETH", n.Symbol)
	assert.True(t, n.Enabled)
}

func TestGetNetworkNotFound(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetNetwork(context.Background(), "nope")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestGetNetworkServerError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetNetwork(context.Background(), "eth")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestSymbolToNetworkID(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/by-symbol/ETH", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("allow_disabled"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"netid":"eth"}`))
	})

	netid, err := client.SymbolToNetworkID(context.Background(), "ETH", true)
	require.NoError(t, err)
	assert.Equal(t, "eth", netid)
}

func TestSymbolToNetworkIDUnknown(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.SymbolToNetworkID(context.Background(), "WAT", false)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
