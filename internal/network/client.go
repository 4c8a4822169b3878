// Package network talks to the wallet-network service, the authoritative
// source of blockchain network metadata.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/sentinel"
)

// Network is the descriptor resolved for a network id.
type Network struct {
	ID      string `json:"netid"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Resolver resolves network identifiers against the wallet-network service.
type Resolver interface {
	// GetNetwork resolves a network id to its descriptor.
	GetNetwork(ctx context.Context, netid string) (*Network, error)
	// SymbolToNetworkID resolves a human symbol to a network id.
	// allowDisabled includes networks currently switched off.
	SymbolToNetworkID(ctx context.Context, symbol string, allowDisabled bool) (string, error)
}

// Client is the HTTP implementation of Resolver.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient constructs a wallet-network client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetNetwork(ctx context.Context, netid string) (*Network, error) {
	var n Network
	path := "/networks/" + url.PathEscape(netid)
	if err := c.getJSON(ctx, path, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) SymbolToNetworkID(ctx context.Context, symbol string, allowDisabled bool) (string, error) {
	var resp struct {
		NetworkID string `json:"netid"`
	}
	path := "/networks/by-symbol/" + url.PathEscape(symbol)
	if allowDisabled {
		path += "?allow_disabled=true"
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", err
	}
	return resp.NetworkID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build network request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call wallet-network service: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("wallet-network service returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode network response: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
