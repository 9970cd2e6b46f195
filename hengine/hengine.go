// Package hengine is a wrapper for the Hathor wallet engine.
// It exposes very little of the engine's HTTP surface — just enough
// for the wallet's sync store: balance, history, and token queries,
// swap-proposal calls, and the live event feed.
package hengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/ebourg/hathor-wallet/errors"
	"github.com/ebourg/hathor-wallet/hengine/htr"
)

var (
	errUninitialized = errors.New("uninitialized")

	// ErrBadStatus is the root of errors caused by a non-2xx
	// engine response.
	ErrBadStatus = errors.New("bad engine response status")
)

// Info describes the fullnode the engine is connected to.
type Info struct {
	Version string `json:"version"`
	Network string `json:"network"`
}

// TokenInfo is a token's registered identity.
type TokenInfo struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Balance is a token balance as computed by the engine.
type Balance struct {
	Available htr.Amount `json:"available"`
	Locked    htr.Amount `json:"locked"`
}

// Tx is one transaction as it affects the wallet.
type Tx struct {
	TxID      string                `json:"tx_id"`
	Timestamp int64                 `json:"timestamp"`
	Version   int                   `json:"version"`
	IsVoided  bool                  `json:"is_voided"`
	Balances  map[string]TxBalance  `json:"balances"`
	Updated   map[string]Balance    `json:"updated_balances"`
}

// TxBalance is the effect of one transaction on one token.
type TxBalance struct {
	Delta          htr.Amount `json:"delta"`
	IsAllAuthority bool       `json:"is_all_authority"`
}

// HistoryPage is one page of a token's transaction history.
type HistoryPage struct {
	Transactions []Tx   `json:"transactions"`
	HasMore      bool   `json:"has_more"`
	Cursor       string `json:"cursor"`
}

// Client is a wrapper for the wallet engine's HTTP API.
// To initialize a Client, call SetURL on the zero value.
// It is okay to call methods on Client concurrently.
type Client struct {
	mu   sync.Mutex
	url  *url.URL
	http *http.Client
}

// SetURL sets the base URL of the wallet engine.
func (c *Client) SetURL(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return errors.Wrap(err, "parsing engine url")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = u
	return nil
}

func (c *Client) baseURL() (*url.URL, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.url == nil {
		return nil, errUninitialized
	}
	u := *c.url
	return &u, nil
}

func (c *Client) httpClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		c.http = new(http.Client)
	}
	return c.http
}

// ServerInfo queries the engine for fullnode version and network.
func (c *Client) ServerInfo(ctx context.Context) (*Info, error) {
	var info Info
	err := c.get(ctx, "/v1a/version", nil, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// TokenBalance queries the wallet balance of one token.
func (c *Client) TokenBalance(ctx context.Context, tokenUID string) (Balance, error) {
	var b Balance
	err := c.get(ctx, "/v1a/wallet/balance", url.Values{"token": {tokenUID}}, &b)
	return b, errors.Wrap(err, "fetching balance for", tokenUID)
}

// TokenHistory queries one page of a token's transaction history.
// An empty cursor requests the first page.
func (c *Client) TokenHistory(ctx context.Context, tokenUID, cursor string, count int) (*HistoryPage, error) {
	v := url.Values{"token": {tokenUID}, "count": {strconv.Itoa(count)}}
	if cursor != "" {
		v.Set("cursor", cursor)
	}
	var page HistoryPage
	err := c.get(ctx, "/v1a/wallet/tx_history", v, &page)
	if err != nil {
		return nil, errors.Wrap(err, "fetching history for", tokenUID)
	}
	return &page, nil
}

// Token queries a token's registered identity.
func (c *Client) Token(ctx context.Context, tokenUID string) (*TokenInfo, error) {
	var info TokenInfo
	err := c.get(ctx, "/v1a/thin_wallet/token", url.Values{"id": {tokenUID}}, &info)
	if err != nil {
		return nil, errors.Wrap(err, "fetching token", tokenUID)
	}
	return &info, nil
}

// Proposal fetches an atomic-swap proposal by id. The password
// authenticates the caller to the swap service.
func (c *Client) Proposal(ctx context.Context, id, password string) (json.RawMessage, error) {
	var data json.RawMessage
	err := c.get(ctx, "/api/atomic-swap/proposal/"+url.PathEscape(id),
		url.Values{"password": {password}}, &data)
	if err != nil {
		return nil, errors.Wrap(err, "fetching proposal", id)
	}
	return data, nil
}

// PushProposal sends an updated proposal body to the swap service.
func (c *Client) PushProposal(ctx context.Context, id, password string, data json.RawMessage) error {
	body := struct {
		Password string          `json:"password"`
		Data     json.RawMessage `json:"data"`
	}{password, data}
	return errors.Wrap(c.post(ctx, "/api/atomic-swap/proposal/"+url.PathEscape(id), body, nil),
		"pushing proposal", id)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest interface{}) error {
	u, err := c.baseURL()
	if err != nil {
		return err
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	u, err := c.baseURL()
	if err != nil {
		return err
	}
	u.Path = path
	bits, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(bits))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.WithData(
			errors.Sub(ErrBadStatus, fmt.Errorf("status %s", resp.Status)),
			"url", req.URL.String(),
		)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
