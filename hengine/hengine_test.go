package hengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ebourg/hathor-wallet/errors"
)

func testServer(t *testing.T, routes map[string]interface{}) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		v, ok := routes[req.URL.Path]
		if !ok {
			w.WriteHeader(404)
			return
		}
		json.NewEncoder(w).Encode(v)
	}))
	t.Cleanup(srv.Close)

	c := new(Client)
	err := c.SetURL(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestServerInfo(t *testing.T) {
	c := testServer(t, map[string]interface{}{
		"/v1a/version": Info{Version: "0.58.0", Network: "mainnet"},
	})
	info, err := c.ServerInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != "0.58.0" || info.Network != "mainnet" {
		t.Errorf("info = %+v", info)
	}
}

func TestTokenBalance(t *testing.T) {
	c := testServer(t, map[string]interface{}{
		"/v1a/wallet/balance": Balance{Available: 150, Locked: 50},
	})
	b, err := c.TokenBalance(context.Background(), "tok1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Available != 150 || b.Locked != 50 {
		t.Errorf("balance = %+v, want {150 50}", b)
	}
}

func TestTokenHistory(t *testing.T) {
	c := testServer(t, map[string]interface{}{
		"/v1a/wallet/tx_history": HistoryPage{
			Transactions: []Tx{{TxID: "tx1", Timestamp: 5}},
			HasMore:      true,
			Cursor:       "tx1",
		},
	})
	page, err := c.TokenHistory(context.Background(), "tok1", "", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Transactions) != 1 || page.Transactions[0].TxID != "tx1" {
		t.Errorf("page = %+v", page)
	}
	if !page.HasMore || page.Cursor != "tx1" {
		t.Errorf("pagination fields = %v %q", page.HasMore, page.Cursor)
	}
}

func TestBadStatus(t *testing.T) {
	c := testServer(t, nil)
	_, err := c.Token(context.Background(), "tok1")
	if errors.Root(err) != ErrBadStatus {
		t.Errorf("err = %v, want root %v", err, ErrBadStatus)
	}
}

func TestUninitializedClient(t *testing.T) {
	c := new(Client)
	_, err := c.ServerInfo(context.Background())
	if errors.Root(err) != errUninitialized {
		t.Errorf("err = %v, want %v", err, errUninitialized)
	}
}
