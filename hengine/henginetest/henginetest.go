// Package henginetest provides an in-memory wallet engine for tests.
package henginetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ebourg/hathor-wallet/errors"
	"github.com/ebourg/hathor-wallet/hengine"
)

// ErrNotFound is returned for keys the fake has no fixture for.
var ErrNotFound = errors.New("henginetest: not found")

// FakeEngine serves canned responses. The zero value is ready to
// use; populate the maps with Put* methods. It is safe for
// concurrent use.
type FakeEngine struct {
	mu        sync.Mutex
	info      hengine.Info
	balances  map[string]hengine.Balance
	histories map[string][]hengine.Tx
	tokens    map[string]hengine.TokenInfo
	proposals map[string]json.RawMessage
	pushed    []string

	// Err, when set, is returned by every query.
	Err error

	// Gate, when set, is received from before every query returns,
	// letting tests control fetch-completion order.
	Gate chan struct{}
}

func (f *FakeEngine) PutInfo(info hengine.Info) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = info
}

// SetErr sets the error returned by every query; nil clears it.
func (f *FakeEngine) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

func (f *FakeEngine) PutBalance(uid string, b hengine.Balance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances == nil {
		f.balances = make(map[string]hengine.Balance)
	}
	f.balances[uid] = b
}

func (f *FakeEngine) PutHistory(uid string, txs []hengine.Tx) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.histories == nil {
		f.histories = make(map[string][]hengine.Tx)
	}
	f.histories[uid] = txs
}

func (f *FakeEngine) PutToken(info hengine.TokenInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = make(map[string]hengine.TokenInfo)
	}
	f.tokens[info.UID] = info
}

func (f *FakeEngine) PutProposal(id string, data json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.proposals == nil {
		f.proposals = make(map[string]json.RawMessage)
	}
	f.proposals[id] = data
}

// Pushed returns the ids of proposals pushed via PushProposal.
func (f *FakeEngine) Pushed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pushed...)
}

func (f *FakeEngine) gate(ctx context.Context) error {
	f.mu.Lock()
	gate, err := f.Gate, f.Err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *FakeEngine) ServerInfo(ctx context.Context) (*hengine.Info, error) {
	if err := f.gate(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.info
	return &info, nil
}

func (f *FakeEngine) TokenBalance(ctx context.Context, uid string) (hengine.Balance, error) {
	if err := f.gate(ctx); err != nil {
		return hengine.Balance{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[uid]
	if !ok {
		return hengine.Balance{}, errors.Wrap(ErrNotFound, "balance", uid)
	}
	return b, nil
}

func (f *FakeEngine) TokenHistory(ctx context.Context, uid, cursor string, count int) (*hengine.HistoryPage, error) {
	if err := f.gate(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	txs, ok := f.histories[uid]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "history", uid)
	}
	return &hengine.HistoryPage{Transactions: txs}, nil
}

func (f *FakeEngine) Token(ctx context.Context, uid string) (*hengine.TokenInfo, error) {
	if err := f.gate(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.tokens[uid]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "token", uid)
	}
	return &info, nil
}

func (f *FakeEngine) Proposal(ctx context.Context, id, password string) (json.RawMessage, error) {
	if err := f.gate(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.proposals[id]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "proposal", id)
	}
	return data, nil
}

func (f *FakeEngine) PushProposal(ctx context.Context, id, password string, data json.RawMessage) error {
	if err := f.gate(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, id)
	if f.proposals == nil {
		f.proposals = make(map[string]json.RawMessage)
	}
	f.proposals[id] = data
	return nil
}
