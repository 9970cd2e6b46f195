// Package wallet exposes the synchronization state store of a
// Hathor wallet: a consistent, derived view of balances, histories,
// swap proposals, and token metadata, kept in sync with the wallet
// engine and its live event feed.
package wallet

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ebourg/hathor-wallet/errors"
	"github.com/ebourg/hathor-wallet/hengine"
	"github.com/ebourg/hathor-wallet/wallet/log"
	"github.com/ebourg/hathor-wallet/wallet/state"
	"github.com/ebourg/hathor-wallet/wallet/tasks"
)

// Engine is the subset of the wallet engine the agent needs.
// *hengine.Client implements it; henginetest.FakeEngine is a test
// double.
type Engine interface {
	ServerInfo(ctx context.Context) (*hengine.Info, error)
	TokenBalance(ctx context.Context, tokenUID string) (hengine.Balance, error)
	TokenHistory(ctx context.Context, tokenUID, cursor string, count int) (*hengine.HistoryPage, error)
	Token(ctx context.Context, tokenUID string) (*hengine.TokenInfo, error)
	Proposal(ctx context.Context, id, password string) (json.RawMessage, error)
	PushProposal(ctx context.Context, id, password string, data json.RawMessage) error
}

// An Agent maintains the wallet's derived state on behalf of a UI.
// Its methods are safe to call concurrently. Methods 'Do*' initiate
// fetches against the wallet engine.
//
// An Agent serializes all state changes: transitions are applied
// one at a time, in arrival order, by a single goroutine, and each
// produces a replacement snapshot. Every applied transition is
// recorded as a numbered Update; methods Wait and Updates provide
// synchronization and access (respectively) for updates.
type Agent struct {
	evcond sync.Cond

	// This is the root context object, derived from the context
	// passed to StartAgent. It bounds every fetch task.
	rootCtx    context.Context
	rootCancel context.CancelFunc

	engine Engine
	db     *bolt.DB
	wg     *sync.WaitGroup

	// PIN holds the one-shot PIN confirmation gate bridging the UI
	// and a waiting task.
	PIN PinGate

	tb *tasks.Queue

	ch chan *state.Transition

	mu        sync.Mutex // guards the fields below
	snapshot  state.State
	updateNum uint64
	recent    []*Update // ring of the most recent updates
	epochs    map[string]uint64
}

// An Update records one applied transition, numbered in a
// contiguous sequence: 1, 2, 3, etc.
type Update struct {
	Num        uint64
	Time       time.Time
	Transition *state.Transition
}

// recentCap bounds the in-memory update journal. A UI that falls
// further behind than this must resync from the snapshot.
const recentCap = 1024

const (
	walletBucket = "wallet"
	snapshotKey  = "snapshot"
	updateNumKey = "updatenum"
)

// StartAgent hydrates an agent from the bucket "wallet" in db,
// starts its transition loop, and returns it.
func StartAgent(ctx context.Context, boltDB *bolt.DB, engine Engine) (*Agent, error) {
	ctx, cancel := context.WithCancel(ctx)

	g := &Agent{
		rootCtx:    ctx,
		rootCancel: cancel,
		engine:     engine,
		db:         boltDB,
		wg:         new(sync.WaitGroup),
		ch:         make(chan *state.Transition),
		snapshot:   state.New(),
		epochs:     make(map[string]uint64),
	}
	g.evcond.L = new(sync.Mutex)

	snap, num, err := loadSnapshot(boltDB)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		g.snapshot = state.Apply(g.snapshot, &state.Transition{Kind: state.KindReload, Reload: snap})
		g.updateNum = num
	}

	tb, err := tasks.New(ctx, boltDB, engine)
	if err != nil {
		return nil, err
	}
	g.tb = tb

	g.allez(func() { g.loop() }, "transition loop")
	g.allez(func() { g.tb.Run(ctx) }, "push queue")

	return g, nil
}

// Close releases resources associated with the Agent.
// It does not wait for its subordinate goroutines to exit.
func (g *Agent) Close() {
	g.rootCancel()
}

// CloseWait releases resources associated with the Agent.
// It waits for its subordinate goroutines to exit.
func (g *Agent) CloseWait() {
	g.Close()
	g.wg.Wait()
}

// allez launches f as a goroutine, tracking it in the agent's WaitGroup.
func (g *Agent) allez(f func(), desc string) {
	g.wg.Add(1)
	go func() {
		log.Debugf("%s starting", desc)
		f()
		log.Debugf("%s finished", desc)
		g.wg.Done()
	}()
}

// Dispatch submits one transition to the store. It returns before
// the transition is applied; use Wait to observe the result.
// Dispatch never rejects a transition: unknown kinds are applied as
// no-ops by the reducer.
func (g *Agent) Dispatch(t *state.Transition) {
	select {
	case g.ch <- t:
	case <-g.rootCtx.Done():
	}
}

// loop is the store's single writer. Each transition receives the
// latest snapshot and returns a new one; no other goroutine ever
// writes the snapshot.
func (g *Agent) loop() {
	for {
		select {
		case <-g.rootCtx.Done():
			return
		case t := <-g.ch:
			g.apply(t)
		}
	}
}

func (g *Agent) apply(t *state.Transition) {
	g.mu.Lock()
	next := state.Apply(g.snapshot, t)
	g.snapshot = next
	g.updateNum++
	u := &Update{Num: g.updateNum, Time: time.Now(), Transition: t}
	g.recent = append(g.recent, u)
	if len(g.recent) > recentCap {
		g.recent = g.recent[len(g.recent)-recentCap:]
	}
	num := g.updateNum
	g.mu.Unlock()

	err := saveSnapshot(g.db, next, num)
	if err != nil {
		// The in-memory store stays authoritative; a failed save
		// only costs hydration freshness after a restart.
		log.Infof("saving snapshot %d: %s", num, err)
	}

	if b, err := json.Marshal(t); err == nil {
		log.Debugf("applied %d %s %s", num, t.Kind, b)
	}

	g.evcond.L.Lock()
	g.evcond.Broadcast()
	g.evcond.L.Unlock()
}

// Snapshot returns the current state. The returned value is a
// snapshot; it never changes after being returned.
func (g *Agent) Snapshot() state.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot
}

// UpdateNum returns the number of the latest applied update.
func (g *Agent) UpdateNum() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updateNum
}

// Wait returns after an update numbered i or later has been
// applied, or the ctx becomes done, whichever happens first.
func (g *Agent) Wait(ctx context.Context, i uint64) {
	go func() {
		<-ctx.Done()
		g.evcond.L.Lock()
		g.evcond.Broadcast()
		g.evcond.L.Unlock()
	}()
	g.evcond.L.Lock()
	defer g.evcond.L.Unlock()
	for g.UpdateNum() < i && ctx.Err() == nil {
		g.evcond.Wait()
	}
}

// Updates returns the retained updates in the half-open interval
// [a, b). The returned slice will have length less than b-a if a or
// b is out of range or has been evicted from the journal.
func (g *Agent) Updates(a, b uint64) []*Update {
	updates := make([]*Update, 0) // we want json "[]" not "null"
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, u := range g.recent {
		if u.Num >= a && u.Num < b {
			updates = append(updates, u)
		}
	}
	return updates
}

func loadSnapshot(db *bolt.DB) (*state.State, uint64, error) {
	var (
		snap *state.State
		num  uint64
	)
	err := db.View(func(tx *bolt.Tx) error {
		bu := tx.Bucket([]byte(walletBucket))
		if bu == nil {
			return nil
		}
		bits := bu.Get([]byte(snapshotKey))
		if bits == nil {
			return nil
		}
		snap = new(state.State)
		err := json.Unmarshal(bits, snap)
		if err != nil {
			return errors.Wrap(err, "decoding snapshot")
		}
		if nb := bu.Get([]byte(updateNumKey)); len(nb) == 8 {
			num = binary.BigEndian.Uint64(nb)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return snap, num, nil
}

func saveSnapshot(db *bolt.DB, s state.State, num uint64) error {
	bits, err := json.Marshal(s)
	if err != nil {
		return err
	}
	nb := make([]byte, 8)
	binary.BigEndian.PutUint64(nb, num)
	return db.Update(func(tx *bolt.Tx) error {
		bu, err := tx.CreateBucketIfNotExists([]byte(walletBucket))
		if err != nil {
			return err
		}
		err = bu.Put([]byte(snapshotKey), bits)
		if err != nil {
			return err
		}
		return bu.Put([]byte(updateNumKey), nb)
	})
}
