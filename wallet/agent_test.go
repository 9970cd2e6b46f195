package wallet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ebourg/hathor-wallet/hengine"
	"github.com/ebourg/hathor-wallet/hengine/henginetest"
	"github.com/ebourg/hathor-wallet/hengine/htr"
	"github.com/ebourg/hathor-wallet/wallet/state"
	"github.com/ebourg/hathor-wallet/wallet/status"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "wallet.db"), 0600, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func startTestAgent(t *testing.T, eng Engine) *Agent {
	t.Helper()
	g, err := StartAgent(context.Background(), openTestDB(t), eng)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// waitFor polls cond until it holds or the test deadline expires.
func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newBlockEvent(height uint64, available htr.Amount) *hengine.Event {
	return &hengine.Event{
		Type:          EventNewBlock,
		Height:        height,
		NativeBalance: hengine.Balance{Available: available},
	}
}

func TestDispatchWait(t *testing.T) {
	g := startTestAgent(t, new(henginetest.FakeEngine))
	defer g.CloseWait()

	g.Dispatch(&state.Transition{
		Kind:   state.KindNewTokens,
		Tokens: []state.Token{{UID: "tok1", Name: "Test", Symbol: "TST"}},
		UID:    "tok1",
	})
	g.Wait(waitCtx(t), 1)

	if n := g.UpdateNum(); n != 1 {
		t.Fatalf("UpdateNum() = %d, want 1", n)
	}
	snap := g.Snapshot()
	if _, ok := snap.Tokens["tok1"]; !ok {
		t.Errorf("token tok1 not registered")
	}
	if snap.SelectedToken != "tok1" {
		t.Errorf("SelectedToken = %q, want tok1", snap.SelectedToken)
	}
}

func TestUpdatesJournal(t *testing.T) {
	g := startTestAgent(t, new(henginetest.FakeEngine))
	defer g.CloseWait()

	for _, uid := range []string{"a", "b", "c"} {
		g.Dispatch(&state.Transition{Kind: state.KindTokenFetchBalanceRequested, TokenID: uid})
	}
	g.Wait(waitCtx(t), 3)

	updates := g.Updates(1, 4)
	if len(updates) != 3 {
		t.Fatalf("len(Updates(1, 4)) = %d, want 3", len(updates))
	}
	for i, u := range updates {
		if u.Num != uint64(i+1) {
			t.Errorf("updates[%d].Num = %d, want %d", i, u.Num, i+1)
		}
	}
	if got := updates[1].Transition.TokenID; got != "b" {
		t.Errorf("updates[1].Transition.TokenID = %q, want b", got)
	}

	if got := g.Updates(2, 3); len(got) != 1 || got[0].Num != 2 {
		t.Errorf("Updates(2, 3) = %v, want one update numbered 2", got)
	}
	if got := g.Updates(10, 20); got == nil || len(got) != 0 {
		t.Errorf("Updates(10, 20) = %v, want empty non-nil slice", got)
	}
}

func TestWaitCanceled(t *testing.T) {
	g := startTestAgent(t, new(henginetest.FakeEngine))
	defer g.CloseWait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		g.Wait(ctx, 99)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return on canceled context")
	}
}

func TestSnapshotPersistence(t *testing.T) {
	db := openTestDB(t)
	eng := new(henginetest.FakeEngine)
	g, err := StartAgent(context.Background(), db, eng)
	if err != nil {
		t.Fatal(err)
	}

	g.Dispatch(&state.Transition{
		Kind:   state.KindNewTokens,
		Tokens: []state.Token{{UID: "tok1", Name: "Test", Symbol: "TST"}},
		UID:    "tok1",
	})
	g.Dispatch(&state.Transition{
		Kind:        state.KindTokenFetchBalanceSuccess,
		TokenID:     "tok1",
		BalanceData: &state.Amounts{Available: 150},
	})
	g.Wait(waitCtx(t), 2)
	g.CloseWait()

	g2, err := StartAgent(context.Background(), db, eng)
	if err != nil {
		t.Fatal(err)
	}
	defer g2.CloseWait()

	if n := g2.UpdateNum(); n != 2 {
		t.Errorf("hydrated UpdateNum() = %d, want 2", n)
	}
	snap := g2.Snapshot()
	if _, ok := snap.Tokens["tok1"]; !ok {
		t.Errorf("token tok1 lost across restart")
	}
	b := snap.TokensBalance["tok1"]
	if b.Status != status.Ready || b.Data.Available != 150 {
		t.Errorf("hydrated balance = %v %v, want ready 150", b.Status, b.Data)
	}
	// Hydration must leave no nil collections behind.
	if snap.Proposals == nil || snap.TokensCache == nil {
		t.Errorf("hydrated state has nil maps")
	}
}

func TestUnknownTransitionJournaled(t *testing.T) {
	g := startTestAgent(t, new(henginetest.FakeEngine))
	defer g.CloseWait()

	before := g.Snapshot()
	g.Dispatch(&state.Transition{Kind: "wallet_event_from_the_future"})
	g.Wait(waitCtx(t), 1)

	if n := g.UpdateNum(); n != 1 {
		t.Errorf("UpdateNum() = %d, want 1", n)
	}
	after := g.Snapshot()
	if after.SelectedToken != before.SelectedToken || len(after.Tokens) != len(before.Tokens) {
		t.Errorf("unknown transition changed the state")
	}
}

func TestHandleEventNewBlock(t *testing.T) {
	g := startTestAgent(t, new(henginetest.FakeEngine))
	defer g.CloseWait()

	err := g.HandleEvent(newBlockEvent(7, 300))
	if err != nil {
		t.Fatal(err)
	}
	g.Wait(waitCtx(t), 1)

	snap := g.Snapshot()
	if snap.Height != 7 {
		t.Errorf("Height = %d, want 7", snap.Height)
	}
	b := snap.TokensBalance[state.NativeTokenUID]
	if b.Status != status.Ready || b.Data.Available != 300 {
		t.Errorf("native balance = %v %v, want ready 300", b.Status, b.Data)
	}

	// A repeated block at the same height still journals but must
	// not change the state.
	g.HandleEvent(newBlockEvent(7, 999))
	g.Wait(waitCtx(t), 2)
	if got := g.Snapshot().TokensBalance[state.NativeTokenUID].Data.Available; got != 300 {
		t.Errorf("repeated height changed native balance to %v", got)
	}
}
