package wallet

import (
	"testing"

	"github.com/ebourg/hathor-wallet/errors"
	"github.com/ebourg/hathor-wallet/hengine"
	"github.com/ebourg/hathor-wallet/hengine/henginetest"
	"github.com/ebourg/hathor-wallet/wallet/state"
	"github.com/ebourg/hathor-wallet/wallet/status"
)

func TestStartWallet(t *testing.T) {
	eng := new(henginetest.FakeEngine)
	eng.PutInfo(hengine.Info{Version: "0.58.0", Network: "mainnet"})
	g := startTestAgent(t, eng)
	defer g.CloseWait()

	g.StartWallet(&state.StartAction{Words: "abandon ability", Pin: "1234"})
	waitFor(t, "wallet started", func() bool {
		return g.Snapshot().WalletStartState == status.Ready
	})

	snap := g.Snapshot()
	if snap.StartAction != nil {
		t.Errorf("StartAction survived a successful start")
	}
	if snap.ServerInfo == nil || snap.ServerInfo.Network != "mainnet" {
		t.Errorf("ServerInfo = %+v, want mainnet", snap.ServerInfo)
	}
}

func TestStartWalletRetry(t *testing.T) {
	eng := new(henginetest.FakeEngine)
	eng.PutInfo(hengine.Info{Version: "0.58.0", Network: "mainnet"})
	eng.SetErr(errors.New("engine down"))
	g := startTestAgent(t, eng)
	defer g.CloseWait()

	g.StartWallet(&state.StartAction{Words: "abandon ability", Pin: "1234"})
	waitFor(t, "start failed", func() bool {
		return g.Snapshot().WalletStartState == status.Failed
	})
	if g.Snapshot().StartAction == nil {
		t.Fatal("StartAction not retained after a failed start")
	}

	eng.SetErr(nil)
	g.RetryStart()
	waitFor(t, "retry succeeded", func() bool {
		return g.Snapshot().WalletStartState == status.Ready
	})
	if g.Snapshot().StartAction != nil {
		t.Errorf("StartAction survived a successful retry")
	}
}

func TestRetryStartNotStarted(t *testing.T) {
	eng := new(henginetest.FakeEngine)
	g := startTestAgent(t, eng)
	defer g.CloseWait()

	err := g.RetryStart()
	if errors.Root(err) != errNotStarted {
		t.Errorf("RetryStart with no stored action = %v, want %v", err, errNotStarted)
	}
}

func TestResetWallet(t *testing.T) {
	eng := new(henginetest.FakeEngine)
	eng.PutToken(hengine.TokenInfo{UID: "tok1", Name: "Test", Symbol: "TST"})
	eng.PutBalance("tok1", hengine.Balance{Available: 150})
	eng.PutHistory("tok1", nil)
	g := startTestAgent(t, eng)
	defer g.CloseWait()

	if err := g.DoRegisterToken("tok1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "token registered", func() bool {
		_, ok := g.Snapshot().Tokens["tok1"]
		return ok
	})

	g.ResetWallet()
	waitFor(t, "state reset", func() bool {
		_, ok := g.Snapshot().Tokens["tok1"]
		return !ok
	})

	snap := g.Snapshot()
	if snap.SelectedToken != state.NativeTokenUID {
		t.Errorf("SelectedToken = %q, want native", snap.SelectedToken)
	}
	if len(snap.TokensBalance) != 0 || len(snap.Proposals) != 0 {
		t.Errorf("reset kept balances or proposals")
	}
}
