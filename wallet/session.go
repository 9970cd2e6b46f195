package wallet

import (
	"github.com/ebourg/hathor-wallet/errors"
	"github.com/ebourg/hathor-wallet/wallet/log"
	"github.com/ebourg/hathor-wallet/wallet/state"
)

// StartWallet begins a wallet session from the given action. The
// store moves to loading immediately; the session is ready once the
// engine connection is proven. The action is retained for retry on
// failure and cleared on success, since it carries the seed words
// and the PIN.
func (g *Agent) StartWallet(action *state.StartAction) {
	g.Dispatch(&state.Transition{Kind: state.KindStartWalletRequested, StartAction: action})

	g.allez(func() {
		info, err := g.engine.ServerInfo(g.rootCtx)
		if err != nil {
			log.Infof("starting wallet: %s", err)
			g.Dispatch(&state.Transition{Kind: state.KindStartWalletFailed})
			return
		}
		g.Dispatch(&state.Transition{
			Kind:       state.KindStartWalletSuccess,
			ServerInfo: &state.ServerInfo{Version: info.Version, Network: info.Network},
		})
	}, "start wallet")
}

// RetryStart re-runs a failed wallet start with the stored action.
// It fails when no start has been attempted, or the stored action
// was already consumed by a successful start.
func (g *Agent) RetryStart() error {
	action := g.Snapshot().StartAction
	if action == nil {
		return errors.Wrap(errNotStarted, "retry start")
	}
	g.StartWallet(action)
	return nil
}

// ResetWallet performs a full-state reset. The four
// session-independent flags survive; everything else returns to its
// initial value.
func (g *Agent) ResetWallet() {
	g.Dispatch(&state.Transition{Kind: state.KindCleanData})
}
