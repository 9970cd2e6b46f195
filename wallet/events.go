package wallet

import (
	"github.com/ebourg/hathor-wallet/hengine"
	"github.com/ebourg/hathor-wallet/wallet/state"
)

// Event-feed type constants, as sent by the engine.
const (
	EventNewBlock = "network:new_block"
	EventNewTx    = "network:new_tx"
)

// HandleEvent turns one engine feed event into a store transition.
// Unknown event types are ignored. It implements
// hengine.EventHandler and never returns an error.
func (g *Agent) HandleEvent(ev *hengine.Event) error {
	switch ev.Type {
	case EventNewBlock:
		g.Dispatch(&state.Transition{
			Kind: state.KindUpdateHeight,
			HeightUpdate: &state.HeightUpdate{
				Height: ev.Height,
				NativeBalance: state.Amounts{
					Available: ev.NativeBalance.Available,
					Locked:    ev.NativeBalance.Locked,
				},
			},
		})

	case EventNewTx:
		if ev.Tx == nil {
			return nil
		}
		balances := make(map[string]state.TxTokenBalance, len(ev.Tx.Balances))
		for uid, tb := range ev.Tx.Balances {
			balances[uid] = state.TxTokenBalance{Delta: tb.Delta, IsAllAuthority: tb.IsAllAuthority}
		}
		updated := make(map[string]state.Amounts, len(ev.Tx.Updated))
		for uid, b := range ev.Tx.Updated {
			updated[uid] = state.Amounts{Available: b.Available, Locked: b.Locked}
		}
		g.Dispatch(&state.Transition{
			Kind: state.KindUpdateTx,
			TxUpdate: &state.TxUpdate{
				TxID:            ev.Tx.TxID,
				Timestamp:       ev.Tx.Timestamp,
				Version:         ev.Tx.Version,
				IsVoided:        ev.Tx.IsVoided,
				Balances:        balances,
				UpdatedBalances: updated,
			},
		})
	}
	return nil
}
