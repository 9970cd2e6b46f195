package wallet

import (
	"encoding/json"

	"github.com/ebourg/hathor-wallet/errors"
	"github.com/ebourg/hathor-wallet/hengine"
	"github.com/ebourg/hathor-wallet/wallet/log"
	"github.com/ebourg/hathor-wallet/wallet/state"
	"github.com/ebourg/hathor-wallet/wallet/tasks"
)

// historyPageSize is how many transactions one engine history
// request returns.
const historyPageSize = 20

// Epoch bookkeeping for the stale-response discard rule: every key
// (one cached entity) has a counter that is bumped by each new
// request and by each invalidation. A fetch task captures the
// counter at launch and its result is dropped if the counter has
// moved on, so a late READY or FAILED can never resurrect data the
// store has since invalidated or re-requested.

func (g *Agent) bumpEpoch(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.epochs[key]++
	return g.epochs[key]
}

func (g *Agent) staleEpoch(key string, epoch uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epochs[key] != epoch {
		log.Debugf("dropping stale response for %s (epoch %d < %d)", key, epoch, g.epochs[key])
		return true
	}
	return false
}

// DoFetchBalance initiates a balance fetch for one token. The store
// moves to loading immediately; ready or failed follows when the
// engine answers, unless a newer request or an invalidation has
// superseded this one.
func (g *Agent) DoFetchBalance(tokenUID string) error {
	if tokenUID == "" {
		return errors.Wrap(errNoTokenSpecified, "fetch balance")
	}
	key := "balance/" + tokenUID
	epoch := g.bumpEpoch(key)
	g.Dispatch(&state.Transition{Kind: state.KindTokenFetchBalanceRequested, TokenID: tokenUID})

	g.allez(func() {
		b, err := g.engine.TokenBalance(g.rootCtx, tokenUID)
		if g.staleEpoch(key, epoch) {
			return
		}
		if err != nil {
			g.Dispatch(&state.Transition{Kind: state.KindTokenFetchBalanceFailed, TokenID: tokenUID})
			return
		}
		g.Dispatch(&state.Transition{
			Kind:        state.KindTokenFetchBalanceSuccess,
			TokenID:     tokenUID,
			BalanceData: &state.Amounts{Available: b.Available, Locked: b.Locked},
		})
	}, "fetch balance "+tokenUID)
	return nil
}

// DoFetchHistory initiates a history fetch for one token. The first
// page lands as the fetch result; later pages are appended through
// update_token_history transitions.
func (g *Agent) DoFetchHistory(tokenUID string) error {
	if tokenUID == "" {
		return errors.Wrap(errNoTokenSpecified, "fetch history")
	}
	key := "history/" + tokenUID
	epoch := g.bumpEpoch(key)
	g.Dispatch(&state.Transition{Kind: state.KindTokenFetchHistoryRequested, TokenID: tokenUID})

	g.allez(func() {
		cursor := ""
		first := true
		for {
			page, err := g.engine.TokenHistory(g.rootCtx, tokenUID, cursor, historyPageSize)
			if g.staleEpoch(key, epoch) {
				return
			}
			if err != nil {
				if first {
					g.Dispatch(&state.Transition{Kind: state.KindTokenFetchHistoryFailed, TokenID: tokenUID})
				}
				// A later page that fails leaves the loaded prefix
				// in place; the next fetch starts over.
				return
			}
			entries := historyEntries(tokenUID, page.Transactions)
			if first {
				g.Dispatch(&state.Transition{
					Kind:        state.KindTokenFetchHistorySuccess,
					TokenID:     tokenUID,
					HistoryData: entries,
				})
			} else {
				g.Dispatch(&state.Transition{
					Kind:        state.KindUpdateTokenHistory,
					TokenID:     tokenUID,
					HistoryData: entries,
				})
			}
			if !page.HasMore {
				return
			}
			cursor = page.Cursor
			first = false
		}
	}, "fetch history "+tokenUID)
	return nil
}

func historyEntries(tokenUID string, txs []hengine.Tx) []state.TxHistoryEntry {
	entries := make([]state.TxHistoryEntry, 0, len(txs))
	for _, tx := range txs {
		tb := tx.Balances[tokenUID]
		entries = append(entries, state.TxHistoryEntry{
			TxID:           tx.TxID,
			Timestamp:      tx.Timestamp,
			TokenUID:       tokenUID,
			Balance:        tb.Delta,
			IsVoided:       tx.IsVoided,
			Version:        tx.Version,
			IsAllAuthority: tb.IsAllAuthority,
		})
	}
	return entries
}

// DoInvalidateBalance forces a token's balance to invalidated and
// supersedes any in-flight fetch.
func (g *Agent) DoInvalidateBalance(tokenUID string) error {
	if tokenUID == "" {
		return errors.Wrap(errNoTokenSpecified, "invalidate balance")
	}
	g.bumpEpoch("balance/" + tokenUID)
	g.Dispatch(&state.Transition{Kind: state.KindTokenInvalidateBalance, TokenID: tokenUID})
	return nil
}

// DoInvalidateHistory forces a token's history to invalidated and
// supersedes any in-flight fetch.
func (g *Agent) DoInvalidateHistory(tokenUID string) error {
	if tokenUID == "" {
		return errors.Wrap(errNoTokenSpecified, "invalidate history")
	}
	g.bumpEpoch("history/" + tokenUID)
	g.Dispatch(&state.Transition{Kind: state.KindTokenInvalidateHistory, TokenID: tokenUID})
	return nil
}

// DoRegisterToken resolves a token uid against the engine,
// registers and selects it, and kicks off its balance and history
// fetches.
func (g *Agent) DoRegisterToken(tokenUID string) error {
	if tokenUID == "" {
		return errors.Wrap(errNoTokenSpecified, "register token")
	}
	g.allez(func() {
		info, err := g.engine.Token(g.rootCtx, tokenUID)
		if err != nil {
			log.Infof("registering token %s: %s", tokenUID, err)
			return
		}
		g.Dispatch(&state.Transition{
			Kind:   state.KindNewTokens,
			Tokens: []state.Token{{UID: info.UID, Name: info.Name, Symbol: info.Symbol}},
			UID:    info.UID,
		})
		g.DoFetchBalance(tokenUID)
		g.DoFetchHistory(tokenUID)
	}, "register token "+tokenUID)
	return nil
}

// DoFetchProposal initiates a proposal fetch. password may be empty
// on a refresh; the stored password is used then.
func (g *Agent) DoFetchProposal(id, password string) error {
	if id == "" {
		return errors.Wrap(errNoProposalSpecified, "fetch proposal")
	}
	key := "proposal/" + id
	epoch := g.bumpEpoch(key)
	g.Dispatch(&state.Transition{
		Kind:       state.KindProposalFetchRequested,
		ProposalID: id,
		Password:   password,
	})

	if password == "" {
		password = g.Snapshot().Proposals[id].Password
	}
	pw := password
	g.allez(func() {
		data, err := g.engine.Proposal(g.rootCtx, id, pw)
		if g.staleEpoch(key, epoch) {
			return
		}
		if err != nil {
			g.Dispatch(&state.Transition{
				Kind:         state.KindProposalFetchFailed,
				ProposalID:   id,
				ErrorMessage: err.Error(),
			})
			return
		}
		g.Dispatch(&state.Transition{
			Kind:         state.KindProposalFetchSuccess,
			ProposalID:   id,
			ProposalData: data,
		})
	}, "fetch proposal "+id)
	return nil
}

// DoImportProposal registers a proposal known only by id and
// password, then fetches it.
func (g *Agent) DoImportProposal(id, password string) error {
	if id == "" {
		return errors.Wrap(errNoProposalSpecified, "import proposal")
	}
	if password == "" {
		return errors.Wrap(errNoPassword, "import proposal")
	}
	g.Dispatch(&state.Transition{Kind: state.KindProposalImported, ProposalID: id, Password: password})
	return g.DoFetchProposal(id, password)
}

// DoRemoveProposal removes a proposal from the store and supersedes
// any fetch still in flight for it.
func (g *Agent) DoRemoveProposal(id string) error {
	if id == "" {
		return errors.Wrap(errNoProposalSpecified, "remove proposal")
	}
	g.bumpEpoch("proposal/" + id)
	g.Dispatch(&state.Transition{Kind: state.KindProposalRemoved, ProposalID: id})
	return nil
}

// DoFetchProposalToken resolves a token uid referenced by a
// proposal into the token cache.
func (g *Agent) DoFetchProposalToken(tokenUID string) error {
	if tokenUID == "" {
		return errors.Wrap(errNoTokenSpecified, "fetch proposal token")
	}
	key := "ptoken/" + tokenUID
	epoch := g.bumpEpoch(key)
	g.Dispatch(&state.Transition{Kind: state.KindProposalTokenFetchRequested, TokenID: tokenUID})

	g.allez(func() {
		info, err := g.engine.Token(g.rootCtx, tokenUID)
		if g.staleEpoch(key, epoch) {
			return
		}
		if err != nil {
			g.Dispatch(&state.Transition{
				Kind:         state.KindProposalTokenFetchFailed,
				TokenID:      tokenUID,
				ErrorMessage: err.Error(),
			})
			return
		}
		g.Dispatch(&state.Transition{
			Kind:      state.KindProposalTokenFetchSuccess,
			TokenID:   tokenUID,
			TokenData: &state.Token{UID: info.UID, Name: info.Name, Symbol: info.Symbol},
		})
	}, "fetch proposal token "+tokenUID)
	return nil
}

// DoUpdateProposal records a locally produced proposal update and
// queues its delivery to the swap service. The update is gated on a
// PIN confirmation: the UI must resolve the agent's PIN gate before
// anything is dispatched. A declined confirmation drops the update.
func (g *Agent) DoUpdateProposal(id string, data json.RawMessage) error {
	if id == "" {
		return errors.Wrap(errNoProposalSpecified, "update proposal")
	}
	if _, ok := g.Snapshot().Proposals[id]; !ok {
		return errors.Wrapf(errBadRequest, "unknown proposal %s", id)
	}
	decision := g.PIN.Arm()
	g.allez(func() {
		select {
		case <-g.rootCtx.Done():
			return
		case d := <-decision:
			if !d.Accepted {
				log.Debugf("proposal %s update declined", id)
				return
			}
			g.Dispatch(&state.Transition{
				Kind:         state.KindProposalUpdated,
				ProposalID:   id,
				ProposalData: data,
			})
			err := g.tb.Add(tasks.Push{
				ProposalID: id,
				Password:   g.Snapshot().Proposals[id].Password,
				Data:       data,
			})
			if err != nil {
				log.Infof("queueing proposal %s push: %s", id, err)
			}
		}
	}, "update proposal "+id)
	return nil
}
