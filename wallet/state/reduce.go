package state

import "github.com/ebourg/hathor-wallet/wallet/status"

type applyFunc func(State, *Transition) State

var applyFuncs = map[Kind]applyFunc{
	KindHistoryUpdate:      applyHistoryUpdate,
	KindUpdateTx:           applyUpdateTx,
	KindUpdateTokenHistory: applyUpdateTokenHistory,
	KindUpdateHeight:       applyUpdateHeight,

	KindTokenFetchBalanceRequested: applyTokenFetchBalanceRequested,
	KindTokenFetchBalanceSuccess:   applyTokenFetchBalanceSuccess,
	KindTokenFetchBalanceFailed:    applyTokenFetchBalanceFailed,
	KindTokenFetchHistoryRequested: applyTokenFetchHistoryRequested,
	KindTokenFetchHistorySuccess:   applyTokenFetchHistorySuccess,
	KindTokenFetchHistoryFailed:    applyTokenFetchHistoryFailed,
	KindTokenInvalidateBalance:     applyTokenInvalidateBalance,
	KindTokenInvalidateHistory:     applyTokenInvalidateHistory,

	KindProposalFetchRequested:      applyProposalFetchRequested,
	KindProposalFetchSuccess:        applyProposalFetchSuccess,
	KindProposalFetchFailed:         applyProposalFetchFailed,
	KindProposalTokenFetchRequested: applyProposalTokenFetchRequested,
	KindProposalTokenFetchSuccess:   applyProposalTokenFetchSuccess,
	KindProposalTokenFetchFailed:    applyProposalTokenFetchFailed,
	KindProposalUpdated:             applyProposalUpdated,
	KindProposalImported:            applyProposalImported,
	KindProposalRemoved:             applyProposalRemoved,
	KindProposalListUpdated:         applyProposalListUpdated,

	KindNewTokens:          applyNewTokens,
	KindSetNativeTokenData: applySetNativeTokenData,
	KindCleanData:          applyCleanData,

	KindStartWalletRequested: applyStartWalletRequested,
	KindStartWalletSuccess:   applyStartWalletSuccess,
	KindStartWalletFailed:    applyStartWalletFailed,

	KindReload:        applyReload,
	KindPartialUpdate: applyPartialUpdate,
}

// Apply produces the next state for one transition. It is total:
// a transition whose Kind is not in the alphabet returns s
// unchanged, so unknown or future events never break the pipeline.
// Apply performs no I/O and never fails.
func Apply(s State, t *Transition) State {
	f, ok := applyFuncs[t.Kind]
	if !ok {
		return s
	}
	return f(s, t)
}

func applyHistoryUpdate(s State, t *Transition) State {
	u := t.HistoryUpdate
	if u == nil {
		return s
	}
	s.KnownTokens = append([]string(nil), u.AllTokens...)
	s.LastSharedIndex = u.LastSharedIndex
	s.LastSharedAddress = u.LastSharedAddress
	s.AddressesFound = u.AddressesFound
	s.TransactionsFound = u.TransactionsFound
	s.LoadingAddresses = false
	return s
}

func applyUpdateTx(s State, t *Transition) State {
	u := t.TxUpdate
	if u == nil {
		return s
	}
	if len(u.Balances) > 0 {
		histories := cloneMap(s.TokensHistory)
		for uid, tb := range u.Balances {
			h, ok := histories[uid]
			if !ok {
				// History never fetched for this token; nothing to
				// reconcile. The balance below still updates.
				continue
			}
			h.Data = mergeTx(h.Data, TxHistoryEntry{
				TxID:           u.TxID,
				Timestamp:      u.Timestamp,
				TokenUID:       uid,
				Balance:        tb.Delta,
				IsVoided:       u.IsVoided,
				Version:        u.Version,
				IsAllAuthority: tb.IsAllAuthority,
			})
			histories[uid] = h
		}
		s.TokensHistory = histories
	}
	s = replaceBalances(s, u.UpdatedBalances)
	return reselectIfZero(s)
}

// replaceBalances installs the engine's recomputed balances
// wholesale. A balance entity that was never fetched is synthesized
// directly ready.
func replaceBalances(s State, updated map[string]Amounts) State {
	if len(updated) == 0 {
		return s
	}
	balances := cloneMap(s.TokensBalance)
	for uid, amounts := range updated {
		balances[uid] = status.NextData(balances[uid], status.Ready, amounts)
	}
	s.TokensBalance = balances
	return s
}

// reselectIfZero resets the selected token to the native token when
// the selected token's balance has dropped to zero.
func reselectIfZero(s State) State {
	if s.SelectedToken == s.NativeToken.UID {
		return s
	}
	b, ok := s.TokensBalance[s.SelectedToken]
	if ok && b.Data.IsZero() {
		s.SelectedToken = s.NativeToken.UID
	}
	return s
}

func applyUpdateTokenHistory(s State, t *Transition) State {
	histories := cloneMap(s.TokensHistory)
	h := histories[t.TokenID]
	h = status.NextData(h, status.Ready, appendPage(h.Data, t.HistoryData))
	histories[t.TokenID] = h
	s.TokensHistory = histories
	return s
}

func applyUpdateHeight(s State, t *Transition) State {
	u := t.HeightUpdate
	if u == nil || u.Height == s.Height {
		return s
	}
	s.Height = u.Height
	s = replaceBalances(s, map[string]Amounts{s.NativeToken.UID: u.NativeBalance})
	return s
}

func applyTokenFetchBalanceRequested(s State, t *Transition) State {
	return nextBalance(s, t.TokenID, status.Loading, nil)
}

func applyTokenFetchBalanceSuccess(s State, t *Transition) State {
	return nextBalance(s, t.TokenID, status.Ready, t.BalanceData)
}

func applyTokenFetchBalanceFailed(s State, t *Transition) State {
	balances := cloneMap(s.TokensBalance)
	balances[t.TokenID] = status.Fail(balances[t.TokenID])
	s.TokensBalance = balances
	return s
}

func applyTokenInvalidateBalance(s State, t *Transition) State {
	return nextBalance(s, t.TokenID, status.Invalidated, nil)
}

func nextBalance(s State, uid string, next status.Status, data *Amounts) State {
	balances := cloneMap(s.TokensBalance)
	b := balances[uid]
	if data != nil {
		b = status.NextData(b, next, *data)
	} else {
		b = status.Next(b, next)
	}
	balances[uid] = b
	s.TokensBalance = balances
	return s
}

func applyTokenFetchHistoryRequested(s State, t *Transition) State {
	return nextHistory(s, t.TokenID, status.Loading, nil)
}

func applyTokenFetchHistorySuccess(s State, t *Transition) State {
	return nextHistory(s, t.TokenID, status.Ready, t.HistoryData)
}

func applyTokenFetchHistoryFailed(s State, t *Transition) State {
	histories := cloneMap(s.TokensHistory)
	histories[t.TokenID] = status.Fail(histories[t.TokenID])
	s.TokensHistory = histories
	return s
}

func applyTokenInvalidateHistory(s State, t *Transition) State {
	return nextHistory(s, t.TokenID, status.Invalidated, nil)
}

func nextHistory(s State, uid string, next status.Status, data []TxHistoryEntry) State {
	histories := cloneMap(s.TokensHistory)
	h := histories[uid]
	if data != nil {
		h = status.NextData(h, next, data)
	} else {
		h = status.Next(h, next)
	}
	histories[uid] = h
	s.TokensHistory = histories
	return s
}

func applyProposalFetchRequested(s State, t *Transition) State {
	proposals := cloneMap(s.Proposals)
	p := proposals[t.ProposalID]
	p.ID = t.ProposalID
	if t.Password != "" {
		p.Password = t.Password
	}
	p.Entity = status.Next(p.Entity, status.Loading)
	proposals[t.ProposalID] = p
	s.Proposals = proposals
	return s
}

func applyProposalFetchSuccess(s State, t *Transition) State {
	proposals := cloneMap(s.Proposals)
	p := proposals[t.ProposalID]
	p.ID = t.ProposalID
	p.Entity = status.NextData(p.Entity, status.Ready, t.ProposalData)
	p.ErrorMessage = ""
	proposals[t.ProposalID] = p
	s.Proposals = proposals
	return s
}

func applyProposalFetchFailed(s State, t *Transition) State {
	proposals := cloneMap(s.Proposals)
	p := proposals[t.ProposalID]
	p.ID = t.ProposalID
	p.Entity = status.Fail(p.Entity)
	p.ErrorMessage = t.ErrorMessage
	proposals[t.ProposalID] = p
	s.Proposals = proposals
	return s
}

func applyProposalTokenFetchRequested(s State, t *Transition) State {
	cache := cloneMap(s.TokensCache)
	e := cache[t.TokenID]
	e.Entity = status.Next(e.Entity, status.Loading)
	e.Data.UID = t.TokenID
	cache[t.TokenID] = e
	s.TokensCache = cache
	return s
}

func applyProposalTokenFetchSuccess(s State, t *Transition) State {
	if t.TokenData == nil {
		return s
	}
	cache := cloneMap(s.TokensCache)
	e := cache[t.TokenID]
	e.Entity = status.NextData(e.Entity, status.Ready, *t.TokenData)
	e.ErrorMessage = ""
	cache[t.TokenID] = e
	s.TokensCache = cache
	return s
}

func applyProposalTokenFetchFailed(s State, t *Transition) State {
	cache := cloneMap(s.TokensCache)
	e := cache[t.TokenID]
	e.Entity = status.Next(e.Entity, status.Failed)
	e.ErrorMessage = t.ErrorMessage
	cache[t.TokenID] = e
	s.TokensCache = cache
	return s
}

func applyProposalUpdated(s State, t *Transition) State {
	proposals := cloneMap(s.Proposals)
	p := proposals[t.ProposalID]
	p.ID = t.ProposalID
	p.Entity = status.NextData(p.Entity, status.Ready, t.ProposalData)
	proposals[t.ProposalID] = p
	s.Proposals = proposals
	return s
}

func applyProposalImported(s State, t *Transition) State {
	proposals := cloneMap(s.Proposals)
	p := Proposal{ID: t.ProposalID, Password: t.Password}
	p.Entity = status.Next(p.Entity, status.Loading)
	proposals[t.ProposalID] = p
	s.Proposals = proposals
	return s
}

func applyProposalRemoved(s State, t *Transition) State {
	if _, ok := s.Proposals[t.ProposalID]; !ok {
		return s
	}
	proposals := cloneMap(s.Proposals)
	delete(proposals, t.ProposalID)
	s.Proposals = proposals
	return s
}

func applyProposalListUpdated(s State, t *Transition) State {
	proposals := make(map[string]Proposal, len(t.Proposals))
	for id, p := range t.Proposals {
		// The stored password wins when the incoming record omits it.
		if p.Password == "" {
			p.Password = s.Proposals[id].Password
		}
		p.ID = id
		proposals[id] = p
	}
	s.Proposals = proposals
	return s
}

func applyNewTokens(s State, t *Transition) State {
	tokens := cloneMap(s.Tokens)
	for _, tok := range t.Tokens {
		tokens[tok.UID] = tok
	}
	s.Tokens = tokens
	if t.UID != "" {
		s.SelectedToken = t.UID
	}
	return s
}

func applySetNativeTokenData(s State, t *Transition) State {
	if t.TokenData == nil {
		return s
	}
	native := *t.TokenData
	if s.NativeToken == native && s.Tokens[native.UID] == native {
		if e, ok := s.TokensCache[native.UID]; ok && e.Status == status.Ready && e.Data == native {
			return s
		}
	}
	s.NativeToken = native
	tokens := cloneMap(s.Tokens)
	tokens[native.UID] = native
	s.Tokens = tokens
	cache := cloneMap(s.TokensCache)
	cache[native.UID] = TokenCacheEntry{
		Entity: status.Entity[Token]{Status: status.Ready, Data: native},
	}
	s.TokensCache = cache
	return s
}

func applyCleanData(s State, _ *Transition) State {
	next := New()
	next.IsVersionAllowed = s.IsVersionAllowed
	next.LoadingAddresses = s.LoadingAddresses
	next.LedgerWasClosed = s.LedgerWasClosed
	next.FeatureTogglesInitialized = s.FeatureTogglesInitialized
	return next
}

func applyStartWalletRequested(s State, t *Transition) State {
	s.WalletStartState = status.Loading
	s.StartAction = t.StartAction
	return s
}

func applyStartWalletSuccess(s State, t *Transition) State {
	s.WalletStartState = status.Ready
	if t.ServerInfo != nil {
		s.ServerInfo = t.ServerInfo
	}
	// The stored action carries seed words and the PIN; it must not
	// outlive a successful start.
	s.StartAction = nil
	return s
}

func applyStartWalletFailed(s State, _ *Transition) State {
	// StartAction is retained so the start can be retried.
	s.WalletStartState = status.Failed
	return s
}

func applyReload(s State, t *Transition) State {
	if t.Reload == nil {
		return s
	}
	return t.Reload.normalize()
}

func applyPartialUpdate(s State, t *Transition) State {
	u := t.Partial
	if u == nil {
		return s
	}
	if len(u.TokensBalance) > 0 {
		balances := cloneMap(s.TokensBalance)
		for uid, b := range u.TokensBalance {
			balances[uid] = b
		}
		s.TokensBalance = balances
	}
	if len(u.TokensHistory) > 0 {
		histories := cloneMap(s.TokensHistory)
		for uid, h := range u.TokensHistory {
			histories[uid] = h
		}
		s.TokensHistory = histories
	}
	return s
}
