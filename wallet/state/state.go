// Package state implements the derived wallet view and the
// transition logic that keeps it in sync with the wallet engine
// and the event feed.
//
// The aggregate State is pure data, designed to be serializable to
// and from JSON. It is never mutated in place: Apply takes a State
// by value and returns a new one, so a reader always observes
// either the old or the new snapshot.
package state

import (
	"encoding/json"

	"github.com/ebourg/hathor-wallet/hengine/htr"
	"github.com/ebourg/hathor-wallet/wallet/status"
)

// NativeTokenUID is the uid of the network's base-currency token.
const NativeTokenUID = "00"

// Token is the registered identity of a token. Immutable once
// created; UID is the identity key.
type Token struct {
	UID    string
	Name   string
	Symbol string
}

// Amounts is a token balance split into spendable and locked parts.
type Amounts struct {
	Available htr.Amount
	Locked    htr.Amount
}

// IsZero reports whether both parts of the balance are zero.
func (a Amounts) IsZero() bool {
	return a.Available == 0 && a.Locked == 0
}

// Balance is a token balance together with its fetch lifecycle,
// keyed by token uid.
type Balance = status.Entity[Amounts]

// History is a token's transaction history together with its fetch
// lifecycle, keyed by token uid. The entry sequence is in arrival
// order and order is preserved across updates.
type History = status.Entity[[]TxHistoryEntry]

// TxHistoryEntry is one transaction as seen by one token.
// Entries are unique by TxID within a history.
type TxHistoryEntry struct {
	TxID           string
	Timestamp      int64
	TokenUID       string
	Balance        htr.Amount
	IsVoided       bool
	Version        int
	IsAllAuthority bool
}

// Proposal is a cross-wallet atomic-swap negotiation, keyed by id.
// Password is retained across transitions that omit it.
type Proposal struct {
	status.Entity[json.RawMessage]
	ID           string
	Password     string
	ErrorMessage string
}

// TokenCacheEntry is the minimal token identity used by proposal
// flows, independent from full Token records.
type TokenCacheEntry struct {
	status.Entity[Token]
	ErrorMessage string
}

// ServerInfo describes the fullnode the wallet engine is connected to.
type ServerInfo struct {
	Version string
	Network string
}

// StartAction is the stored input of a wallet start attempt, kept
// for retry after a failed start. It carries the seed words and the
// PIN, so it is cleared on success and never serialized.
type StartAction struct {
	Words      string `json:"-"`
	Pin        string `json:"-"`
	Passphrase string `json:"-"`
}

// State is the aggregate wallet view. It is the only shared object
// in the system and is replaced, not mutated, on every transition.
type State struct {
	ServerInfo *ServerInfo
	Height     uint64

	NativeToken   Token
	SelectedToken string
	Tokens        map[string]Token
	KnownTokens   []string

	TokensBalance map[string]Balance
	TokensHistory map[string]History
	TokensCache   map[string]TokenCacheEntry
	Proposals     map[string]Proposal

	WalletStartState status.Status
	StartAction      *StartAction

	LastSharedIndex   int
	LastSharedAddress string
	AddressesFound    int
	TransactionsFound int

	// Session-independent flags, the only fields surviving a
	// clean_data reset.
	IsVersionAllowed          bool
	LoadingAddresses          bool
	LedgerWasClosed           bool
	FeatureTogglesInitialized bool
}

// New returns the initial state. The native token is registered
// first, selected, and its cache entry is synthesized directly
// ready.
func New() State {
	native := Token{UID: NativeTokenUID, Name: "Hathor", Symbol: "HTR"}
	return State{
		NativeToken:   native,
		SelectedToken: native.UID,
		Tokens:        map[string]Token{native.UID: native},
		TokensBalance: make(map[string]Balance),
		TokensHistory: make(map[string]History),
		TokensCache: map[string]TokenCacheEntry{
			native.UID: {Entity: status.Entity[Token]{Status: status.Ready, Data: native}},
		},
		Proposals: make(map[string]Proposal),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// normalize initializes any nil collection so apply functions can
// assume the maps exist. Used when hydrating a serialized snapshot.
func (s State) normalize() State {
	if s.Tokens == nil {
		s.Tokens = make(map[string]Token)
	}
	if s.TokensBalance == nil {
		s.TokensBalance = make(map[string]Balance)
	}
	if s.TokensHistory == nil {
		s.TokensHistory = make(map[string]History)
	}
	if s.TokensCache == nil {
		s.TokensCache = make(map[string]TokenCacheEntry)
	}
	if s.Proposals == nil {
		s.Proposals = make(map[string]Proposal)
	}
	return s
}
