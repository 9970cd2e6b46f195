package state

import (
	"encoding/json"

	"github.com/ebourg/hathor-wallet/hengine/htr"
)

// Kind is the type of a transition-identifier constant.
type Kind string

// The transition alphabet. Identifiers outside this set are
// accepted and ignored by Apply.
const (
	KindHistoryUpdate      Kind = "history_update"
	KindUpdateTx           Kind = "update_tx"
	KindUpdateTokenHistory Kind = "update_token_history"
	KindUpdateHeight       Kind = "update_height"

	KindTokenFetchBalanceRequested Kind = "token_fetch_balance_requested"
	KindTokenFetchBalanceSuccess   Kind = "token_fetch_balance_success"
	KindTokenFetchBalanceFailed    Kind = "token_fetch_balance_failed"
	KindTokenFetchHistoryRequested Kind = "token_fetch_history_requested"
	KindTokenFetchHistorySuccess   Kind = "token_fetch_history_success"
	KindTokenFetchHistoryFailed    Kind = "token_fetch_history_failed"
	KindTokenInvalidateBalance     Kind = "token_invalidate_balance"
	KindTokenInvalidateHistory     Kind = "token_invalidate_history"

	KindProposalFetchRequested      Kind = "proposal_fetch_requested"
	KindProposalFetchSuccess        Kind = "proposal_fetch_success"
	KindProposalFetchFailed         Kind = "proposal_fetch_failed"
	KindProposalTokenFetchRequested Kind = "proposal_token_fetch_requested"
	KindProposalTokenFetchSuccess   Kind = "proposal_token_fetch_success"
	KindProposalTokenFetchFailed    Kind = "proposal_token_fetch_failed"
	KindProposalUpdated             Kind = "proposal_updated"
	KindProposalImported            Kind = "proposal_imported"
	KindProposalRemoved             Kind = "proposal_removed"
	KindProposalListUpdated         Kind = "proposal_list_updated"

	KindNewTokens          Kind = "new_tokens"
	KindSetNativeTokenData Kind = "set_native_token_data"
	KindCleanData          Kind = "clean_data"

	KindStartWalletRequested Kind = "start_wallet_requested"
	KindStartWalletSuccess   Kind = "start_wallet_success"
	KindStartWalletFailed    Kind = "start_wallet_failed"

	KindReload        Kind = "reload"
	KindPartialUpdate Kind = "partial_update"
)

// Transition is one input to the reducer. Kind selects the payload
// fields that are meaningful; everything else is ignored. Like the
// State it produces, a Transition is pure data and JSON-serializable.
type Transition struct {
	Kind Kind

	// Entity keys.
	TokenID    string `json:",omitempty"`
	ProposalID string `json:",omitempty"`

	// Fetch results.
	BalanceData  *Amounts         `json:",omitempty"`
	HistoryData  []TxHistoryEntry `json:",omitempty"`
	TokenData    *Token           `json:",omitempty"`
	ProposalData json.RawMessage  `json:",omitempty"`
	Password     string           `json:",omitempty"`
	ErrorMessage string           `json:",omitempty"`

	// Event-feed payloads.
	HistoryUpdate *HistoryUpdate `json:",omitempty"`
	TxUpdate      *TxUpdate      `json:",omitempty"`
	HeightUpdate  *HeightUpdate  `json:",omitempty"`

	// Token registration.
	Tokens []Token `json:",omitempty"`
	UID    string  `json:",omitempty"`

	// Proposal collection replacement.
	Proposals map[string]Proposal `json:",omitempty"`

	// Session lifecycle. ServerInfo rides on start_wallet_success
	// once the engine connection is proven.
	StartAction *StartAction `json:",omitempty"`
	ServerInfo  *ServerInfo  `json:",omitempty"`

	// Hydration payloads.
	Reload  *State         `json:",omitempty"`
	Partial *PartialUpdate `json:",omitempty"`
}

// HistoryUpdate is the payload of a history_update event: the result
// of the engine's address/history scan.
type HistoryUpdate struct {
	AllTokens         []string
	LastSharedIndex   int
	LastSharedAddress string
	AddressesFound    int
	TransactionsFound int
}

// TxUpdate is the payload of an update_tx event: one transaction
// observed on the network, with the engine's freshly recomputed
// balances for every affected token. Balances are authoritative;
// the reducer never sums deltas itself.
type TxUpdate struct {
	TxID      string
	Timestamp int64
	Version   int
	IsVoided  bool

	// Balances holds the per-token view of this transaction,
	// keyed by token uid.
	Balances map[string]TxTokenBalance

	// UpdatedBalances holds the engine's recomputed wallet balance
	// for each affected token, keyed by token uid.
	UpdatedBalances map[string]Amounts
}

// TxTokenBalance is the effect of one transaction on one token.
type TxTokenBalance struct {
	Delta          htr.Amount
	IsAllAuthority bool
}

// HeightUpdate is the payload of an update_height event.
type HeightUpdate struct {
	Height        uint64
	NativeBalance Amounts
}

// PartialUpdate carries partial balance/history maps to merge into
// the aggregate, key-wise; the newer record wins per key.
type PartialUpdate struct {
	TokensBalance map[string]Balance `json:",omitempty"`
	TokensHistory map[string]History `json:",omitempty"`
}
