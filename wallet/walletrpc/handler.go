// Package walletrpc exposes the wallet agent to a local UI over
// HTTP: login, state snapshots, a long-polling update feed, and the
// commands of the sync orchestrator.
package walletrpc

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kr/session"

	"github.com/ebourg/hathor-wallet/errors"
	i10rnet "github.com/ebourg/hathor-wallet/net"
	"github.com/ebourg/hathor-wallet/wallet"
	"github.com/ebourg/hathor-wallet/wallet/state"
)

type handler struct {
	agent *wallet.Agent
	sess  session.Config
}

// Handler returns a handler serving the wallet RPC surface for g.
func Handler(g *wallet.Agent) http.Handler {
	h := &handler{agent: g}
	h.sess.HTTPOnly = true
	h.sess.Secure = true
	h.sess.MaxAge = 14 * 24 * time.Hour

	// NOTE: don't persist the session key across restarts. The user
	// must log in again on startup anyway to supply the wallet PIN,
	// so just generate a fresh session key in memory per process.
	h.sess.Keys = append(h.sess.Keys, genKey())

	mux := new(http.ServeMux)

	mux.HandleFunc("/api/login", h.login)
	mux.Handle("/api/logout", h.auth(h.logout))
	mux.Handle("/api/status", h.auth(h.status))
	mux.Handle("/api/updates", h.auth(h.updates))

	mux.Handle("/api/start-wallet", h.auth(h.startWallet))
	mux.Handle("/api/retry-start", h.auth(h.retryStart))
	mux.Handle("/api/reset", h.auth(h.reset))

	mux.Handle("/api/register-token", h.auth(h.tokenCommand(g.DoRegisterToken)))
	mux.Handle("/api/fetch-balance", h.auth(h.tokenCommand(g.DoFetchBalance)))
	mux.Handle("/api/fetch-history", h.auth(h.tokenCommand(g.DoFetchHistory)))
	mux.Handle("/api/invalidate-balance", h.auth(h.tokenCommand(g.DoInvalidateBalance)))
	mux.Handle("/api/invalidate-history", h.auth(h.tokenCommand(g.DoInvalidateHistory)))

	mux.Handle("/api/import-proposal", h.auth(h.importProposal))
	mux.Handle("/api/fetch-proposal", h.auth(h.fetchProposal))
	mux.Handle("/api/remove-proposal", h.auth(h.removeProposal))
	mux.Handle("/api/update-proposal", h.auth(h.updateProposal))
	mux.Handle("/api/fetch-proposal-token", h.auth(h.tokenCommand(g.DoFetchProposalToken)))

	mux.Handle("/api/pin", h.auth(h.resolvePin))

	return mux
}

func (h *handler) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		err := session.Get(req, &struct{}{}, &h.sess)
		if err != nil {
			wallet.WriteError(req, w, wallet.ErrUnauthorized)
			return
		}
		next(w, req)
	})
}

func (h *handler) login(w http.ResponseWriter, req *http.Request) {
	var v struct{ Password string }
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}
	err = h.agent.Authenticate(v.Password)
	if err != nil {
		wallet.WriteError(req, w, err)
		return
	}
	if i10rnet.IsLoopback(req.Host) {
		h.sess.Secure = false
	}
	h.sess.MaxAge = 14 * 24 * time.Hour
	session.Set(w, &struct{}{}, &h.sess)
}

func (h *handler) logout(w http.ResponseWriter, req *http.Request) {
	h.sess.MaxAge = -1
	session.Set(w, &struct{}{}, &h.sess)
}

func (h *handler) status(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, struct {
		UpdateNum uint64
		State     state.State
	}{h.agent.UpdateNum(), h.agent.Snapshot()})
}

func (h *handler) updates(w http.ResponseWriter, req *http.Request) {
	// Standard long-polling event loop: the client calls
	// /api/updates repeatedly, each time supplying the number of
	// the next update it's waiting for.
	var v struct{ From uint64 }
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}

	// must be lower than the server write timeout
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	h.agent.Wait(ctx, v.From)
	// return max 100 updates at a time
	writeJSON(w, h.agent.Updates(v.From, v.From+100))
}

func (h *handler) startWallet(w http.ResponseWriter, req *http.Request) {
	var v struct{ Words, Pin, Passphrase string }
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}
	h.agent.StartWallet(&state.StartAction{Words: v.Words, Pin: v.Pin, Passphrase: v.Passphrase})
}

func (h *handler) retryStart(w http.ResponseWriter, req *http.Request) {
	err := h.agent.RetryStart()
	if err != nil {
		wallet.WriteError(req, w, err)
	}
}

func (h *handler) reset(w http.ResponseWriter, req *http.Request) {
	h.agent.ResetWallet()
}

func (h *handler) tokenCommand(do func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var v struct{ TokenID string }
		err := json.NewDecoder(req.Body).Decode(&v)
		if err != nil {
			wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
			return
		}
		err = do(v.TokenID)
		if err != nil {
			wallet.WriteError(req, w, err)
		}
	}
}

func (h *handler) importProposal(w http.ResponseWriter, req *http.Request) {
	var v struct{ ProposalID, Password string }
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}
	err = h.agent.DoImportProposal(v.ProposalID, v.Password)
	if err != nil {
		wallet.WriteError(req, w, err)
	}
}

func (h *handler) fetchProposal(w http.ResponseWriter, req *http.Request) {
	var v struct{ ProposalID string }
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}
	err = h.agent.DoFetchProposal(v.ProposalID, "")
	if err != nil {
		wallet.WriteError(req, w, err)
	}
}

func (h *handler) removeProposal(w http.ResponseWriter, req *http.Request) {
	var v struct{ ProposalID string }
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}
	err = h.agent.DoRemoveProposal(v.ProposalID)
	if err != nil {
		wallet.WriteError(req, w, err)
	}
}

func (h *handler) updateProposal(w http.ResponseWriter, req *http.Request) {
	var v struct {
		ProposalID string
		Data       json.RawMessage
	}
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}
	err = h.agent.DoUpdateProposal(v.ProposalID, v.Data)
	if err != nil {
		wallet.WriteError(req, w, err)
	}
}

func (h *handler) resolvePin(w http.ResponseWriter, req *http.Request) {
	var v struct {
		Accepted bool
		Pin      string
	}
	err := json.NewDecoder(req.Body).Decode(&v)
	if err != nil {
		wallet.WriteError(req, w, errors.Sub(wallet.ErrUnmarshaling, err))
		return
	}
	// Resolving an unarmed gate is a caller defect inside the
	// process; over RPC it is just a bad request, including when a
	// concurrent request got there first.
	if !h.agent.PIN.TryResolve(wallet.PinDecision{Accepted: v.Accepted, Pin: v.Pin}) {
		wallet.WriteError(req, w, errors.Wrap(wallet.ErrNoPinPrompt, "resolve pin"))
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func genKey() *[32]byte {
	k := new([32]byte)
	_, err := rand.Read(k[:])
	if err != nil {
		panic(err)
	}
	return k
}
