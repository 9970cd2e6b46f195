package wallet

import (
	"net/http"

	"github.com/ebourg/hathor-wallet/errors"
)

// Defines errors returned by the agent.
var (
	ErrAuthFailed   = errors.New("authentication failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnmarshaling = errors.New("error unmarshaling input")
	ErrNoPinPrompt  = errors.New("no pin prompt outstanding")

	errBadRequest          = errors.New("bad request")
	errNoPassword          = errors.New("password not set")
	errNoProposalSpecified = errors.New("proposal not specified")
	errNoTokenSpecified    = errors.New("token not specified")
	errNotStarted          = errors.New("wallet not started")
)

// WriteError formats an error with the correct message and status
// from the wallet error formatter and writes the result to w.
func WriteError(req *http.Request, w http.ResponseWriter, err error) {
	errorFormatter.write(req, w, err)
}
