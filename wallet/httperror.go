package wallet

import (
	"encoding/json"
	"net/http"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/ebourg/hathor-wallet/errors"
	"github.com/ebourg/hathor-wallet/hengine"
	"github.com/ebourg/hathor-wallet/wallet/log"
)

// response contains a set of error codes to send to the user.
type response struct {
	HTTPStatus int    `json:"-"`
	Message    string `json:"message"`
	Retriable  bool   `json:"retriable"`
}

type formatter struct {
	Default response
	Errors  map[error]response
}

// errorFormatter takes error objects and formats them to be HTTP
// error responses with the correct status code and message set.
var errorFormatter formatter

func init() {
	errorFormatter.Default = response{
		HTTPStatus: 500,
		Message:    "wallet internal server error",
		Retriable:  true,
	}
	errorFormatter.Errors = make(map[error]response)

	// Handler errors
	errorFormatter.add(ErrUnauthorized, 401, "invalid session cookie", true)
	errorFormatter.add(ErrAuthFailed, 401, "invalid login", false)
	errorFormatter.add(ErrUnmarshaling, 400, "invalid input", false)
	errorFormatter.add(ErrNoPinPrompt, 400, "no pin prompt outstanding", false)

	// Commands
	errorFormatter.add(errBadRequest, 400, "bad request", false)
	errorFormatter.add(errNoTokenSpecified, 400, "no token specified", false)
	errorFormatter.add(errNoProposalSpecified, 400, "no proposal specified", false)
	errorFormatter.add(errNoPassword, 400, "no password specified", false)
	errorFormatter.add(errNotStarted, 400, "wallet not started", true)

	// Engine errors
	errorFormatter.add(hengine.ErrBadStatus, 502, "bad engine response", true)
}

func (f *formatter) write(req *http.Request, w http.ResponseWriter, err error) {
	f.log(req, err)

	resp := f.format(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.HTTPStatus)
	json.NewEncoder(w).Encode(resp)
}

func (f *formatter) format(err error) response {
	root := errors.Root(err)

	resp, ok := f.Errors[root]
	if !ok {
		resp = f.Default
	}
	return resp
}

func (f *formatter) add(key error, httpStatus int, msg string, retry bool) {
	f.Errors[key] = response{
		HTTPStatus: httpStatus,
		Message:    msg,
		Retriable:  retry,
	}
}

func (f *formatter) log(req *http.Request, err error) {
	var errorMessage string
	if err != nil {
		errorMessage = err.Error()
	}
	if span, ok := tracer.SpanFromContext(req.Context()); ok {
		span.SetTag("error.msg", errorMessage)
	}
	log.Debugf("request to %s returned error %s", req.URL.Path, errorMessage)
}
