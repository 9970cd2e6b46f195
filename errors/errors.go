// Package errors implements a basic error wrapping scheme.
//
// Errors in this package carry a root error, an optional chain of
// context messages, and an optional bag of structured data.
// The root error is the value to compare against sentinel errors;
// everything else is decoration for logs and API responses.
package errors

import (
	"errors"
	"fmt"
)

// wrapperError satisfies the error interface.
type wrapperError struct {
	msg    string
	detail []string
	data   map[string]interface{}
	root   error
}

// Error satisfies the error interface.
func (e wrapperError) Error() string {
	return e.msg
}

// Unwrap satisfies the stdlib errors.Unwrap contract.
func (e wrapperError) Unwrap() error {
	return e.root
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Root returns the original error that was wrapped by one or more
// calls to Wrap. If e does not wrap other errors, it is returned
// as-is.
func Root(e error) error {
	if wErr, ok := e.(wrapperError); ok {
		return wErr.root
	}
	return e
}

// wrap adds text to the error's message without changing its root.
func (e *wrapperError) wrap(text string) {
	e.msg = text + ": " + e.msg
}

// Wrap adds a context message to err. The returned error has the
// same root as err. Each argument in a is converted to a string and
// joined with spaces; a nil err yields nil.
func Wrap(err error, a ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(a) == 0 {
		return err
	}
	return wrapf(err, "%s", fmt.Sprint(a...))
}

// Wrapf is like Wrap, with formatting.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return wrapf(err, format, a...)
}

func wrapf(err error, format string, a ...interface{}) error {
	werr, ok := err.(wrapperError)
	if !ok {
		werr.root = err
		werr.msg = err.Error()
	}
	werr.wrap(fmt.Sprintf(format, a...))
	return werr
}

// Sub returns an error whose root is root and whose message and data
// come from err. Use it to attribute an underlying failure to a
// sentinel error without losing the underlying detail:
//
//	errors.Sub(ErrUnmarshaling, err)
func Sub(root, err error) error {
	if err == nil {
		return nil
	}
	return wrapperError{
		msg:  err.Error(),
		data: Data(err),
		root: Root(root),
	}
}

// WithData returns an error that wraps err and carries the given
// key-value pairs. keyval must alternate string keys and arbitrary
// values. Data recorded by earlier calls is retained.
func WithData(err error, keyval ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(keyval)%2 != 0 {
		panic("odd-length keyval")
	}
	newData := make(map[string]interface{})
	for k, v := range Data(err) {
		newData[k] = v
	}
	for i := 0; i < len(keyval); i += 2 {
		newData[keyval[i].(string)] = keyval[i+1]
	}
	werr, ok := err.(wrapperError)
	if !ok {
		werr.root = err
		werr.msg = err.Error()
	}
	werr.data = newData
	return werr
}

// Data returns the structured data attached to err by WithData,
// or nil.
func Data(err error) map[string]interface{} {
	werr, ok := err.(wrapperError)
	if !ok {
		return nil
	}
	return werr.data
}
