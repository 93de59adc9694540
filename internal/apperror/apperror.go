// Package apperror defines the error taxonomy of the service.
//
// Three kinds exist:
//   - KindInvalidInput: malformed client request; aborts the whole request.
//   - KindUpstream: the MOEX ISS call for one ticker failed; contained per ticker.
//   - KindStore: a price-store lookup or write failed; contained per ticker.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindUpstream     Kind = "UPSTREAM"
	KindStore        Kind = "STORE"
)

// Error is a classified error, optionally scoped to one ticker.
type Error struct {
	kind    Kind
	ticker  string
	message string
	cause   error
}

// New builds an Error without a ticker scope.
func New(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// InvalidInput builds a request-validation error.
func InvalidInput(message string) *Error {
	return &Error{kind: KindInvalidInput, message: message}
}

// Upstream builds a per-ticker upstream failure.
func Upstream(ticker string, cause error) *Error {
	return &Error{kind: KindUpstream, ticker: ticker, message: "upstream fetch failed", cause: cause}
}

// Store builds a per-ticker storage failure.
func Store(ticker string, cause error) *Error {
	return &Error{kind: KindStore, ticker: ticker, message: "price store failed", cause: cause}
}

func (e *Error) Error() string {
	msg := e.message
	if e.ticker != "" {
		msg = fmt.Sprintf("%s: %s", e.ticker, msg)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }
func (e *Error) Kind() Kind    { return e.kind }
func (e *Error) Ticker() string {
	return e.ticker
}

// HTTPStatus maps the error kind to the status code the API surfaces.
func (e *Error) HTTPStatus() int {
	switch e.kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, "" otherwise.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind()
	}
	return ""
}
