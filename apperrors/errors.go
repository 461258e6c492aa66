// Package apperrors defines the error taxonomy of the scraper: transport
// failures, unparseable upstream content, storage failures and bad config.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error
type Kind string

const (
	KindFetch   Kind = "FETCH"
	KindParse   Kind = "PARSE"
	KindStorage Kind = "STORAGE"
	KindConfig  Kind = "CONFIG"
)

// Sentinels for errors.Is checks against the kind of an *Error.
var (
	ErrFetch   = &Error{Kind: KindFetch}
	ErrParse   = &Error{Kind: KindParse}
	ErrStorage = &Error{Kind: KindStorage}
	ErrConfig  = &Error{Kind: KindConfig}
)

// Error is a classified failure with the operation and resource it concerns.
type Error struct {
	Kind    Kind
	Op      string
	URL     string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s]", e.Kind)
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" (url=%s)", e.URL)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.URL == "" && t.Message == "" && t.Cause == nil
}

// NewFetchError creates a transport or HTTP status error for url
func NewFetchError(url string, cause error) *Error {
	return &Error{Kind: KindFetch, Op: "fetch", URL: url, Cause: cause}
}

// NewParseError creates an error for content that could not be interpreted
func NewParseError(op, url, message string, cause error) *Error {
	return &Error{Kind: KindParse, Op: op, URL: url, Message: message, Cause: cause}
}

// NewStorageError creates an error for a payload that could not be persisted
func NewStorageError(name string, cause error) *Error {
	return &Error{Kind: KindStorage, Op: "store", Message: name, Cause: cause}
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *Error {
	return &Error{Kind: KindConfig, Op: "config", Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
