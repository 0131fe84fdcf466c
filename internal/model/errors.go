package model

import (
	"errors"
	"fmt"
)

// Kind classifies errors that cross the engine boundary.
type Kind string

const (
	KindStorageUnavailable Kind = "StorageUnavailable"
	KindInvalidConfig      Kind = "InvalidConfig"
	KindBrowserUnavailable Kind = "BrowserUnavailable"
	KindUnknownBrowser     Kind = "UnknownBrowser"
	KindInvalidArgument    Kind = "InvalidArgument"
	KindUnknownCommand     Kind = "UnknownCommand"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrInvalidConfig      = &Error{Kind: KindInvalidConfig}
	ErrBrowserUnavailable = &Error{Kind: KindBrowserUnavailable}
	ErrUnknownBrowser     = &Error{Kind: KindUnknownBrowser}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrUnknownCommand     = &Error{Kind: KindUnknownCommand}
)

// Error carries a Kind, the failing operation, and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around cause.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
