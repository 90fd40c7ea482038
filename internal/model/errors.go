package model

import (
    "errors"
    "fmt"
)

// Kind classifies failures returned by the core operations.  The
// transport layer maps each kind to a status code.
type Kind int

const (
    KindNotFound Kind = iota + 1
    KindInvalidQuantity
    KindInsufficientInventory
    KindInvalidInput
    KindStorageFailure
)

func (k Kind) String() string {
    switch k {
    case KindNotFound:
        return "not_found"
    case KindInvalidQuantity:
        return "invalid_quantity"
    case KindInsufficientInventory:
        return "insufficient_inventory"
    case KindInvalidInput:
        return "invalid_input"
    case KindStorageFailure:
        return "storage_failure"
    default:
        return "unknown"
    }
}

// Error is the typed failure returned by the ledger and the services.
// Message is safe to show to clients; Err keeps the underlying cause
// (usually a database error) for logs.
type Error struct {
    Kind    Kind
    Message string
    Err     error
}

func (e *Error) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
    }
    return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so the
// sentinels below work with errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
    t, ok := target.(*Error)
    return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
    ErrNotFound              = &Error{Kind: KindNotFound, Message: "not found"}
    ErrInvalidQuantity       = &Error{Kind: KindInvalidQuantity, Message: "invalid quantity"}
    ErrInsufficientInventory = &Error{Kind: KindInsufficientInventory, Message: "insufficient inventory"}
    ErrInvalidInput          = &Error{Kind: KindInvalidInput, Message: "invalid input"}
    ErrStorageFailure        = &Error{Kind: KindStorageFailure, Message: "storage failure"}
)

func NotFound(format string, args ...any) *Error {
    return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidQuantity(format string, args ...any) *Error {
    return &Error{Kind: KindInvalidQuantity, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) *Error {
    return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Insufficient reports that requested exceeds the tickets left.
func Insufficient(available, requested int) *Error {
    return &Error{
        Kind:    KindInsufficientInventory,
        Message: fmt.Sprintf("Only %d tickets available, requested %d.", available, requested),
    }
}

// Storage wraps an unexpected database error.  An err that is already
// an *Error is returned unchanged so domain failures raised inside a
// transaction keep their kind.
func Storage(msg string, err error) *Error {
    var e *Error
    if errors.As(err, &e) {
        return e
    }
    return &Error{Kind: KindStorageFailure, Message: msg, Err: err}
}

// KindOf extracts the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
    var e *Error
    if errors.As(err, &e) {
        return e.Kind
    }
    return 0
}
