package model

// Result pairs the value produced by a successful core operation with
// a human readable message describing what happened.  Failures are
// reported through *Error instead, so a caller always gets exactly one
// of the two.
type Result[T any] struct {
    Value   T
    Message string
}

// OK builds a successful Result.
func OK[T any](v T, msg string) Result[T] {
    return Result[T]{Value: v, Message: msg}
}

// Deletion describes the outcome of a delete or cancel operation.
// Released is the number of tickets handed back to events and Removed
// the number of reservation rows deleted along the way.
type Deletion struct {
    ID       uint64 `json:"id"`
    Released int    `json:"tickets_released"`
    Removed  int    `json:"reservations_removed"`
}
