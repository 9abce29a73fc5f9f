package repository

import "errors"

// ErrNotFound is returned when a row does not exist. Services translate it
// into the appropriate domain error so callers can distinguish a missing
// user from a store failure.
var ErrNotFound = errors.New("not found")
