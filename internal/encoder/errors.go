package encoder

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition is returned when the caller breaks the delivery contract:
	// boundaries out of order, a change outside a transaction, a missing row image
	// or a row that does not match its relation. It terminates the session.
	ErrPrecondition = errors.New("precondition violation")

	// ErrResourceExhausted is returned when a record does not fit in the scratch arena.
	// It terminates the session and nothing is written for the record.
	ErrResourceExhausted = errors.New("scratch arena exhausted")

	// ErrClosed is returned for calls made after Close
	ErrClosed = errors.New("encoder closed")
)

func errRecordTooLarge(n, limit int) error {
	return fmt.Errorf("%w: record of %d bytes exceeds limit of %d", ErrResourceExhausted, n, limit)
}
