// Copyright 2024-2026 Aiku AI

package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedContent is returned when an inbound payload kind is
	// not one of the supported set. No sends are attempted.
	ErrUnsupportedContent = errors.New("unsupported content kind")

	// ErrNoOperatorAvailable is returned when every send in a fan-out
	// failed, or no operators are configured. Surfaced to the sender as a
	// retry-later notice.
	ErrNoOperatorAvailable = errors.New("no operator available")

	// ErrNotFound is returned when an operator reply cannot be correlated
	// to an origin. Reportable to the operator, not fatal.
	ErrNotFound = errors.New("original message not found")

	// ErrPersistence is returned when the correlation store is
	// unavailable. Surfaced as a generic failure to the caller.
	ErrPersistence = errors.New("correlation store unavailable")
)

// TransportError wraps a single failed send attempt. During fan-out these
// are logged per operator and do not abort sends to the remaining ones.
type TransportError struct {
	Destination int64
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send to %d failed: %v", e.Destination, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
