package calendar

import (
	"errors"
	"fmt"
)

// ErrMalformedEvent marks a single event record that could not be
// normalized. The record is discarded; the error never propagates past
// the normalizer's caller.
var ErrMalformedEvent = errors.New("malformed calendar event")

// ErrRoomNotFound is returned when the directory has no room with the
// requested identifier.
var ErrRoomNotFound = errors.New("room not found")

// RemoteAPIError is a non-success HTTP response from the calendar API.
// It is recovered by trying the next fetch strategy or returning an
// empty result set.
type RemoteAPIError struct {
	Status int
	Body   string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("calendar API error (status %d): %s", e.Status, e.Body)
}

// AuthError is an expired or invalid credential (401/403). The fetcher
// retries once after a short delay; if it persists, the call is treated
// like any other remote failure.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("calendar API auth error (status %d)", e.Status)
}
