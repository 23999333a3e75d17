package binance

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding marks a signature input that could not be canonically
	// encoded. Programmer error, fatal to the call.
	ErrEncoding = errors.New("request parameters could not be encoded")

	// ErrRateLimited is returned on HTTP 429. Never retried automatically;
	// the caller must back off.
	ErrRateLimited = errors.New("venue rate limit exceeded")

	// ErrBanned is returned on HTTP 418 and latches: the client refuses
	// further requests until it is rebuilt.
	ErrBanned = errors.New("IP auto-banned by venue")

	// ErrNotConnected is returned when an unsubscribe cannot be transmitted
	// because the stream is down. The registry entry is kept; retry is safe.
	ErrNotConnected = errors.New("stream not connected")

	// ErrUnknownSubscription is returned for an id with no registry entry.
	ErrUnknownSubscription = errors.New("unknown subscription id")
)

// RequestError is a 4xx response other than 429/418: a request-shape defect
// the venue rejected. Not retried.
type RequestError struct {
	Status int
	Code   int
	Msg    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("venue rejected request: status %d code %d: %s", e.Status, e.Code, e.Msg)
}

// ServerError is a 5xx that persisted past the retry budget.
type ServerError struct {
	Status   int
	Attempts int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("venue server error %d after %d attempts", e.Status, e.Attempts)
}
