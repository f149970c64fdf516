package fetch

import (
	"errors"
	"fmt"
)

// TransientFetchError means the gateway gave up after exhausting its retry
// policy. The last underlying cause is carried and unwrappable.
type TransientFetchError struct {
	URL      string
	Attempts int
	// true when the final failure was throttling (HTTP 429)
	Throttled bool
	Cause     error
}

func (e *TransientFetchError) Error() string {
	cause := "no attempts were made"
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return fmt.Sprintf("fetch of %s failed after %d attempts: %s", e.URL, e.Attempts, cause)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Cause
}

// PermanentFetchError is a non-429 4xx; retrying will not help.
type PermanentFetchError struct {
	URL    string
	Status int
}

func (e *PermanentFetchError) Error() string {
	return fmt.Sprintf("fetch of %s rejected with status %d", e.URL, e.Status)
}

func IsThrottled(err error) bool {
	var transient *TransientFetchError
	if errors.As(err, &transient) {
		return transient.Throttled
	}
	return false
}

type statusError struct {
	status int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}
