package geodirectory

import (
	"errors"
	"fmt"
)

// TransportError is returned when a call to the geo-directory did not
// complete: network failure, timeout, unreadable body or non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("geodirectory %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("geodirectory %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
