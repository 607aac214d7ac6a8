package api

import (
	"errors"
	"fmt"
)

// ErrUnavailable wraps transport-level failures: connection refused,
// DNS, timeout. The server was never definitively reached.
var ErrUnavailable = errors.New("server unavailable")

// StatusError is a non-2xx HTTP response. The replay engine uses the
// code to tell definitive rejections (4xx) from transient ones.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Path, e.Code)
}

// IsDefinitive reports whether err is a server response that will not
// change on retry: a 4xx status other than 408 (timeout) and 429
// (throttling).
func IsDefinitive(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	if se.Code == 408 || se.Code == 429 {
		return false
	}
	return se.Code >= 400 && se.Code < 500
}
