// Package faults classifies timeout-class failures and records them in an
// append-only log so retried periods and articles leave an audit trail.
package faults

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Phrases that mark a failure as timeout-class. Browser navigation and HTTP
// stacks report deadline faults with inconsistent wording, so classification
// falls back to text matching after the typed checks.
var timeoutPhrases = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"aborted",
	"navigation failed",
	"net::err_timed_out",
	"net::err_aborted",
}

// IsTimeout reports whether err is a timeout-class fault. Only such faults
// are eligible for bounded retry; everything else fails immediately.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range timeoutPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
