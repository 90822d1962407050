package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/segmentio/kafka-go"
)

var (
	ErrClientClosed = errors.New("kafka client is closed")
	ErrNoBrokers    = errors.New("kafka brokers is required")
)

// TransportError wraps a failed broker round trip. Recoverable reports
// whether the failure was of the reconnectable kind, even when the single
// retry also failed.
type TransportError struct {
	Op          string
	Topic       string
	Recoverable bool
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("kafka %s to topic %s failed: %v", e.Op, e.Topic, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary lets callers treat a dropped connection as retryable.
func (e *TransportError) Temporary() bool { return e.Recoverable }

// IsRecoverable reports whether err looks like a dropped or unreachable
// connection, which a fresh connection may fix.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrClientClosed) {
		return false
	}

	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		if werrs.Count() == 0 {
			return false
		}
		for _, e := range werrs {
			if e != nil && !IsRecoverable(e) {
				return false
			}
		}
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	return false
}
