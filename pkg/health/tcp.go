package health

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TCPChecker probes protocol services that do not answer HTTP (the pooler
// itself speaks the database wire protocol) with a raw connect-and-close.
type TCPChecker struct {
	// Address is the TCP address to connect to (e.g. "localhost:6543")
	Address string

	// Timeout is the connection timeout (default: 2 seconds)
	Timeout time.Duration
}

// NewTCPChecker creates a TCP health checker with a 2 second timeout.
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{
		Address: address,
		Timeout: 2 * time.Second,
	}
}

// Check performs the TCP health check
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	dialer := &net.Dialer{
		Timeout: t.Timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return Result{
			Healthy:      false,
			Message:      fmt.Sprintf("connection failed: %v", err),
			CheckedAt:    start,
			ResponseTime: time.Since(start),
		}
	}
	defer conn.Close()

	return Result{
		Healthy:      true,
		Message:      fmt.Sprintf("TCP connection to %s successful", t.Address),
		CheckedAt:    start,
		ResponseTime: time.Since(start),
	}
}

// Type returns the health check type
func (t *TCPChecker) Type() CheckType {
	return CheckTypeTCP
}

// WithTimeout sets the connection timeout
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}
