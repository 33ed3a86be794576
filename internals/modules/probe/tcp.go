package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

const (
	DefaultTCPHost    = "127.0.0.1"
	DefaultTCPPort    = 80
	DefaultTCPTimeout = 1000 * time.Millisecond
)

// TCP opens and immediately closes a socket to host:port.
func TCP(ctx context.Context, host string, port int, timeout time.Duration) (Outcome, error) {
	if host == "" {
		host = DefaultTCPHost
	}
	if port <= 0 {
		port = DefaultTCPPort
	}
	if timeout <= 0 {
		timeout = DefaultTCPTimeout
	}

	start := time.Now()
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		if isTimeout(err) {
			return Outcome{}, refused(start, 500, "TCP socket timed out", err)
		}
		msg := err.Error()
		if msg == "" {
			msg = "TCP connection failed"
		}
		return Outcome{}, refused(start, 500, msg, err)
	}
	_ = conn.Close()

	return established(start, 200, "Host is up and running"), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
