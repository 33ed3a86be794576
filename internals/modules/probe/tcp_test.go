package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPEstablished(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	out, err := TCP(context.Background(), "127.0.0.1", port, time.Second)
	require.NoError(t, err)

	assert.Equal(t, Established, out.Status)
	assert.Equal(t, 200, out.Code)
	assert.Equal(t, "Host is up and running", out.Message)
}

func TestTCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = TCP(context.Background(), "127.0.0.1", port, time.Second)
	require.Error(t, err)

	f := AsFailure(err)
	assert.Equal(t, Refused, f.Status)
	assert.Equal(t, 500, f.Code)
	assert.NotEmpty(t, f.Message)
}

func TestTCPCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TCP(ctx, "127.0.0.1", 1, time.Second)
	require.Error(t, err)
	assert.Equal(t, Refused, AsFailure(err).Status)
}
