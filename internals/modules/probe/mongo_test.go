package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoPingBadURI(t *testing.T) {
	_, err := MongoPing(context.Background(), "not-a-mongo-uri", time.Second)
	require.Error(t, err)

	f := AsFailure(err)
	assert.Equal(t, Refused, f.Status)
	assert.Equal(t, 500, f.Code)
	assert.Equal(t, "MongoDB server down", f.Message)
}

func TestMongoPingUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	start := time.Now()
	_, err = MongoPing(context.Background(), "mongodb://"+addr+"/?directConnection=true", 300*time.Millisecond)
	require.Error(t, err)

	f := AsFailure(err)
	assert.Equal(t, Refused, f.Status)
	assert.Equal(t, "MongoDB server down", f.Message)
	assert.Less(t, time.Since(start), 5*time.Second)
}
