package probe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPing(t *testing.T) {
	mr := miniredis.RunT(t)

	out, err := RedisPing(context.Background(), "redis://"+mr.Addr(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, Established, out.Status)
	assert.Equal(t, 200, out.Code)
	assert.Equal(t, "Redis server running", out.Message)
}

func TestRedisPingServerError(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.SetError("ERR server is busy")

	_, err := RedisPing(context.Background(), "redis://"+mr.Addr(), time.Second)
	require.Error(t, err)

	f := AsFailure(err)
	assert.Equal(t, Refused, f.Status)
	assert.Equal(t, 500, f.Code)
	assert.Contains(t, f.Message, "busy")
}

func TestRedisPingDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := RedisPing(context.Background(), "redis://"+addr, 500*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, Refused, AsFailure(err).Status)
}

func TestRedisPingBadURL(t *testing.T) {
	_, err := RedisPing(context.Background(), "http://not-redis", time.Second)
	require.Error(t, err)
	assert.Equal(t, 500, AsFailure(err).Code)
}
