package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	InitRedis(mr.Addr())
	t.Cleanup(func() { client = nil })

	c := GetClient()
	require.NotNil(t, c)
	assert.NoError(t, c.Ping(context.Background()).Err())
}

func TestInitRedis_AcceptsURL(t *testing.T) {
	mr := miniredis.RunT(t)

	InitRedis("redis://" + mr.Addr() + "/0")
	t.Cleanup(func() { client = nil })

	require.NotNil(t, GetClient())
}

func TestInitRedis_UnreachableLeavesClientNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	InitRedis(addr)
	assert.Nil(t, GetClient())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("http://localhost:6379")
	assert.Error(t, err)
}
