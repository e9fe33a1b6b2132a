package redis_db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	opts, err = ParseRedisURL("redis://:secret@example.com:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "example.com:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = ParseRedisURL("http://not-redis")
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client, err := NewRedisClient([]string{mr.Addr()})
	require.NoError(t, err)

	pong, err := client.Client().Ping(context.Background()).Result()
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)
	assert.NotNil(t, client.MakeRedisClient())
}
