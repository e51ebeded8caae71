package ratelimitstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

func TestRedisStore_Get_Absent(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	mock.ExpectGet("ratelimit:missing").RedisNil()

	cell, err := store.Get(context.Background(), "ratelimit:missing")
	require.NoError(t, err)
	assert.Nil(t, cell)
}

func TestRedisStore_Get_Present(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	want := guardrail.RateLimitCell{Count: 3, ResetAt: 1700000000000}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet("ratelimit:tool:read_file").SetVal(string(raw))

	got, err := store.Get(context.Background(), "ratelimit:tool:read_file")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestRedisStore_Set(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	cell := guardrail.RateLimitCell{Count: 1, ResetAt: 1700000000000}
	raw, err := json.Marshal(cell)
	require.NoError(t, err)

	mock.ExpectSet("ratelimit:ip:10.0.0.1", raw, 300*time.Second).SetVal("OK")

	err = store.Set(context.Background(), "ratelimit:ip:10.0.0.1", cell, 300*time.Second)
	require.NoError(t, err)
}
