package middleware

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestHashDeterministic(t *testing.T) {
	assert.Equal(t, RequestHash([]byte("payload")), RequestHash([]byte("payload")))
	assert.NotEqual(t, RequestHash([]byte("payload")), RequestHash([]byte("other")))
}

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore()
	hash := RequestHash([]byte("d1"))

	_, found, err := store.Check(ctx, "u1", "disbursement.initiate", "k1", hash)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, "u1", "disbursement.initiate", "k1", hash, json.RawMessage(`{"status":"processing"}`)))

	stored, found, err := store.Check(ctx, "u1", "disbursement.initiate", "k1", hash)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"status":"processing"}`, string(stored))

	_, _, err = store.Check(ctx, "u1", "disbursement.initiate", "k1", RequestHash([]byte("d2")))
	assert.ErrorIs(t, err, ErrIdempotencyConflict)

	_, found, err = store.Check(ctx, "u2", "disbursement.initiate", "k1", hash)
	require.NoError(t, err)
	assert.False(t, found)
}
