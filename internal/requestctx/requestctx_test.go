package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorVisibleToOuterContext(t *testing.T) {
	outer := WithRequestID(context.Background(), "req-1")
	inner, cancel := context.WithCancel(outer)
	defer cancel()

	SetActor(inner, "admin-1")

	assert.Equal(t, "req-1", GetRequestID(inner))
	assert.Equal(t, "admin-1", Actor(outer))
}

func TestMissingRequestContext(t *testing.T) {
	ctx := context.Background()
	SetActor(ctx, "ignored")
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, Actor(ctx))
}
