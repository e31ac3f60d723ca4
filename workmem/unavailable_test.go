package workmem

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailableStore_AllOpsReturnCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	store := NewUnavailableStore(cause)
	ctx := context.Background()

	err := store.Set(ctx, "t", "k", "v")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	_, err = store.Get(ctx, "t", "k")
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsKeyNotFound(err))

	_, err = store.Keys(ctx, "t")
	assert.ErrorIs(t, err, cause)

	assert.ErrorIs(t, store.DropTable(ctx, "t"), cause)
	assert.ErrorIs(t, store.Ping(ctx), cause)
	assert.NoError(t, store.Close())
}

func TestUnavailableStore_NilCause(t *testing.T) {
	store := NewUnavailableStore(nil)
	assert.Error(t, store.Ping(context.Background()))
}
