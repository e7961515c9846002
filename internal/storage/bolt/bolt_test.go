package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := &model.DeliveryLog{Device: "phone", Message: "one", Status: model.DeliveryStatusSuccess}
	second := &model.DeliveryLog{Device: "tablet", Message: "two", Status: model.DeliveryStatusFailed, Result: "rate limit exceeded"}
	require.NoError(t, store.AppendDeliveryLog(ctx, first))
	require.NoError(t, store.AppendDeliveryLog(ctx, second))

	require.Equal(t, uint64(1), first.ID)
	require.Equal(t, uint64(2), second.ID)
	require.False(t, first.CreatedAt.IsZero())

	logs, err := store.ListDeliveryLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "one", logs[0].Message)
	require.Equal(t, "rate limit exceeded", logs[1].Result)
}

func TestGetDeliveryLog(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	entry := &model.DeliveryLog{Message: "hello"}
	require.NoError(t, store.AppendDeliveryLog(ctx, entry))

	got, err := store.GetDeliveryLog(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", got.Message)

	_, err = store.GetDeliveryLog(ctx, 42)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.AppendDeliveryLog(ctx, &model.DeliveryLog{}), context.Canceled)
	_, err := store.ListDeliveryLogs(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
