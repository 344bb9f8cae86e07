package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/queue"
	"github.com/statlens/statlens/internal/store"
)

func TestDatasetEventHandler_Updated(t *testing.T) {
	f := newFixture(t)
	h := NewDatasetEventHandler(logging.NewNop(), f.analytics)
	ctx := context.Background()

	_, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, models.DatasetChangedEvent{DatasetID: "ds-1", Action: models.DatasetActionUpdated}))

	_, found, _ := f.cache.Get(ctx, "ds-1", "revenue")
	assert.False(t, found, "cache must be invalidated")

	_, err = f.store.GetAnalytics(ctx, "ds-1", "revenue")
	assert.NoError(t, err, "stored analytics survive an update")
}

func TestDatasetEventHandler_Deleted(t *testing.T) {
	f := newFixture(t)
	h := NewDatasetEventHandler(logging.NewNop(), f.analytics)
	ctx := context.Background()

	_, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, models.DatasetChangedEvent{DatasetID: "ds-1", Action: models.DatasetActionDeleted}))

	_, err = f.store.GetAnalytics(ctx, "ds-1", "revenue")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDatasetEventHandler_IgnoresMissingID(t *testing.T) {
	f := newFixture(t)
	h := NewDatasetEventHandler(logging.NewNop(), f.analytics)

	assert.NoError(t, h.Handle(context.Background(), models.DatasetChangedEvent{Action: models.DatasetActionDeleted}))
}

func TestDatasetEventHandler_ThroughQueue(t *testing.T) {
	f := newFixture(t)
	events := queue.NewEvents(mustMemoryQueue(t))
	t.Cleanup(func() { _ = events.Close() })

	h := NewDatasetEventHandler(logging.NewNop(), f.analytics)
	require.NoError(t, h.Register(events))

	ctx := context.Background()
	_, err := f.analytics.Run(ctx, "ds-1", "revenue")
	require.NoError(t, err)

	require.NoError(t, events.PublishDatasetChanged(ctx, models.DatasetChangedEvent{
		DatasetID: "ds-1",
		Action:    models.DatasetActionReprocessed,
	}))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, found, _ := f.cache.Get(ctx, "ds-1", "revenue"); !found {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("cache not invalidated by datasets.changed event")
}
