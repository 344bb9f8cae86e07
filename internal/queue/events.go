package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
)

// Events publishes and consumes typed statlens events as JSON over a Queue
type Events struct {
	queue Queue
}

// NewEvents wraps a queue. A nil queue behaves like NopQueue.
func NewEvents(q Queue) *Events {
	if q == nil {
		q = NopQueue{}
	}
	return &Events{queue: q}
}

// PublishAnalyticsCompleted announces a finished analytics run
func (e *Events) PublishAnalyticsCompleted(ctx context.Context, event models.AnalyticsCompletedEvent) error {
	return e.publish(ctx, models.SubjectAnalyticsCompleted, event)
}

// PublishDatasetChanged announces that a dataset's records changed
func (e *Events) PublishDatasetChanged(ctx context.Context, event models.DatasetChangedEvent) error {
	return e.publish(ctx, models.SubjectDatasetsChanged, event)
}

func (e *Events) publish(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", subject, err)
	}
	return e.queue.Publish(ctx, subject, data)
}

// OnDatasetChanged registers fn for dataset change events. Undecodable
// payloads are logged and acknowledged so they are not redelivered forever.
func (e *Events) OnDatasetChanged(fn func(ctx context.Context, event models.DatasetChangedEvent) error) error {
	return e.queue.Subscribe(models.SubjectDatasetsChanged, func(ctx context.Context, data []byte) error {
		var event models.DatasetChangedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logging.Warn("Dropping malformed event", "subject", models.SubjectDatasetsChanged, "error", err)
			return nil
		}
		return fn(ctx, event)
	})
}

// OnAnalyticsCompleted registers fn for analytics completion events
func (e *Events) OnAnalyticsCompleted(fn func(ctx context.Context, event models.AnalyticsCompletedEvent) error) error {
	return e.queue.Subscribe(models.SubjectAnalyticsCompleted, func(ctx context.Context, data []byte) error {
		var event models.AnalyticsCompletedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logging.Warn("Dropping malformed event", "subject", models.SubjectAnalyticsCompleted, "error", err)
			return nil
		}
		return fn(ctx, event)
	})
}

// Close closes the underlying queue
func (e *Events) Close() error {
	return e.queue.Close()
}
