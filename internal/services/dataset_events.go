package services

import (
	"context"

	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/queue"
)

// DatasetEventHandler keeps cached and stored analytics in step with dataset changes
type DatasetEventHandler struct {
	logger    *logging.Logger
	analytics *AnalyticsService
}

// NewDatasetEventHandler creates a new DatasetEventHandler
func NewDatasetEventHandler(logger *logging.Logger, analytics *AnalyticsService) *DatasetEventHandler {
	return &DatasetEventHandler{logger: logger, analytics: analytics}
}

// Register subscribes the handler to dataset change events
func (h *DatasetEventHandler) Register(events *queue.Events) error {
	return events.OnDatasetChanged(h.Handle)
}

// Handle invalidates the dataset's cache on any change. Deleted datasets also
// lose their stored analytics. A failed delete is returned for redelivery.
func (h *DatasetEventHandler) Handle(ctx context.Context, event models.DatasetChangedEvent) error {
	if event.DatasetID == "" {
		h.logger.Warn("Ignoring dataset event without dataset_id", "action", event.Action)
		return nil
	}

	h.analytics.InvalidateCache(ctx, event.DatasetID)

	if event.Action == models.DatasetActionDeleted {
		if err := h.analytics.DeleteResults(ctx, event.DatasetID); err != nil {
			return err
		}
	}

	h.logger.Info("Dataset change applied", "dataset_id", event.DatasetID, "action", event.Action)
	return nil
}
