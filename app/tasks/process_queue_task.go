package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"feedsink/app/database"
	"feedsink/app/importer"
)

const queueScanLimit = 100

// ProcessQueueTask is the queue-item trigger: it scans import-queue records
// with status new and runs the orchestrator over each. A record is deleted
// on success and marked failed on error; completion is deletion.
type ProcessQueueTask struct {
	Task
	queue        database.QueueRepository
	orchestrator *importer.Orchestrator
}

func NewProcessQueueTask(queue database.QueueRepository, orchestrator *importer.Orchestrator) *ProcessQueueTask {
	return &ProcessQueueTask{
		Task:         NewTask(TaskTypeProcessQueue, "import_queue"),
		queue:        queue,
		orchestrator: orchestrator,
	}
}

func (t *ProcessQueueTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	records, err := t.queue.ListNew(queueScanLimit)
	if err != nil {
		return fmt.Errorf("failed to list queue records: %w", err)
	}

	if len(records) == 0 {
		slog.Debug("No queued imports")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.orchestrator.ImportItem(ctx, record.FeedItemID); err != nil {
			slog.Error("Queued import failed", "queue_id", record.ID, "item_id", record.FeedItemID, "error", err)
			errorCount++

			if err := t.queue.MarkFailed(record.ID, err.Error()); err != nil {
				slog.Error("Failed to mark queue record failed", "queue_id", record.ID, "error", err)
			}
			continue
		}

		if err := t.queue.Delete(record.ID); err != nil {
			slog.Error("Failed to delete completed queue record", "queue_id", record.ID, "error", err)
		}
		successCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}
