package tasks

import (
	"context"
	"log/slog"

	"feedsink/app/importer"
)

// ImportItemTask runs one orchestrator pass over a single feed item. It is
// never retried at the task layer: failure handling is the import state
// machine's job, and a lost claim means another run already owns the item.
type ImportItemTask struct {
	Task
	ItemID       string
	orchestrator *importer.Orchestrator
}

func NewImportItemTask(itemID string, orchestrator *importer.Orchestrator) *ImportItemTask {
	task := NewTask(TaskTypeImportItem, itemID)
	task.MaxRetries = 0

	return &ImportItemTask{
		Task:         task,
		ItemID:       itemID,
		orchestrator: orchestrator,
	}
}

func (t *ImportItemTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.orchestrator.ImportItem(ctx, t.ItemID); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"item_id", t.ItemID,
		"duration", t.GetDuration())

	return nil
}
