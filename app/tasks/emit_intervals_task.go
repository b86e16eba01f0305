package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedsink/app/database"
	"feedsink/app/feed"
	"feedsink/app/importer"
)

// EmitIntervalsTask runs one tick over the active interval subscriptions and
// synthesizes a feed item for every subscription whose cadence fires now.
// Each subscription's outcome is collected independently: one failed
// emission never blocks the rest of the tick.
type EmitIntervalsTask struct {
	Task
	subscriptions database.SubscriptionRepository
	creator       *importer.Creator
	now           func() time.Time
}

func NewEmitIntervalsTask(subscriptions database.SubscriptionRepository, creator *importer.Creator) *EmitIntervalsTask {
	return &EmitIntervalsTask{
		Task:          NewTask(TaskTypeEmitIntervals, "intervals"),
		subscriptions: subscriptions,
		creator:       creator,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (t *EmitIntervalsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subs, err := t.subscriptions.ListActiveByType(feed.SubscriptionInterval)
	if err != nil {
		return fmt.Errorf("failed to list interval subscriptions: %w", err)
	}

	now := t.now()
	emittedCount := 0
	skippedCount := 0

	var errs []error
	for _, sub := range subs {
		if !feed.IntervalDue(sub.IntervalSeconds, now) {
			skippedCount++
			continue
		}

		if err := t.emit(sub, now); err != nil {
			slog.Error("Failed to emit interval item", "subscription", sub.ID, "error", err)
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		emittedCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"emitted", emittedCount,
		"skipped", skippedCount,
		"errors", len(errs))

	return errors.Join(errs...)
}

func (t *EmitIntervalsTask) emit(sub feed.Subscription, now time.Time) error {
	// One emission per 5-minute slot: the slot timestamp keys the item id,
	// so a re-run of the same tick is a no-op.
	slot := now.Truncate(feed.IntervalSlotMinutes * time.Minute)

	_, _, err := t.creator.CreateItem(importer.CreateRequest{
		ID:              importer.StableItemID(sub.ID, slot.Format(time.RFC3339)),
		AccountID:       sub.AccountID,
		OriginType:      feed.OriginInterval,
		SubscriptionID:  sub.ID,
		ContentType:     feed.ContentTypeInterval,
		Title:           sub.Title,
		IntervalSeconds: sub.IntervalSeconds,
	})
	return err
}
