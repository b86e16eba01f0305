package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedsink/app/database"
	"feedsink/app/extractor"
	"feedsink/app/feed"
)

// Orchestrator drives one item through claim -> extract -> finalize. The
// same sequence backs both the queue trigger and the document trigger, so
// the two paths cannot drift apart.
type Orchestrator struct {
	items     database.ItemRepository
	extractor extractor.Extractor
	now       func() time.Time
}

func NewOrchestrator(items database.ItemRepository, ext extractor.Extractor) *Orchestrator {
	return &Orchestrator{
		items:     items,
		extractor: ext,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ImportItem claims the item, runs content extraction, and finalizes the
// import state. A failed claim leaves the item untouched for a future
// attempt. Every later failure lands the item in the failed state with the
// triggering error attached; the item is never auto-retried from there.
func (o *Orchestrator) ImportItem(ctx context.Context, itemID string) error {
	item, err := o.items.GetItem(itemID)
	if err != nil {
		return fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	if item == nil {
		return fmt.Errorf("item %s not found", itemID)
	}

	if err := o.items.ClaimItem(itemID, o.now()); err != nil {
		return fmt.Errorf("failed to claim item %s: %w", itemID, err)
	}

	// Interval items carry no URL; there is nothing to fetch.
	if item.ContentType == feed.ContentTypeInterval || item.URL == "" {
		if err := o.items.CompleteItem(itemID, feed.ExtractedContent{}, o.now()); err != nil {
			o.failItem(itemID, err)
			return fmt.Errorf("failed to finalize item %s: %w", itemID, err)
		}
		return nil
	}

	result, err := o.extractor.Run(ctx, item.URL)
	if err != nil {
		o.failItem(itemID, err)
		return fmt.Errorf("extraction failed for item %s: %w", itemID, err)
	}

	content := feed.ExtractedContent{
		Title:         result.Title,
		Description:   result.Description,
		Summary:       result.Content,
		OutgoingLinks: result.OutgoingLinks,
	}

	if err := o.items.CompleteItem(itemID, content, o.now()); err != nil {
		o.failItem(itemID, err)
		return fmt.Errorf("failed to finalize item %s: %w", itemID, err)
	}

	return nil
}

// failItem records the failed state best-effort. If the failure write itself
// fails we only log: re-retrying failure writes risks an infinite loop.
func (o *Orchestrator) failItem(itemID string, cause error) {
	if err := o.items.FailItem(itemID, cause.Error(), o.now()); err != nil {
		slog.Error("Failed to record import failure", "item_id", itemID, "error", err)
	}
}
