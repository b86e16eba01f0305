package database

import (
	"errors"
	"time"

	"feedsink/app/feed"
)

// ErrNotClaimed is returned by ClaimItem when the conditional update touched
// no row: either the item does not exist or another run holds the claim.
var ErrNotClaimed = errors.New("item not claimed")

type ItemRepository interface {
	// CreateItem inserts the item if its id is not already present and
	// reports whether a row was created. Re-creating an existing item is
	// a no-op, which makes upstream webhook retries safe.
	CreateItem(item feed.Item) (bool, error)
	GetItem(id string) (*feed.Item, error)
	ListItems(limit int) ([]feed.Item, error)
	GetItemCount() (int, error)
	GetImportStats() (ImportStats, error)

	// ClaimItem conditionally transitions the item to processing. The
	// update is guarded by import_status <> 'processing' so at most one
	// run can win a concurrent claim.
	ClaimItem(id string, startedAt time.Time) error
	CompleteItem(id string, content feed.ExtractedContent, completedAt time.Time) error
	FailItem(id string, message string, failedAt time.Time) error

	// RequestReimport moves a failed item back to new so the pipeline
	// picks it up again. Manual trigger only.
	RequestReimport(id string, requestedAt time.Time) error
}

type SubscriptionRepository interface {
	UpsertSubscription(sub feed.Subscription) error
	GetSubscription(id string) (*feed.Subscription, error)
	ListSubscriptions() ([]feed.Subscription, error)
	ListActiveByType(t feed.SubscriptionType) ([]feed.Subscription, error)
	FindActiveByURL(feedURL string) ([]feed.Subscription, error)
	DeactivateSubscription(id string) error
}

// QueueItem is one import-queue record. Records are deleted on success and
// marked failed on error; completion is deletion, there is no completed
// status.
type QueueItem struct {
	ID         string
	AccountID  string
	FeedItemID string
	URL        string
	Status     string
	Error      string
	CreatedAt  time.Time
}

const (
	QueueStatusNew    = "new"
	QueueStatusFailed = "failed"
)

type QueueRepository interface {
	Enqueue(item QueueItem) error
	ListNew(limit int) ([]QueueItem, error)
	Delete(id string) error
	MarkFailed(id string, message string) error
}

// ImportStats is a per-status item count for the stats endpoint.
type ImportStats struct {
	Total      int
	New        int
	Processing int
	Completed  int
	Failed     int
}
