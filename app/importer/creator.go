package importer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"feedsink/app/database"
	"feedsink/app/feed"
)

// ImportTrigger is the document-change side of the pipeline: whoever
// implements it gets told about freshly created items so an import run can
// start without waiting for a queue scan.
type ImportTrigger interface {
	TriggerImport(itemID string)
}

// CreateRequest describes a feed item to create. ContentType is classified
// from the URL when left empty. ViaQueue routes the import through the
// import-queue trigger instead of the direct document trigger.
type CreateRequest struct {
	ID              string
	AccountID       string
	OriginType      feed.OriginType
	SubscriptionID  string
	ContentType     feed.ContentType
	URL             string
	Title           string
	Summary         string
	IntervalSeconds int
	ViaQueue        bool
}

// Creator persists new feed items idempotently and fires one of the two
// import triggers.
type Creator struct {
	items   database.ItemRepository
	queue   database.QueueRepository
	trigger ImportTrigger
	now     func() time.Time
}

func NewCreator(items database.ItemRepository, queue database.QueueRepository) *Creator {
	return &Creator{
		items: items,
		queue: queue,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetTrigger wires the document-change trigger. The creator and the task
// scheduler reference each other, so this is assigned after both exist.
func (c *Creator) SetTrigger(trigger ImportTrigger) {
	c.trigger = trigger
}

// StableItemID derives a content-addressed item id from the subscription and
// the upstream item id, so a retried webhook delivery creates nothing new.
func StableItemID(subscriptionID, upstreamID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(subscriptionID+"|"+upstreamID)).String()
}

// CreateItem persists the item and, when a row was actually created, kicks
// off its import. Returns the item and whether it was newly created.
func (c *Creator) CreateItem(req CreateRequest) (*feed.Item, bool, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = feed.ClassifyURL(req.URL)
	}

	now := c.now()
	item := feed.Item{
		ID:              id,
		AccountID:       req.AccountID,
		OriginType:      req.OriginType,
		SubscriptionID:  req.SubscriptionID,
		ContentType:     contentType,
		URL:             req.URL,
		Title:           req.Title,
		Summary:         req.Summary,
		IntervalSeconds: req.IntervalSeconds,
		TriageStatus:    feed.TriageUntriaged,
		Tags:            map[string]bool{feed.TagUnread: true},
		ImportState:     feed.NewImportState(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := c.items.CreateItem(item)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create feed item: %w", err)
	}

	if !created {
		slog.Debug("Feed item already exists, skipping", "item_id", id)
		return &item, false, nil
	}

	if req.ViaQueue {
		err := c.queue.Enqueue(database.QueueItem{
			ID:         uuid.NewString(),
			AccountID:  req.AccountID,
			FeedItemID: id,
			URL:        req.URL,
		})
		if err != nil {
			return &item, true, fmt.Errorf("failed to enqueue import: %w", err)
		}
	} else if c.trigger != nil {
		c.trigger.TriggerImport(id)
	}

	return &item, true, nil
}
