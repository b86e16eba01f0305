package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"feedsink/app/database"
	"feedsink/app/extractor"
	"feedsink/app/feed"
	"feedsink/app/importer"
)

type memItemRepo struct {
	items      map[string]*feed.Item
	failSubIDs map[string]bool
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[string]*feed.Item), failSubIDs: make(map[string]bool)}
}

func (r *memItemRepo) CreateItem(item feed.Item) (bool, error) {
	if r.failSubIDs[item.SubscriptionID] {
		return false, errors.New("simulated write failure")
	}
	if _, ok := r.items[item.ID]; ok {
		return false, nil
	}
	r.items[item.ID] = &item
	return true, nil
}

func (r *memItemRepo) GetItem(id string) (*feed.Item, error) { return r.items[id], nil }

func (r *memItemRepo) ListItems(limit int) ([]feed.Item, error) {
	items := make([]feed.Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, *item)
	}
	return items, nil
}

func (r *memItemRepo) GetItemCount() (int, error) { return len(r.items), nil }

func (r *memItemRepo) GetImportStats() (database.ImportStats, error) {
	return database.ImportStats{Total: len(r.items)}, nil
}

func (r *memItemRepo) ClaimItem(id string, startedAt time.Time) error {
	item, ok := r.items[id]
	if !ok || item.ImportState.Status == feed.ImportStatusProcessing {
		return database.ErrNotClaimed
	}
	item.ImportState = item.ImportState.Processing(startedAt)
	return nil
}

func (r *memItemRepo) CompleteItem(id string, content feed.ExtractedContent, completedAt time.Time) error {
	item := r.items[id]
	item.ImportState = item.ImportState.Completed(completedAt)
	return nil
}

func (r *memItemRepo) FailItem(id string, message string, failedAt time.Time) error {
	item := r.items[id]
	item.ImportState = item.ImportState.Failed(message, failedAt)
	return nil
}

func (r *memItemRepo) RequestReimport(id string, requestedAt time.Time) error { return nil }

type memQueueRepo struct {
	records []database.QueueItem
	deleted []string
	failed  []string
}

func (q *memQueueRepo) Enqueue(item database.QueueItem) error {
	q.records = append(q.records, item)
	return nil
}

func (q *memQueueRepo) ListNew(limit int) ([]database.QueueItem, error) {
	if len(q.records) > limit {
		return q.records[:limit], nil
	}
	return q.records, nil
}

func (q *memQueueRepo) Delete(id string) error {
	q.deleted = append(q.deleted, id)
	return nil
}

func (q *memQueueRepo) MarkFailed(id string, message string) error {
	q.failed = append(q.failed, id)
	return nil
}

type memSubscriptionRepo struct {
	subs []feed.Subscription
}

func (r *memSubscriptionRepo) UpsertSubscription(sub feed.Subscription) error { return nil }
func (r *memSubscriptionRepo) GetSubscription(id string) (*feed.Subscription, error) {
	return nil, nil
}
func (r *memSubscriptionRepo) ListSubscriptions() ([]feed.Subscription, error) { return r.subs, nil }
func (r *memSubscriptionRepo) ListActiveByType(t feed.SubscriptionType) ([]feed.Subscription, error) {
	var out []feed.Subscription
	for _, s := range r.subs {
		if s.Type == t && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}
func (r *memSubscriptionRepo) FindActiveByURL(feedURL string) ([]feed.Subscription, error) {
	return nil, nil
}
func (r *memSubscriptionRepo) DeactivateSubscription(id string) error { return nil }

func intervalSub(id string, seconds int) feed.Subscription {
	return feed.Subscription{
		ID:              id,
		AccountID:       "acct-1",
		Type:            feed.SubscriptionInterval,
		Title:           "Check-in " + id,
		IntervalSeconds: seconds,
		Active:          true,
	}
}

func newEmitTask(items *memItemRepo, subs *memSubscriptionRepo, at time.Time) *EmitIntervalsTask {
	creator := importer.NewCreator(items, &memQueueRepo{})
	task := NewEmitIntervalsTask(subs, creator)
	task.now = func() time.Time { return at }
	return task
}

func TestEmitIntervalsTask_EmitsDueSubscriptions(t *testing.T) {
	items := newMemItemRepo()
	subs := &memSubscriptionRepo{subs: []feed.Subscription{
		intervalSub("hourly", 3600),
		intervalSub("ten-min", 600),
		intervalSub("inactive", 600),
	}}
	subs.subs[2].Active = false

	// On the hour: both hourly and ten-minute cadences fire.
	tick := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	task := newEmitTask(items, subs, tick)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(items.items) != 2 {
		t.Fatalf("Expected 2 emitted items, got %d", len(items.items))
	}
	for _, item := range items.items {
		if item.ContentType != feed.ContentTypeInterval {
			t.Errorf("Expected interval content type, got %s", item.ContentType)
		}
		if item.OriginType != feed.OriginInterval {
			t.Errorf("Expected interval origin, got %s", item.OriginType)
		}
		if item.IntervalSeconds == 0 {
			t.Error("Expected interval seconds carried onto the item")
		}
	}
}

func TestEmitIntervalsTask_SkipsNotDue(t *testing.T) {
	items := newMemItemRepo()
	subs := &memSubscriptionRepo{subs: []feed.Subscription{intervalSub("hourly", 3600)}}

	tick := time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)
	task := newEmitTask(items, subs, tick)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(items.items) != 0 {
		t.Errorf("Expected no emissions at half past, got %d", len(items.items))
	}
}

func TestEmitIntervalsTask_RerunOfSameSlotIsNoOp(t *testing.T) {
	items := newMemItemRepo()
	subs := &memSubscriptionRepo{subs: []feed.Subscription{intervalSub("hourly", 3600)}}

	tick := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		task := newEmitTask(items, subs, tick)
		if err := task.Execute(context.Background()); err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
	}

	if len(items.items) != 1 {
		t.Errorf("Re-running the same slot duplicated items: got %d", len(items.items))
	}
}

func TestEmitIntervalsTask_OneFailureDoesNotBlockOthers(t *testing.T) {
	items := newMemItemRepo()
	items.failSubIDs["bad"] = true
	subs := &memSubscriptionRepo{subs: []feed.Subscription{
		intervalSub("good-1", 3600),
		intervalSub("bad", 3600),
		intervalSub("good-2", 3600),
	}}

	tick := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	task := newEmitTask(items, subs, tick)

	err := task.Execute(context.Background())
	if err == nil {
		t.Fatal("Expected the failed emission to be reported")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("Expected error naming the failed subscription, got %q", err.Error())
	}

	if len(items.items) != 2 {
		t.Errorf("Expected both healthy subscriptions to emit, got %d items", len(items.items))
	}
}

// Orchestrator used by the queue task tests.
type staticExtractor struct {
	result *extractor.Result
	err    error
}

func (e *staticExtractor) Run(ctx context.Context, pageURL string) (*extractor.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}
