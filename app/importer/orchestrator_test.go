package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"feedsink/app/database"
	"feedsink/app/extractor"
	"feedsink/app/feed"
)

type fakeItemRepo struct {
	items map[string]*feed.Item

	claimErr    error
	completeErr error
	failErr     error

	claimed   []string
	completed []string
	failed    []string
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*feed.Item)}
}

func (r *fakeItemRepo) CreateItem(item feed.Item) (bool, error) {
	if _, ok := r.items[item.ID]; ok {
		return false, nil
	}
	r.items[item.ID] = &item
	return true, nil
}

func (r *fakeItemRepo) GetItem(id string) (*feed.Item, error) {
	return r.items[id], nil
}

func (r *fakeItemRepo) ListItems(limit int) ([]feed.Item, error) {
	items := make([]feed.Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, *item)
	}
	return items, nil
}

func (r *fakeItemRepo) GetItemCount() (int, error) {
	return len(r.items), nil
}

func (r *fakeItemRepo) GetImportStats() (database.ImportStats, error) {
	return database.ImportStats{Total: len(r.items)}, nil
}

func (r *fakeItemRepo) ClaimItem(id string, startedAt time.Time) error {
	if r.claimErr != nil {
		return r.claimErr
	}
	item, ok := r.items[id]
	if !ok || item.ImportState.Status == feed.ImportStatusProcessing {
		return database.ErrNotClaimed
	}
	item.ImportState = item.ImportState.Processing(startedAt)
	r.claimed = append(r.claimed, id)
	return nil
}

func (r *fakeItemRepo) CompleteItem(id string, content feed.ExtractedContent, completedAt time.Time) error {
	if r.completeErr != nil {
		return r.completeErr
	}
	item := r.items[id]
	if content.Title != "" {
		item.Title = content.Title
	}
	item.Description = content.Description
	item.Summary = content.Summary
	item.OutgoingLinks = content.OutgoingLinks
	item.ImportState = item.ImportState.Completed(completedAt)
	r.completed = append(r.completed, id)
	return nil
}

func (r *fakeItemRepo) FailItem(id string, message string, failedAt time.Time) error {
	if r.failErr != nil {
		return r.failErr
	}
	item := r.items[id]
	item.ImportState = item.ImportState.Failed(message, failedAt)
	r.failed = append(r.failed, id)
	return nil
}

func (r *fakeItemRepo) RequestReimport(id string, requestedAt time.Time) error {
	item, ok := r.items[id]
	if !ok || item.ImportState.Status == feed.ImportStatusProcessing {
		return database.ErrNotClaimed
	}
	item.ImportState = feed.NewImportState(requestedAt)
	return nil
}

type fakeExtractor struct {
	result *extractor.Result
	err    error
	calls  int
}

func (e *fakeExtractor) Run(ctx context.Context, pageURL string) (*extractor.Result, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func seedItem(repo *fakeItemRepo, id, rawURL string) *feed.Item {
	item := &feed.Item{
		ID:          id,
		ContentType: feed.ContentTypeArticle,
		URL:         rawURL,
		ImportState: feed.NewImportState(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	repo.items[id] = item
	return item
}

func newTestOrchestrator(repo *fakeItemRepo, ext extractor.Extractor, at time.Time) *Orchestrator {
	o := NewOrchestrator(repo, ext)
	o.now = func() time.Time { return at }
	return o
}

func TestImportItem_Success(t *testing.T) {
	repo := newFakeItemRepo()
	seedItem(repo, "item-1", "https://example.com/post")
	ext := &fakeExtractor{result: &extractor.Result{
		Title:         "Extracted Title",
		Description:   "A description",
		Content:       "Full text",
		OutgoingLinks: []string{"https://example.com/other"},
	}}
	completedAt := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)

	o := newTestOrchestrator(repo, ext, completedAt)
	if err := o.ImportItem(context.Background(), "item-1"); err != nil {
		t.Fatalf("ImportItem failed: %v", err)
	}

	item := repo.items["item-1"]
	if item.ImportState.Status != feed.ImportStatusCompleted {
		t.Errorf("Expected status completed, got %s", item.ImportState.Status)
	}
	if item.Title != "Extracted Title" || item.Summary != "Full text" {
		t.Errorf("Extracted content not applied: title=%q summary=%q", item.Title, item.Summary)
	}
	if len(item.OutgoingLinks) != 1 {
		t.Errorf("Expected 1 outgoing link, got %d", len(item.OutgoingLinks))
	}
	if item.ImportState.LastSuccessAt == nil || !item.ImportState.LastSuccessAt.Equal(completedAt) {
		t.Errorf("Expected LastSuccessAt %v, got %v", completedAt, item.ImportState.LastSuccessAt)
	}
}

func TestImportItem_ExtractionFailure(t *testing.T) {
	repo := newFakeItemRepo()
	seedItem(repo, "item-1", "https://example.com/post")
	ext := &fakeExtractor{err: errors.New("connection refused")}

	o := NewOrchestrator(repo, ext)
	err := o.ImportItem(context.Background(), "item-1")
	if err == nil {
		t.Fatal("Expected extraction error, got nil")
	}

	item := repo.items["item-1"]
	if item.ImportState.Status != feed.ImportStatusFailed {
		t.Errorf("Expected status failed, got %s", item.ImportState.Status)
	}
	if !strings.Contains(item.ImportState.ErrorMessage, "connection refused") {
		t.Errorf("Expected error message recorded, got %q", item.ImportState.ErrorMessage)
	}
	if item.ImportState.ShouldFetch {
		t.Error("Failed item must not be eligible for auto-retry")
	}
}

func TestImportItem_ClaimConflictLeavesItemUntouched(t *testing.T) {
	repo := newFakeItemRepo()
	item := seedItem(repo, "item-1", "https://example.com/post")
	item.ImportState = item.ImportState.Processing(time.Now().UTC())
	ext := &fakeExtractor{result: &extractor.Result{Title: "x"}}

	o := NewOrchestrator(repo, ext)
	err := o.ImportItem(context.Background(), "item-1")
	if !errors.Is(err, database.ErrNotClaimed) {
		t.Fatalf("Expected ErrNotClaimed, got %v", err)
	}

	if ext.calls != 0 {
		t.Error("Extractor must not run after a lost claim")
	}
	if repo.items["item-1"].ImportState.Status != feed.ImportStatusProcessing {
		t.Error("Lost claim must not change item state")
	}
}

func TestImportItem_NotFound(t *testing.T) {
	o := NewOrchestrator(newFakeItemRepo(), &fakeExtractor{})
	if err := o.ImportItem(context.Background(), "ghost"); err == nil {
		t.Error("Expected error for unknown item")
	}
}

func TestImportItem_IntervalItemSkipsExtraction(t *testing.T) {
	repo := newFakeItemRepo()
	item := seedItem(repo, "slot-1", "")
	item.ContentType = feed.ContentTypeInterval
	ext := &fakeExtractor{err: errors.New("should not be called")}

	o := NewOrchestrator(repo, ext)
	if err := o.ImportItem(context.Background(), "slot-1"); err != nil {
		t.Fatalf("ImportItem failed: %v", err)
	}

	if ext.calls != 0 {
		t.Error("Interval items must not hit the extractor")
	}
	if repo.items["slot-1"].ImportState.Status != feed.ImportStatusCompleted {
		t.Errorf("Expected status completed, got %s", repo.items["slot-1"].ImportState.Status)
	}
}

func TestImportItem_RequestedTimeSurvivesImport(t *testing.T) {
	repo := newFakeItemRepo()
	item := seedItem(repo, "item-1", "https://example.com/post")
	requested := item.ImportState.LastRequestedAt
	ext := &fakeExtractor{result: &extractor.Result{Title: "x"}}

	o := NewOrchestrator(repo, ext)
	if err := o.ImportItem(context.Background(), "item-1"); err != nil {
		t.Fatalf("ImportItem failed: %v", err)
	}

	if !repo.items["item-1"].ImportState.LastRequestedAt.Equal(requested) {
		t.Error("Import run changed LastRequestedAt")
	}
}

func TestImportItem_ReimportAfterFailure(t *testing.T) {
	repo := newFakeItemRepo()
	seedItem(repo, "item-1", "https://example.com/post")
	ext := &fakeExtractor{err: errors.New("boom")}

	o := NewOrchestrator(repo, ext)
	if err := o.ImportItem(context.Background(), "item-1"); err == nil {
		t.Fatal("Expected first import to fail")
	}

	reRequested := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := repo.RequestReimport("item-1", reRequested); err != nil {
		t.Fatalf("RequestReimport failed: %v", err)
	}

	ext.err = nil
	ext.result = &extractor.Result{Title: "recovered"}
	if err := o.ImportItem(context.Background(), "item-1"); err != nil {
		t.Fatalf("Second import failed: %v", err)
	}

	item := repo.items["item-1"]
	if item.ImportState.Status != feed.ImportStatusCompleted {
		t.Errorf("Expected status completed, got %s", item.ImportState.Status)
	}
	if !item.ImportState.LastRequestedAt.Equal(reRequested) {
		t.Errorf("Expected LastRequestedAt %v, got %v", reRequested, item.ImportState.LastRequestedAt)
	}
}

func TestImportItem_CompletedItemCanBeImportedAgain(t *testing.T) {
	repo := newFakeItemRepo()
	item := seedItem(repo, "item-1", "https://example.com/post")
	requested := item.ImportState.LastRequestedAt
	ext := &fakeExtractor{result: &extractor.Result{Title: "first"}}

	firstRun := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	o := newTestOrchestrator(repo, ext, firstRun)
	if err := o.ImportItem(context.Background(), "item-1"); err != nil {
		t.Fatalf("First import failed: %v", err)
	}

	ext.result = &extractor.Result{Title: "second"}
	secondRun := firstRun.Add(time.Hour)
	o.now = func() time.Time { return secondRun }
	if err := o.ImportItem(context.Background(), "item-1"); err != nil {
		t.Fatalf("Second import failed: %v", err)
	}

	if item.ImportState.Status != feed.ImportStatusCompleted {
		t.Errorf("Expected status completed, got %s", item.ImportState.Status)
	}
	if ext.calls != 2 {
		t.Errorf("Expected 2 extractor runs, got %d", ext.calls)
	}
	if item.Title != "second" {
		t.Errorf("Expected refreshed title, got %q", item.Title)
	}
	if item.ImportState.LastSuccessAt == nil || !item.ImportState.LastSuccessAt.Equal(secondRun) {
		t.Errorf("Expected LastSuccessAt %v, got %v", secondRun, item.ImportState.LastSuccessAt)
	}
	if !item.ImportState.LastRequestedAt.Equal(requested) {
		t.Errorf("Expected LastRequestedAt unchanged at %v, got %v", requested, item.ImportState.LastRequestedAt)
	}
}

func TestImportItem_FinalizeFailureRecordsFailedState(t *testing.T) {
	repo := newFakeItemRepo()
	seedItem(repo, "item-1", "https://example.com/post")
	repo.completeErr = errors.New("disk full")
	ext := &fakeExtractor{result: &extractor.Result{Title: "x"}}

	o := NewOrchestrator(repo, ext)
	if err := o.ImportItem(context.Background(), "item-1"); err == nil {
		t.Fatal("Expected finalize error, got nil")
	}

	if len(repo.failed) != 1 {
		t.Errorf("Expected the failure to be recorded, failed=%v", repo.failed)
	}
}

func TestImportItem_FailureWriteFailureDoesNotPanic(t *testing.T) {
	repo := newFakeItemRepo()
	seedItem(repo, "item-1", "https://example.com/post")
	repo.failErr = errors.New("db gone")
	ext := &fakeExtractor{err: errors.New("boom")}

	o := NewOrchestrator(repo, ext)
	if err := o.ImportItem(context.Background(), "item-1"); err == nil {
		t.Error("Expected import error, got nil")
	}
}
