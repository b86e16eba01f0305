package database

import (
	"testing"
	"time"

	"feedsink/app/feed"
)

func sampleSubscription(id, feedURL string) feed.Subscription {
	return feed.Subscription{
		ID:        id,
		AccountID: "acct-1",
		Type:      feed.SubscriptionRSS,
		URL:       feedURL,
		Title:     "Subscription " + id,
		Schedule: feed.DeliverySchedule{
			Type:  feed.ScheduleDaysAndTimes,
			Days:  []time.Weekday{time.Monday, time.Friday},
			Times: []string{"09:00", "18:00"},
		},
		Active: true,
	}
}

func TestSubscriptionRepo_UpsertAndGet(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))

	if err := repo.UpsertSubscription(sampleSubscription("sub-1", "https://example.com/feed.xml")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	sub, err := repo.GetSubscription("sub-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sub == nil {
		t.Fatal("Expected subscription, got nil")
	}
	if sub.Schedule.Type != feed.ScheduleDaysAndTimes {
		t.Errorf("Schedule type did not round-trip: %s", sub.Schedule.Type)
	}
	if len(sub.Schedule.Days) != 2 || sub.Schedule.Days[0] != time.Monday {
		t.Errorf("Schedule days did not round-trip: %v", sub.Schedule.Days)
	}
	if len(sub.Schedule.Times) != 2 || sub.Schedule.Times[1] != "18:00" {
		t.Errorf("Schedule times did not round-trip: %v", sub.Schedule.Times)
	}

	// Second upsert with the same id updates in place.
	updated := sampleSubscription("sub-1", "https://example.com/feed.xml")
	updated.Title = "Renamed"
	if err := repo.UpsertSubscription(updated); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	sub, _ = repo.GetSubscription("sub-1")
	if sub.Title != "Renamed" {
		t.Errorf("Expected updated title, got %q", sub.Title)
	}

	subs, _ := repo.ListSubscriptions()
	if len(subs) != 1 {
		t.Errorf("Upsert duplicated rows: %d", len(subs))
	}
}

func TestSubscriptionRepo_GetMissing(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))

	sub, err := repo.GetSubscription("ghost")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sub != nil {
		t.Errorf("Expected nil, got %+v", sub)
	}
}

func TestSubscriptionRepo_FindActiveByURL(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))
	const feedURL = "https://example.com/feed.xml"

	repo.UpsertSubscription(sampleSubscription("sub-1", feedURL))
	repo.UpsertSubscription(sampleSubscription("sub-2", feedURL))
	repo.UpsertSubscription(sampleSubscription("sub-3", "https://other.example.com/feed.xml"))

	inactive := sampleSubscription("sub-4", feedURL)
	inactive.Active = false
	repo.UpsertSubscription(inactive)

	subs, err := repo.FindActiveByURL(feedURL)
	if err != nil {
		t.Fatalf("FindActiveByURL failed: %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("Expected 2 active subscriptions of the URL, got %d", len(subs))
	}
}

func TestSubscriptionRepo_ListActiveByType(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))

	repo.UpsertSubscription(sampleSubscription("rss-1", "https://example.com/a.xml"))

	interval := sampleSubscription("int-1", "")
	interval.Type = feed.SubscriptionInterval
	interval.IntervalSeconds = 3600
	repo.UpsertSubscription(interval)

	subs, err := repo.ListActiveByType(feed.SubscriptionInterval)
	if err != nil {
		t.Fatalf("ListActiveByType failed: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != "int-1" {
		t.Errorf("Expected only int-1, got %v", subs)
	}
	if subs[0].IntervalSeconds != 3600 {
		t.Errorf("Interval seconds did not round-trip: %d", subs[0].IntervalSeconds)
	}
}

func TestSubscriptionRepo_Deactivate(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))
	const feedURL = "https://example.com/feed.xml"

	repo.UpsertSubscription(sampleSubscription("sub-1", feedURL))
	if err := repo.DeactivateSubscription("sub-1"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	sub, _ := repo.GetSubscription("sub-1")
	if sub == nil {
		t.Fatal("Deactivation must retain the row")
	}
	if sub.Active {
		t.Error("Expected subscription inactive")
	}

	subs, _ := repo.FindActiveByURL(feedURL)
	if len(subs) != 0 {
		t.Errorf("Deactivated subscription still matched: %v", subs)
	}
}
