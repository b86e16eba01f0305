package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"feedsink/app/provider"
)

// Registry is the local test feed provider: an in-memory store of feeds and
// subscriber callbacks that mirrors the production push hub's webhook
// contract, so the fan-out handler can be exercised against either provider
// transparently.

type Item struct {
	ID           string
	Title        string
	Summary      string
	PermalinkURL string
	PublishedAt  time.Time
}

type Feed struct {
	ID    string
	URL   string
	Title string
	Items []Item
}

type Subscriber struct {
	FeedURL     string
	CallbackURL string
}

type Registry struct {
	mu          sync.RWMutex
	feeds       map[string]*Feed
	subscribers map[string]map[string]Subscriber // feedURL -> callbackURL -> subscriber
	httpClient  *http.Client
	secret      string
}

func New(secret string, httpClient *http.Client) *Registry {
	return &Registry{
		feeds:       make(map[string]*Feed),
		subscribers: make(map[string]map[string]Subscriber),
		httpClient:  httpClient,
		secret:      secret,
	}
}

// RegisterFeed makes a feed available under the registry's HTTP surface.
func (r *Registry) RegisterFeed(id, feedURL, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.feeds[id]; ok {
		return
	}
	r.feeds[id] = &Feed{ID: id, URL: feedURL, Title: title}
}

// UpdateFeed appends items to the feed and notifies every subscriber of the
// feed's URL with a production-shaped webhook delivery. Per-subscriber
// delivery failures are collected; one dead callback does not block the
// others.
func (r *Registry) UpdateFeed(ctx context.Context, feedID string, items []Item) error {
	r.mu.Lock()
	f, ok := r.feeds[feedID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("feed '%s' not found", feedID)
	}

	f.Items = append(f.Items, items...)

	var callbacks []Subscriber
	for _, sub := range r.subscribers[f.URL] {
		callbacks = append(callbacks, sub)
	}
	feedURL := f.URL
	r.mu.Unlock()

	payload := provider.WebhookPayload{
		Status: provider.WebhookStatus{Code: http.StatusOK, Feed: feedURL},
		Items:  make([]provider.WebhookItem, 0, len(items)),
	}
	for _, item := range items {
		payload.Items = append(payload.Items, provider.WebhookItem{
			ID:           item.ID,
			Title:        item.Title,
			Summary:      item.Summary,
			PermalinkURL: item.PermalinkURL,
		})
	}

	var failed int
	for _, sub := range callbacks {
		if err := r.deliver(ctx, sub.CallbackURL, payload); err != nil {
			slog.Error("Webhook delivery failed", "feed", feedID, "callback", sub.CallbackURL, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d webhook deliveries failed", failed, len(callbacks))
	}
	return nil
}

func (r *Registry) deliver(ctx context.Context, callbackURL string, payload provider.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(provider.SignatureHeader, provider.SignBody(r.secret, body))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, string(data))
	}

	return nil
}

func (r *Registry) Subscribe(feedURL, callbackURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subscribers[feedURL] == nil {
		r.subscribers[feedURL] = make(map[string]Subscriber)
	}
	r.subscribers[feedURL][callbackURL] = Subscriber{FeedURL: feedURL, CallbackURL: callbackURL}
}

// Unsubscribe drops every subscriber of the URL. No-op when none exist.
func (r *Registry) Unsubscribe(feedURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subscribers, feedURL)
}

// GetFeed returns nil when the feed is unknown.
func (r *Registry) GetFeed(id string) *Feed {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.feeds[id]
	if !ok {
		return nil
	}

	snapshot := *f
	snapshot.Items = append([]Item(nil), f.Items...)
	return &snapshot
}

// GetSubscriptions returns nil, not an empty set, when the URL has no
// subscribers.
func (r *Registry) GetSubscriptions(feedURL string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.subscribers[feedURL]
	if !ok {
		return nil
	}

	subs := make([]Subscriber, 0, len(set))
	for _, sub := range set {
		subs = append(subs, sub)
	}
	return subs
}
