package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"feedsink/app/feed"
	"feedsink/app/importer"
)

// PollFeedTask fetches one polling subscription's feed and creates items for
// entries not seen before. Item ids are content-addressed, so re-polling the
// same entries creates nothing new.
type PollFeedTask struct {
	Task
	Subscription feed.Subscription
	httpClient   *http.Client
	parser       *gofeed.Parser
	creator      *importer.Creator
	userAgent    string
	timeout      time.Duration
}

func NewPollFeedTask(sub feed.Subscription, httpClient *http.Client, parser *gofeed.Parser,
	creator *importer.Creator, userAgent string, timeout time.Duration) *PollFeedTask {
	return &PollFeedTask{
		Task:         NewTask(TaskTypePollFeed, sub.ID),
		Subscription: sub,
		httpClient:   httpClient,
		parser:       parser,
		creator:      creator,
		userAgent:    userAgent,
		timeout:      timeout,
	}
}

func (t *PollFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := t.fetchFeed(ctx, t.Subscription.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	parsed, err := t.parser.ParseString(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	newCount := 0
	existingCount := 0
	errorCount := 0

	for _, entry := range parsed.Items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		guid := entry.GUID
		if guid == "" {
			guid = entry.Link
		}

		originType := feed.OriginRSS
		if t.Subscription.Type == feed.SubscriptionYouTube {
			originType = feed.OriginYouTube
		}

		_, created, err := t.creator.CreateItem(importer.CreateRequest{
			ID:             importer.StableItemID(t.Subscription.ID, guid),
			AccountID:      t.Subscription.AccountID,
			OriginType:     originType,
			SubscriptionID: t.Subscription.ID,
			URL:            entry.Link,
			Title:          entry.Title,
			Summary:        entry.Description,
		})
		if err != nil {
			slog.Error("Failed to create item from feed entry", "subscription", t.Subscription.ID, "guid", guid, "error", err)
			errorCount++
			continue
		}

		if created {
			newCount++
		} else {
			existingCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"subscription", t.Subscription.ID,
		"duration", t.GetDuration(),
		"total", len(parsed.Items),
		"new", newCount,
		"existing", existingCount,
		"errors", errorCount)

	return nil
}

func (t *PollFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
