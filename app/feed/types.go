package feed

import (
	"time"
)

type ContentType string

const (
	ContentTypeArticle  ContentType = "article"
	ContentTypeVideo    ContentType = "video"
	ContentTypeWebsite  ContentType = "website"
	ContentTypeTweet    ContentType = "tweet"
	ContentTypeYouTube  ContentType = "youtube"
	ContentTypeXkcd     ContentType = "xkcd"
	ContentTypeInterval ContentType = "interval"
)

type OriginType string

const (
	OriginRSS       OriginType = "rss"
	OriginYouTube   OriginType = "youtube"
	OriginInterval  OriginType = "interval"
	OriginExtension OriginType = "extension"
	OriginManual    OriginType = "manual"
	OriginExport    OriginType = "export"
)

type TriageStatus string

const (
	TriageUntriaged TriageStatus = "untriaged"
	TriageSaved     TriageStatus = "saved"
	TriageDone      TriageStatus = "done"
	TriageTrashed   TriageStatus = "trashed"
)

// System tag identifiers. Tags are a sparse boolean map on the item,
// independent of the exclusive triage status.
const (
	TagUnread    = "unread"
	TagStarred   = "starred"
	TagImporting = "importing"
)

// Item is the unit of work and the unit of presentation: one piece of
// content ingested from a subscription, tracked through import.
type Item struct {
	ID             string
	AccountID      string
	OriginType     OriginType
	SubscriptionID string

	ContentType   ContentType
	URL           string
	Title         string
	Description   string
	Summary       string
	OutgoingLinks []string

	// Xkcd-only content fields
	XkcdImageURL string
	XkcdImageAlt string

	// Interval-only content field
	IntervalSeconds int

	TriageStatus TriageStatus
	Tags         map[string]bool

	ImportState ImportState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExtractedContent holds the fields the content extractor produces for a
// URL-bearing item.
type ExtractedContent struct {
	Title         string
	Description   string
	Summary       string
	OutgoingLinks []string
}

type SubscriptionType string

const (
	SubscriptionRSS      SubscriptionType = "rss"
	SubscriptionYouTube  SubscriptionType = "youtube"
	SubscriptionInterval SubscriptionType = "interval"
)

// Subscription is an account's subscription to a feed source. Inactive
// subscriptions are retained, not deleted.
type Subscription struct {
	ID              string           `yaml:"id"`
	AccountID       string           `yaml:"account_id"`
	Type            SubscriptionType `yaml:"type"`
	URL             string           `yaml:"url"`
	Title           string           `yaml:"title"`
	IntervalSeconds int              `yaml:"interval_seconds"`
	Schedule        DeliverySchedule `yaml:"schedule"`
	Active          bool             `yaml:"active"`
	CreatedAt       time.Time        `yaml:"-"`
	UpdatedAt       time.Time        `yaml:"-"`
}
