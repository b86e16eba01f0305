package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"feedsink/app/feed"
)

var _ ItemRepository = (*ItemRepo)(nil)

type ItemRepo struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) CreateItem(item feed.Item) (bool, error) {
	links, err := json.Marshal(item.OutgoingLinks)
	if err != nil {
		return false, fmt.Errorf("failed to marshal outgoing links: %w", err)
	}

	tags := item.Tags
	if tags == nil {
		tags = map[string]bool{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("failed to marshal tags: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO feed_items (
			id, account_id, origin_type, subscription_id, content_type,
			url, title, description, summary, outgoing_links,
			xkcd_image_url, xkcd_image_alt, interval_seconds,
			triage_status, tags,
			import_status, should_fetch, import_requested_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.AccountID, string(item.OriginType), item.SubscriptionID,
		string(item.ContentType), item.URL, item.Title, item.Description,
		item.Summary, string(links), item.XkcdImageURL, item.XkcdImageAlt,
		item.IntervalSeconds, string(item.TriageStatus), string(tagsJSON),
		string(item.ImportState.Status), item.ImportState.ShouldFetch,
		item.ImportState.LastRequestedAt, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

const itemColumns = `
	id, account_id, origin_type, subscription_id, content_type,
	url, title, description, summary, outgoing_links,
	xkcd_image_url, xkcd_image_alt, interval_seconds,
	triage_status, tags,
	import_status, should_fetch, import_requested_at,
	import_started_at, import_failed_at, last_import_at, import_error,
	created_at, updated_at`

func (r *ItemRepo) GetItem(id string) (*feed.Item, error) {
	row := r.db.QueryRow(`SELECT `+itemColumns+` FROM feed_items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

func (r *ItemRepo) ListItems(limit int) ([]feed.Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM feed_items
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []feed.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepo) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM feed_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func (r *ItemRepo) GetImportStats() (ImportStats, error) {
	var stats ImportStats

	rows, err := r.db.Query(`SELECT import_status, COUNT(*) FROM feed_items GROUP BY import_status`)
	if err != nil {
		return stats, fmt.Errorf("failed to get import stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan stats row: %w", err)
		}

		stats.Total += count
		switch feed.ImportStatus(status) {
		case feed.ImportStatusNew:
			stats.New = count
		case feed.ImportStatusProcessing:
			stats.Processing = count
		case feed.ImportStatusCompleted:
			stats.Completed = count
		case feed.ImportStatusFailed:
			stats.Failed = count
		}
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("error iterating stats rows: %w", err)
	}

	return stats, nil
}

// ClaimItem is a compare-and-swap: the WHERE clause rejects the update when
// another run already holds the claim, and RowsAffected tells us whether we
// won. LastRequestedAt and last_import_at are untouched so they carry
// forward through the transition.
func (r *ItemRepo) ClaimItem(id string, startedAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE feed_items
		SET import_status = ?, should_fetch = 0, import_started_at = ?,
		    import_error = '', updated_at = ?
		WHERE id = ? AND import_status <> ?
	`, string(feed.ImportStatusProcessing), startedAt, startedAt,
		id, string(feed.ImportStatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to claim item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotClaimed
	}

	return nil
}

func (r *ItemRepo) CompleteItem(id string, content feed.ExtractedContent, completedAt time.Time) error {
	links, err := json.Marshal(content.OutgoingLinks)
	if err != nil {
		return fmt.Errorf("failed to marshal outgoing links: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE feed_items
		SET title = CASE WHEN ? <> '' THEN ? ELSE title END,
		    description = CASE WHEN ? <> '' THEN ? ELSE description END,
		    summary = ?, outgoing_links = ?,
		    import_status = ?, should_fetch = 0,
		    import_started_at = NULL, import_error = '',
		    last_import_at = ?, updated_at = ?
		WHERE id = ?
	`, content.Title, content.Title, content.Description, content.Description,
		content.Summary, string(links),
		string(feed.ImportStatusCompleted), completedAt, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to complete item: %w", err)
	}

	return nil
}

func (r *ItemRepo) FailItem(id string, message string, failedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feed_items
		SET import_status = ?, should_fetch = 0,
		    import_started_at = NULL,
		    import_failed_at = ?, import_error = ?, updated_at = ?
		WHERE id = ?
	`, string(feed.ImportStatusFailed), failedAt, message, failedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark item failed: %w", err)
	}

	return nil
}

func (r *ItemRepo) RequestReimport(id string, requestedAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE feed_items
		SET import_status = ?, should_fetch = 1,
		    import_requested_at = ?, import_error = '', updated_at = ?
		WHERE id = ? AND import_status <> ?
	`, string(feed.ImportStatusNew), requestedAt, requestedAt,
		id, string(feed.ImportStatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to request reimport: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotClaimed
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*feed.Item, error) {
	var item feed.Item
	var originType, contentType, triageStatus, importStatus string
	var links, tags string
	var startedAt, failedAt, lastImportAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.AccountID, &originType, &item.SubscriptionID,
		&contentType, &item.URL, &item.Title, &item.Description,
		&item.Summary, &links, &item.XkcdImageURL, &item.XkcdImageAlt,
		&item.IntervalSeconds, &triageStatus, &tags,
		&importStatus, &item.ImportState.ShouldFetch,
		&item.ImportState.LastRequestedAt,
		&startedAt, &failedAt, &lastImportAt, &item.ImportState.ErrorMessage,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.OriginType = feed.OriginType(originType)
	item.ContentType = feed.ContentType(contentType)
	item.TriageStatus = feed.TriageStatus(triageStatus)
	item.ImportState.Status = feed.ImportStatus(importStatus)

	if startedAt.Valid {
		t := startedAt.Time
		item.ImportState.StartedAt = &t
	}
	if failedAt.Valid {
		t := failedAt.Time
		item.ImportState.FailedAt = &t
	}
	if lastImportAt.Valid {
		t := lastImportAt.Time
		item.ImportState.LastSuccessAt = &t
	}

	if err := json.Unmarshal([]byte(links), &item.OutgoingLinks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outgoing links: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	return &item, nil
}
