package database

import (
	"fmt"
	"time"
)

var _ QueueRepository = (*QueueRepo)(nil)

type QueueRepo struct {
	db *DB
}

func NewQueueRepository(db *DB) *QueueRepo {
	return &QueueRepo{db: db}
}

func (r *QueueRepo) Enqueue(item QueueItem) error {
	_, err := r.db.Exec(`
		INSERT INTO import_queue (id, account_id, feed_item_id, url, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.AccountID, item.FeedItemID, item.URL, QueueStatusNew, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to enqueue import: %w", err)
	}
	return nil
}

func (r *QueueRepo) ListNew(limit int) ([]QueueItem, error) {
	rows, err := r.db.Query(`
		SELECT id, account_id, feed_item_id, url, status, error, created_at
		FROM import_queue
		WHERE status = ?
		ORDER BY created_at
		LIMIT ?
	`, QueueStatusNew, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var item QueueItem
		err := rows.Scan(&item.ID, &item.AccountID, &item.FeedItemID,
			&item.URL, &item.Status, &item.Error, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue rows: %w", err)
	}

	return items, nil
}

func (r *QueueRepo) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM import_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	return nil
}

func (r *QueueRepo) MarkFailed(id string, message string) error {
	_, err := r.db.Exec(`
		UPDATE import_queue SET status = ?, error = ? WHERE id = ?
	`, QueueStatusFailed, message, id)
	if err != nil {
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}
	return nil
}
