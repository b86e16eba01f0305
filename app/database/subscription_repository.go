package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"feedsink/app/feed"
)

var _ SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

func (r *SubscriptionRepo) UpsertSubscription(sub feed.Subscription) error {
	days, err := json.Marshal(sub.Schedule.Days)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule days: %w", err)
	}
	times, err := json.Marshal(sub.Schedule.Times)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule times: %w", err)
	}

	now := time.Now().UTC()

	_, err = r.db.Exec(`
		INSERT INTO subscriptions (
			id, account_id, type, url, title, interval_seconds,
			schedule_type, schedule_every_n_hours, schedule_days, schedule_times,
			active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			account_id = excluded.account_id,
			type = excluded.type,
			url = excluded.url,
			title = excluded.title,
			interval_seconds = excluded.interval_seconds,
			schedule_type = excluded.schedule_type,
			schedule_every_n_hours = excluded.schedule_every_n_hours,
			schedule_days = excluded.schedule_days,
			schedule_times = excluded.schedule_times,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, sub.ID, sub.AccountID, string(sub.Type), sub.URL, sub.Title,
		sub.IntervalSeconds, string(sub.Schedule.Type), sub.Schedule.EveryNHours,
		string(days), string(times), sub.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

const subscriptionColumns = `
	id, account_id, type, url, title, interval_seconds,
	schedule_type, schedule_every_n_hours, schedule_days, schedule_times,
	active, created_at, updated_at`

func (r *SubscriptionRepo) GetSubscription(id string) (*feed.Subscription, error) {
	row := r.db.QueryRow(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

func (r *SubscriptionRepo) ListSubscriptions() ([]feed.Subscription, error) {
	return r.querySubscriptions(`SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY created_at`)
}

func (r *SubscriptionRepo) ListActiveByType(t feed.SubscriptionType) ([]feed.Subscription, error) {
	return r.querySubscriptions(`
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE type = ? AND active = 1
		ORDER BY created_at
	`, string(t))
}

func (r *SubscriptionRepo) FindActiveByURL(feedURL string) ([]feed.Subscription, error) {
	return r.querySubscriptions(`
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE url = ? AND active = 1
		ORDER BY created_at
	`, feedURL)
}

// DeactivateSubscription flips the active flag. Rows are retained until
// full-account deletion, which is out of this system's hands.
func (r *SubscriptionRepo) DeactivateSubscription(id string) error {
	_, err := r.db.Exec(`
		UPDATE subscriptions SET active = 0, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) querySubscriptions(query string, args ...any) ([]feed.Subscription, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []feed.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return subs, nil
}

func scanSubscription(row rowScanner) (*feed.Subscription, error) {
	var sub feed.Subscription
	var subType, scheduleType string
	var days, times string

	err := row.Scan(
		&sub.ID, &sub.AccountID, &subType, &sub.URL, &sub.Title,
		&sub.IntervalSeconds, &scheduleType, &sub.Schedule.EveryNHours,
		&days, &times, &sub.Active, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Type = feed.SubscriptionType(subType)
	sub.Schedule.Type = feed.ScheduleType(scheduleType)

	if err := json.Unmarshal([]byte(days), &sub.Schedule.Days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule days: %w", err)
	}
	if err := json.Unmarshal([]byte(times), &sub.Schedule.Times); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule times: %w", err)
	}

	return &sub, nil
}
