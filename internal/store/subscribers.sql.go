package store

import (
	"context"
	"time"
)

const subscriberColumns = `id, email, unsubscribe_token, is_subscribed, created_at, updated_at`

func scanSubscriber(row rowScanner) (Subscriber, error) {
	var i Subscriber
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.UnsubscribeToken,
		&i.IsSubscribed,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

// upsertSubscriber inserts a new subscriber or re-activates an existing one.
// Either way the row ends up subscribed with the supplied token.
const upsertSubscriber = `INSERT INTO subscribers (email, unsubscribe_token, is_subscribed, created_at, updated_at)
VALUES (?1, ?2, 1, ?3, ?3)
ON CONFLICT(email) DO UPDATE SET
    unsubscribe_token = excluded.unsubscribe_token,
    is_subscribed = 1,
    updated_at = excluded.updated_at
RETURNING ` + subscriberColumns

type UpsertSubscriberParams struct {
	Email            string
	UnsubscribeToken string
	Now              time.Time
}

func (q *Queries) UpsertSubscriber(ctx context.Context, arg UpsertSubscriberParams) (Subscriber, error) {
	return scanSubscriber(q.db.QueryRowContext(ctx, upsertSubscriber, arg.Email, arg.UnsubscribeToken, arg.Now))
}

const getSubscriberByToken = `SELECT ` + subscriberColumns + ` FROM subscribers WHERE unsubscribe_token = ?`

func (q *Queries) GetSubscriberByToken(ctx context.Context, token string) (Subscriber, error) {
	return scanSubscriber(q.db.QueryRowContext(ctx, getSubscriberByToken, token))
}

const getSubscriberByEmail = `SELECT ` + subscriberColumns + ` FROM subscribers WHERE email = ?`

func (q *Queries) GetSubscriberByEmail(ctx context.Context, email string) (Subscriber, error) {
	return scanSubscriber(q.db.QueryRowContext(ctx, getSubscriberByEmail, email))
}

const unsubscribeSubscriber = `UPDATE subscribers SET is_subscribed = 0, updated_at = ? WHERE id = ?`

type UnsubscribeSubscriberParams struct {
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UnsubscribeSubscriber(ctx context.Context, arg UnsubscribeSubscriberParams) error {
	_, err := q.db.ExecContext(ctx, unsubscribeSubscriber, arg.UpdatedAt, arg.ID)
	return err
}

const listActiveSubscribers = `SELECT ` + subscriberColumns + ` FROM subscribers WHERE is_subscribed = 1 ORDER BY id`

func (q *Queries) ListActiveSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := q.db.QueryContext(ctx, listActiveSubscribers)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Subscriber
	for rows.Next() {
		i, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listSubscribers = `SELECT ` + subscriberColumns + ` FROM subscribers ORDER BY id DESC LIMIT ? OFFSET ?`

type ListSubscribersParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListSubscribers(ctx context.Context, arg ListSubscribersParams) ([]Subscriber, error) {
	rows, err := q.db.QueryContext(ctx, listSubscribers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Subscriber
	for rows.Next() {
		i, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countSubscribers = `SELECT COUNT(*) FROM subscribers`

func (q *Queries) CountSubscribers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSubscribers).Scan(&count)
	return count, err
}
