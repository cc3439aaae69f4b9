package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventboard/data/models"
)

// GetSubscriberByEmail looks a subscriber up case-insensitively. When several
// subscribers share the address the oldest wins.
func (sr *SqlRepo) GetSubscriberByEmail(ctx context.Context, email string) (models.Subscriber, error) {
	var s models.Subscriber
	err := sr.DB.QueryRowContext(ctx,
		"SELECT id, email FROM subscribers WHERE LOWER(email) = LOWER($1) ORDER BY id LIMIT 1",
		strings.TrimSpace(email)).Scan(&s.ID, &s.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Subscriber{}, ErrNotFound
		}
		return models.Subscriber{}, fmt.Errorf("get subscriber: %w", err)
	}
	return s, nil
}

func (sr *SqlRepo) SubscriberSummaries(ctx context.Context) ([]models.SubscriberSummary, error) {
	rows, err := sr.DB.QueryContext(ctx,
		"SELECT COALESCE(s.email, ''), COUNT(l.id), COUNT(l.id) FILTER (WHERE l.is_sent) "+
			"FROM subscribers s LEFT JOIN letters l ON l.subscriber_id = s.id GROUP BY s.id ORDER BY s.id")
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	summaries := []models.SubscriberSummary{}
	for rows.Next() {
		var s models.SubscriberSummary
		if err := rows.Scan(&s.Email, &s.LetterCount, &s.SentLetterCount); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CreateLetters creates one letter per email that belongs to a subscriber.
// Unknown emails are skipped.
func (sr *SqlRepo) CreateLetters(ctx context.Context, emails []string, subject, text string) ([]models.Letter, error) {
	letters := []models.Letter{}
	for _, email := range emails {
		s, err := sr.GetSubscriberByEmail(ctx, email)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return letters, err
		}

		l := models.Letter{SubscriberID: s.ID, Subject: subject, Text: text}
		if err := models.ValidateModel(l); err != nil {
			return letters, err
		}
		if l.ID, err = sr.Create(ctx, l); err != nil {
			return letters, fmt.Errorf("create letter for %s: %w", email, err)
		}
		letters = append(letters, l)
	}
	return letters, nil
}

func (sr *SqlRepo) DeleteLetters(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM letters WHERE id IN (%s)", placeholders(len(ids)))
	if _, err := sr.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete letters: %w", err)
	}
	return nil
}

// AllLettersSent reports whether no letter is waiting to be sent.
func (sr *SqlRepo) AllLettersSent(ctx context.Context) (bool, error) {
	var allSent bool
	if err := sr.DB.QueryRowContext(ctx,
		"SELECT NOT EXISTS (SELECT 1 FROM letters WHERE is_sent = FALSE)").Scan(&allSent); err != nil {
		return false, fmt.Errorf("check unsent letters: %w", err)
	}
	return allSent, nil
}

func (sr *SqlRepo) UnsentLetters(ctx context.Context, subscriberID int64) ([]models.Letter, error) {
	rows, err := sr.DB.QueryContext(ctx,
		"SELECT * FROM letters WHERE subscriber_id = $1 AND is_sent = FALSE ORDER BY id", subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list unsent letters: %w", err)
	}
	defer rows.Close()

	result, err := models.ScanRowsToSliceOfModels(models.Letter{}, rows, 10)
	if err != nil {
		return nil, fmt.Errorf("scan letters: %w", err)
	}
	return *result.(*[]models.Letter), nil
}

func (sr *SqlRepo) MarkLetterSent(ctx context.Context, letterID int64) error {
	res, err := sr.DB.ExecContext(ctx, "UPDATE letters SET is_sent = TRUE WHERE id = $1", letterID)
	if err != nil {
		return fmt.Errorf("mark letter sent: %w", err)
	}
	return expectAffected(res)
}

// ResetSentLetters flips every sent letter of the subscriber back to unsent
// in a single statement and returns how many rows changed.
func (sr *SqlRepo) ResetSentLetters(ctx context.Context, subscriberID int64) (int64, error) {
	res, err := sr.DB.ExecContext(ctx,
		"UPDATE letters SET is_sent = FALSE WHERE subscriber_id = $1 AND is_sent = TRUE", subscriberID)
	if err != nil {
		return 0, fmt.Errorf("reset sent letters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
