package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventboard/data/models"
)

// Owner selects the column activity listings are filtered by.
type Owner int

const (
	ByEvent Owner = iota
	ByUser
)

func (o Owner) column(alias string) string {
	if o == ByUser {
		return alias + ".user_id"
	}
	return alias + ".event_id"
}

// GetEventDetail returns an annotated event with its enrollments and reviews.
func (sr *SqlRepo) GetEventDetail(ctx context.Context, id int64) (models.EventDetail, error) {
	q := &eventQuery{}
	q.where = append(q.where, "e.id = "+q.arg(id))
	query := q.selectSQL(defaultEventOrder, 1, 0)

	events, err := sr.listEvents(ctx, query, q.args)
	if err != nil {
		return models.EventDetail{}, err
	}
	if len(events) == 0 {
		return models.EventDetail{}, ErrNotFound
	}

	detail := models.EventDetail{EventListing: events[0]}
	if detail.Enrolls, err = sr.ListEnrolls(ctx, ByEvent, id); err != nil {
		return models.EventDetail{}, err
	}
	if detail.Reviews, err = sr.ListReviews(ctx, ByEvent, id); err != nil {
		return models.EventDetail{}, err
	}
	return detail, nil
}

// CreateEvent inserts the event and its feature links in one transaction.
func (sr *SqlRepo) CreateEvent(ctx context.Context, e models.Event, featureIDs []int64) (id int64, err error) {
	tx, err := sr.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if id, err = create(ctx, tx, e); err != nil {
		return 0, err
	}
	if err = setFeatures(ctx, tx, id, featureIDs); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

// UpdateEvent replaces the event row and its feature links.
func (sr *SqlRepo) UpdateEvent(ctx context.Context, e models.Event, featureIDs []int64) (err error) {
	tx, err := sr.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = update(ctx, tx, e); err != nil {
		return err
	}
	if err = setFeatures(ctx, tx, e.ID, featureIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func setFeatures(ctx context.Context, q queryer, eventID int64, featureIDs []int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM event_features WHERE event_id = $1", eventID); err != nil {
		return fmt.Errorf("clear event features: %w", err)
	}
	for _, fid := range featureIDs {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO event_features (event_id, feature_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			eventID, fid); err != nil {
			return fmt.Errorf("link feature %d: %w", fid, err)
		}
	}
	return nil
}

func (sr *SqlRepo) ListCategories(ctx context.Context) ([]models.CategorySummary, error) {
	rows, err := sr.DB.QueryContext(ctx,
		"SELECT c.id, c.title, COUNT(e.id) FROM categories c "+
			"LEFT JOIN events e ON e.category_id = c.id GROUP BY c.id ORDER BY c.id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.CategorySummary{}
	for rows.Next() {
		var c models.CategorySummary
		if err := rows.Scan(&c.ID, &c.Title, &c.EventCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (sr *SqlRepo) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	rows, err := sr.DB.QueryContext(ctx, "SELECT * FROM features ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	result, err := models.ScanRowsToSliceOfModels(models.Feature{}, rows, 25)
	if err != nil {
		return nil, fmt.Errorf("scan features: %w", err)
	}
	return *result.(*[]models.Feature), nil
}

// Enroll reserves a place for userID at eventID. The event row is locked for
// the duration of the check so concurrent enrollments cannot overbook it.
// Repeated enrollments by the same user are allowed.
func (sr *SqlRepo) Enroll(ctx context.Context, userID, eventID int64) (id int64, err error) {
	tx, err := sr.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	err = tx.QueryRowContext(ctx,
		"SELECT participants_number FROM events WHERE id = $1 FOR UPDATE", eventID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock event row: %w", err)
	}

	var enrolled int
	if err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM enrolls WHERE event_id = $1", eventID).Scan(&enrolled); err != nil {
		return 0, fmt.Errorf("count enrolls: %w", err)
	}
	if enrolled >= capacity {
		return 0, ErrEventFull
	}

	if id, err = create(ctx, tx, models.Enroll{UserID: userID, EventID: eventID}); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

func (sr *SqlRepo) ReviewExists(ctx context.Context, userID, eventID int64) (bool, error) {
	var exists bool
	err := sr.DB.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND event_id = $2)",
		userID, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return exists, nil
}

// ListEnrolls lists enrollments of an event, or of a user, together with the
// rate the enrolled user gave the event.
func (sr *SqlRepo) ListEnrolls(ctx context.Context, by Owner, id int64) ([]models.EnrollSummary, error) {
	query := "SELECT en.id, en.event_id, ev.title, u.username, " +
		"(SELECT AVG(rv.rate)::float8 FROM reviews rv WHERE rv.event_id = en.event_id AND rv.user_id = en.user_id), " +
		"en.created_at FROM enrolls en " +
		"JOIN users u ON u.id = en.user_id JOIN events ev ON ev.id = en.event_id " +
		"WHERE " + by.column("en") + " = $1 ORDER BY en.created_at, en.id"

	rows, err := sr.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list enrolls: %w", err)
	}
	defer rows.Close()

	enrolls := []models.EnrollSummary{}
	for rows.Next() {
		var e models.EnrollSummary
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventTitle, &e.UserName, &e.Rate, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enroll: %w", err)
		}
		enrolls = append(enrolls, e)
	}
	return enrolls, rows.Err()
}

func (sr *SqlRepo) ListReviews(ctx context.Context, by Owner, id int64) ([]models.ReviewSummary, error) {
	query := "SELECT rv.id, rv.event_id, ev.title, u.username, rv.rate, rv.text, rv.created_at, rv.updated_at " +
		"FROM reviews rv JOIN users u ON u.id = rv.user_id JOIN events ev ON ev.id = rv.event_id " +
		"WHERE " + by.column("rv") + " = $1 ORDER BY rv.created_at DESC, rv.id DESC"

	rows, err := sr.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.ReviewSummary{}
	for rows.Next() {
		var r models.ReviewSummary
		if err := rows.Scan(&r.ID, &r.EventID, &r.EventTitle, &r.UserName, &r.Rate, &r.Text,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (sr *SqlRepo) ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteSummary, error) {
	rows, err := sr.DB.QueryContext(ctx,
		"SELECT fv.id, fv.event_id, ev.title, fv.created_at FROM favorites fv "+
			"JOIN events ev ON ev.id = fv.event_id WHERE fv.user_id = $1 ORDER BY fv.created_at DESC, fv.id DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []models.FavoriteSummary{}
	for rows.Next() {
		var f models.FavoriteSummary
		if err := rows.Scan(&f.ID, &f.EventID, &f.EventTitle, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}
