package repository

import (
	"context"
	"fmt"
	"strings"

	"eventboard/data/filters"
	"eventboard/data/models"
)

const (
	// enrollCount is the annotation every listing carries.
	enrollCount = "COUNT(DISTINCT en.id)"

	eventListColumns = "e.id, e.title, e.description, e.date_start, e.participants_number, e.is_private, " +
		"e.category_id, e.created_at, COALESCE(c.title, ''), " + enrollCount

	eventListFrom = "FROM events e " +
		"LEFT JOIN categories c ON c.id = e.category_id " +
		"LEFT JOIN enrolls en ON en.event_id = e.id"

	eventListGroup = "GROUP BY e.id, c.title"

	defaultEventOrder = "e.id DESC"
)

// EventPage is one page of an event listing.
type EventPage struct {
	Events   []models.EventListing `json:"events"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Total    int                   `json:"total"`
	HasNext  bool                  `json:"has_next"`
}

// eventQuery accumulates WHERE and HAVING parts together with their
// positional arguments.
type eventQuery struct {
	where  []string
	having []string
	args   []interface{}
}

// arg registers a value and returns its placeholder.
func (q *eventQuery) arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// buildEventQuery translates a filter into SQL predicates. Each feature gets
// its own EXISTS clause so an event must carry every requested feature.
func buildEventQuery(f filters.Event) *eventQuery {
	q := &eventQuery{}

	if f.Title != "" {
		q.where = append(q.where, "e.title ILIKE "+q.arg("%"+escapeLike(f.Title)+"%"))
	}
	if f.CategoryID != nil {
		q.where = append(q.where, "e.category_id = "+q.arg(*f.CategoryID))
	}
	for _, id := range f.FeatureIDs {
		q.where = append(q.where,
			"EXISTS (SELECT 1 FROM event_features ef WHERE ef.event_id = e.id AND ef.feature_id = "+q.arg(id)+")")
	}
	if f.StartAfter != nil {
		q.where = append(q.where, "e.date_start > "+q.arg(*f.StartAfter))
	}
	if f.StartBefore != nil {
		q.where = append(q.where, "e.date_start < "+q.arg(*f.StartBefore))
	}
	if f.IsPrivate {
		q.where = append(q.where, "e.is_private = "+q.arg(true))
	}
	if f.Available {
		q.having = append(q.having, enrollCount+" < e.participants_number")
	}
	if f.Fullness != nil {
		q.having = append(q.having, f.Fullness.Predicate("e.participants_number", enrollCount))
	}

	return q
}

// clauses renders FROM through HAVING.
func (q *eventQuery) clauses() string {
	parts := []string{eventListFrom}
	if len(q.where) > 0 {
		parts = append(parts, "WHERE "+strings.Join(q.where, " AND "))
	}
	parts = append(parts, eventListGroup)
	if len(q.having) > 0 {
		parts = append(parts, "HAVING "+strings.Join(q.having, " AND "))
	}
	return strings.Join(parts, " ")
}

func (q *eventQuery) countSQL() string {
	return "SELECT COUNT(*) FROM (SELECT e.id " + q.clauses() + ") AS filtered"
}

// selectSQL appends ordering and pagination; it registers limit and offset as
// arguments, so call it after countSQL has been executed with q.args.
func (q *eventQuery) selectSQL(order string, limit, offset int) string {
	return fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %s OFFSET %s",
		eventListColumns, q.clauses(), order, q.arg(limit), q.arg(offset))
}

// buildEventOrder resolves an admin sortBy value ("field" or "-field") to an
// ORDER BY expression. An empty value yields the newest-first default.
func buildEventOrder(sortBy string) (string, error) {
	if sortBy == "" {
		return defaultEventOrder, nil
	}

	order := "ASC"
	if strings.HasPrefix(sortBy, "-") {
		order = "DESC"
		sortBy = strings.TrimPrefix(sortBy, "-")
	}

	if sortBy == "enroll_count" {
		return fmt.Sprintf("%s %s, %s", enrollCount, order, defaultEventOrder), nil
	}

	column := models.MapJsonTagsToDB(models.Event{})[sortBy]
	if column == "" {
		return "", fmt.Errorf("%w: %v", ErrInvalidSort, sortBy)
	}
	if column == "id" {
		return "e.id " + order, nil
	}
	return fmt.Sprintf("e.%s %s, %s", column, order, defaultEventOrder), nil
}

// QueryEvents returns one page of events matching f, annotated with
// enrollment counts and features. Without sortBy the newest events come
// first.
func (sr *SqlRepo) QueryEvents(ctx context.Context, f filters.Event, sortBy string) (EventPage, error) {
	order, err := buildEventOrder(sortBy)
	if err != nil {
		return EventPage{}, fmt.Errorf("invalid query: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := sr.pageSize()
	result := EventPage{Page: page, PageSize: size, Events: []models.EventListing{}}

	q := buildEventQuery(f)
	if err := sr.DB.QueryRowContext(ctx, q.countSQL(), q.args...).Scan(&result.Total); err != nil {
		return EventPage{}, fmt.Errorf("count events: %w", err)
	}
	if result.Total == 0 {
		return result, nil
	}

	offset := (page - 1) * size
	query := q.selectSQL(order, size, offset)
	events, err := sr.listEvents(ctx, query, q.args)
	if err != nil {
		return EventPage{}, err
	}
	result.Events = events
	result.HasNext = offset+len(events) < result.Total

	return result, nil
}

func (sr *SqlRepo) listEvents(ctx context.Context, query string, args []interface{}) ([]models.EventListing, error) {
	rows, err := sr.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []models.EventListing{}
	for rows.Next() {
		var l models.EventListing
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.DateStart, &l.ParticipantsNumber,
			&l.IsPrivate, &l.CategoryID, &l.CreatedAt, &l.CategoryTitle, &l.EnrollCount); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := sr.attachFeatures(ctx, events); err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Annotate()
	}
	return events, nil
}

// attachFeatures loads the features of all listed events in one query.
func (sr *SqlRepo) attachFeatures(ctx context.Context, events []models.EventListing) error {
	if len(events) == 0 {
		return nil
	}

	index := make(map[int64]int, len(events))
	args := make([]interface{}, len(events))
	for i, e := range events {
		index[e.ID] = i
		args[i] = e.ID
	}

	query := fmt.Sprintf("SELECT ef.event_id, f.id, f.title FROM event_features ef "+
		"JOIN features f ON f.id = ef.feature_id WHERE ef.event_id IN (%s) ORDER BY f.id",
		placeholders(len(args)))

	rows, err := sr.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list event features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID int64
		var f models.Feature
		if err := rows.Scan(&eventID, &f.ID, &f.Title); err != nil {
			return fmt.Errorf("scan event feature: %w", err)
		}
		if i, ok := index[eventID]; ok {
			events[i].Features = append(events[i].Features, f)
		}
	}
	return rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
