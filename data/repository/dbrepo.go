package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"strings"

	"eventboard/data/filters"
	"eventboard/data/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

var (
	// ErrNotFound is returned when a record does not exist, or exists but is
	// not owned by the requesting user.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("record already exists")
	// ErrEventFull is returned when an event has no places left.
	ErrEventFull = errors.New("event is fully booked")
	// ErrInvalidSort is returned for a sort field events cannot be ordered by.
	ErrInvalidSort = errors.New("invalid sort value")
)

// DefaultPageSize is the number of events per listing page.
const DefaultPageSize = 9

type DBRepo interface {
	Connection() *sql.DB
	RunMigrations(dbName string) error
	Create(ctx context.Context, m models.Model) (id int64, err error)
	Update(ctx context.Context, m models.Model) error
	Delete(ctx context.Context, m models.Model) error
	DeleteOwned(ctx context.Context, m models.Model, userID int64) error
	GetModelByID(ctx context.Context, m models.Model, id int64) (models.Model, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetEventByID(ctx context.Context, id int64) (models.Event, error)

	QueryEvents(ctx context.Context, f filters.Event, sortBy string) (EventPage, error)
	GetEventDetail(ctx context.Context, id int64) (models.EventDetail, error)
	CreateEvent(ctx context.Context, e models.Event, featureIDs []int64) (int64, error)
	UpdateEvent(ctx context.Context, e models.Event, featureIDs []int64) error
	ListCategories(ctx context.Context) ([]models.CategorySummary, error)
	ListFeatures(ctx context.Context) ([]models.Feature, error)
	Enroll(ctx context.Context, userID, eventID int64) (int64, error)
	ReviewExists(ctx context.Context, userID, eventID int64) (bool, error)
	ListEnrolls(ctx context.Context, by Owner, id int64) ([]models.EnrollSummary, error)
	ListReviews(ctx context.Context, by Owner, id int64) ([]models.ReviewSummary, error)
	ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteSummary, error)

	GetSubscriberByEmail(ctx context.Context, email string) (models.Subscriber, error)
	SubscriberSummaries(ctx context.Context) ([]models.SubscriberSummary, error)
	CreateLetters(ctx context.Context, emails []string, subject, text string) ([]models.Letter, error)
	DeleteLetters(ctx context.Context, ids []int64) error
	AllLettersSent(ctx context.Context) (bool, error)
	UnsentLetters(ctx context.Context, subscriberID int64) ([]models.Letter, error)
	MarkLetterSent(ctx context.Context, letterID int64) error
	ResetSentLetters(ctx context.Context, subscriberID int64) (int64, error)
}

type SqlRepo struct {
	DB *sql.DB
	// PageSize defaults to DefaultPageSize.
	PageSize int
	// MigrationsDir overrides the migrations shipped next to this package.
	MigrationsDir string
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (sr *SqlRepo) Connection() *sql.DB {
	return sr.DB
}

func (sr *SqlRepo) pageSize() int {
	if sr.PageSize > 0 {
		return sr.PageSize
	}
	return DefaultPageSize
}

func (sr *SqlRepo) RunMigrations(dbName string) error {
	migrationsDir := sr.MigrationsDir
	if migrationsDir == "" {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			return fmt.Errorf("failed to get current file path")
		}
		migrationsDir = filepath.Join(filepath.Dir(filename), "../migrations")
	}
	// Convert backslashes to forward slashes for Windows compatibility
	migrationsDir = strings.ReplaceAll(migrationsDir, "\\", "/")

	log.Printf("Resolved migrations directory: %s", migrationsDir)

	driver, err := pgx.WithInstance(sr.DB, &pgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, dbName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Migrations complete")
	return nil
}

// Create inserts a model into the corresponding db table and returns id of the
// newly created record.
func (sr *SqlRepo) Create(ctx context.Context, m models.Model) (id int64, err error) {
	return create(ctx, sr.DB, m)
}

func create(ctx context.Context, q queryer, m models.Model) (id int64, err error) {
	vals := models.GetValsFromModel(m)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		m.TableName(),
		strings.Join(models.GetColumnNames(m, true), ", "),
		placeholders(len(vals)))

	if err := q.QueryRowContext(ctx, query, vals...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert into %s: %w", m.TableName(), ErrDuplicate)
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return id, nil
}

func (sr *SqlRepo) Update(ctx context.Context, m models.Model) error {
	return update(ctx, sr.DB, m)
}

func update(ctx context.Context, q queryer, m models.Model) error {
	columns := models.GetColumnNames(m, true)

	setClause := make([]string, len(columns))
	for i, c := range columns {
		setClause[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		m.TableName(),
		strings.Join(setClause, ", "),
		len(columns)+1)

	vals := models.GetValsFromModel(m)
	vals = append(vals, m.GetID())
	res, err := q.ExecContext(ctx, query, vals...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update %s: %w", m.TableName(), ErrDuplicate)
		}
		return fmt.Errorf("error executing query: %w", err)
	}
	return expectAffected(res)
}

func (sr *SqlRepo) Delete(ctx context.Context, m models.Model) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", m.TableName())
	res, err := sr.DB.ExecContext(ctx, query, m.GetID())
	if err != nil {
		return fmt.Errorf("error deleting record: %w", err)
	}
	return expectAffected(res)
}

// DeleteOwned deletes the record only when it belongs to userID. A record
// owned by someone else is reported as ErrNotFound.
func (sr *SqlRepo) DeleteOwned(ctx context.Context, m models.Model, userID int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND user_id = $2", m.TableName())
	res, err := sr.DB.ExecContext(ctx, query, m.GetID(), userID)
	if err != nil {
		return fmt.Errorf("error deleting record: %w", err)
	}
	return expectAffected(res)
}

// GetModelByID retrieves a model from the db by its ID and returns it. The
// model must be passed as a pointer to the desired model type.
func (sr *SqlRepo) GetModelByID(ctx context.Context, m models.Model, id int64) (models.Model, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", m.TableName())
	r := sr.DB.QueryRowContext(ctx, query, id)

	if err := models.ScanRowToModel(m, r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (sr *SqlRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	model, err := sr.GetModelByID(ctx, &models.User{}, id)
	if err != nil {
		return models.User{}, err
	}

	user, ok := model.(*models.User)
	if !ok {
		return models.User{}, fmt.Errorf("type assertion to User failed")
	}

	return *user, nil
}

func (sr *SqlRepo) GetEventByID(ctx context.Context, id int64) (models.Event, error) {
	model, err := sr.GetModelByID(ctx, &models.Event{}, id)
	if err != nil {
		return models.Event{}, err
	}

	event, ok := model.(*models.Event)
	if !ok {
		return models.Event{}, fmt.Errorf("type assertion to Event failed")
	}

	return *event, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := 1; i <= n; i++ {
		ph[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(ph, ", ")
}
