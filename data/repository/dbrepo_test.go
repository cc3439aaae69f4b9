package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventboard/data/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users (username, email) VALUES ($1, $2) RETURNING id").
		WithArgs("alice", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	id, err := repo.Create(context.Background(), models.User{Username: "alice", Email: "alice@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO favorites (user_id, event_id) VALUES ($1, $2) RETURNING id").
		WithArgs(1, 2).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.Create(context.Background(), models.Favorite{UserID: 1, EventID: 2})
	assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE events SET title = $1, description = $2, date_start = $3, " +
		"participants_number = $4, is_private = $5, category_id = $6 WHERE id = $7").
		WithArgs("Jazz night", "", start, 20, false, nil, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), models.Event{ID: 7, Title: "Jazz night", DateStart: start, ParticipantsNumber: 20})
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOwned(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM reviews WHERE id = $1 AND user_id = $2").
		WithArgs(4, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM reviews WHERE id = $1 AND user_id = $2").
		WithArgs(4, 6).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	assert.Equal(t, ErrNotFound, repo.DeleteOwned(ctx, models.Review{ID: 4}, 5))
	assert.NoError(t, repo.DeleteOwned(ctx, models.Review{ID: 4}, 6))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT * FROM events WHERE id = $1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "date_start",
			"participants_number", "is_private", "category_id", "created_at"}).
			AddRow(1, "Test Event", "A test event", start, 10, false, int64(3), start))
	mock.ExpectQuery("SELECT * FROM events WHERE id = $1").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	e, err := repo.GetEventByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Test Event", e.Title)
	assert.Equal(t, 10, e.ParticipantsNumber)
	require.NotNil(t, e.CategoryID)
	assert.Equal(t, int64(3), *e.CategoryID)

	_, err = repo.GetEventByID(context.Background(), 2)
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnroll(t *testing.T) {
	const lock = "SELECT participants_number FROM events WHERE id = $1 FOR UPDATE"
	const count = "SELECT COUNT(*) FROM enrolls WHERE event_id = $1"

	t.Run("places left", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"p"}).AddRow(2))
		mock.ExpectQuery(count).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"c"}).AddRow(1))
		mock.ExpectQuery("INSERT INTO enrolls (user_id, event_id) VALUES ($1, $2) RETURNING id").
			WithArgs(5, 9).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectCommit()

		id, err := repo.Enroll(context.Background(), 5, 9)
		assert.NoError(t, err)
		assert.Equal(t, int64(11), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full event", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"p"}).AddRow(2))
		mock.ExpectQuery(count).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"c"}).AddRow(2))
		mock.ExpectRollback()

		_, err := repo.Enroll(context.Background(), 5, 9)
		assert.Equal(t, ErrEventFull, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown event", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"p"}))
		mock.ExpectRollback()

		_, err := repo.Enroll(context.Background(), 5, 9)
		assert.Equal(t, ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	cat := int64(2)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO events (title, description, date_start, participants_number, is_private, category_id) " +
		"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id").
		WithArgs("Jazz night", "Live", start, 20, false, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("DELETE FROM event_features WHERE event_id = $1").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO event_features (event_id, feature_id) VALUES ($1, $2) ON CONFLICT DO NOTHING").
		WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO event_features (event_id, feature_id) VALUES ($1, $2) ON CONFLICT DO NOTHING").
		WithArgs(7, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.CreateEvent(context.Background(), models.Event{
		Title: "Jazz night", Description: "Live", DateStart: start, ParticipantsNumber: 20, CategoryID: &cat,
	}, []int64{1, 3})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewExists(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND event_id = $2)").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ReviewExists(context.Background(), 1, 2)
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
