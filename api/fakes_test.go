package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"eventboard/data/filters"
	"eventboard/data/models"
	"eventboard/data/repository"

	"github.com/stretchr/testify/require"
)

// fakeRepo keeps just enough state in memory for the handlers under test.
// Methods it does not override panic through the nil embedded interface.
type fakeRepo struct {
	repository.DBRepo

	mu          sync.Mutex
	nextID      int64
	users       map[int64]models.User
	events      map[int64]models.EventListing
	reviews     []models.Review
	favorites   []models.Favorite
	subscribers []models.Subscriber
	letters     []models.Letter
	ownedBy     map[int64]int64

	queries []filters.Event
	sorts   []string

	// createErr is returned by CreateLetters after its inserts.
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID: 100,
		users:  map[int64]models.User{1: {ID: 1, Username: "alice"}, 2: {ID: 2, Username: "bob"}},
		events: map[int64]models.EventListing{
			1: {Event: models.Event{ID: 1, Title: "Jazz night", ParticipantsNumber: 10}, EnrollCount: 5},
			2: {Event: models.Event{ID: 2, Title: "Sold out", ParticipantsNumber: 2}, EnrollCount: 2},
		},
		subscribers: []models.Subscriber{
			{ID: 1, Email: sql.NullString{String: "a@x.com", Valid: true}},
		},
		ownedBy: map[int64]int64{7: 1},
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) Create(ctx context.Context, m models.Model) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := m.(type) {
	case models.Review:
		for _, r := range f.reviews {
			if r.UserID == v.UserID && r.EventID == v.EventID {
				return 0, repository.ErrDuplicate
			}
		}
		v.ID = f.id()
		f.reviews = append(f.reviews, v)
		return v.ID, nil
	case models.Favorite:
		for _, fv := range f.favorites {
			if fv.UserID == v.UserID && fv.EventID == v.EventID {
				return 0, repository.ErrDuplicate
			}
		}
		v.ID = f.id()
		f.favorites = append(f.favorites, v)
		return v.ID, nil
	}
	return f.id(), nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetEventByID(ctx context.Context, id int64) (models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return models.Event{}, repository.ErrNotFound
	}
	return e.Event, nil
}

func (f *fakeRepo) ReviewExists(ctx context.Context, userID, eventID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.UserID == userID && r.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) QueryEvents(ctx context.Context, flt filters.Event, sortBy string) (repository.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, flt)
	f.sorts = append(f.sorts, sortBy)
	if sortBy == "bogus" {
		return repository.EventPage{}, repository.ErrInvalidSort
	}
	page := flt.Page
	if page < 1 {
		page = 1
	}
	events := []models.EventListing{}
	for _, id := range []int64{2, 1} {
		e := f.events[id]
		e.Annotate()
		events = append(events, e)
	}
	return repository.EventPage{Events: events, Page: page, PageSize: 9, Total: len(events)}, nil
}

func (f *fakeRepo) lastQuery() filters.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeRepo) Enroll(ctx context.Context, userID, eventID int64) (int64, error) {
	e, ok := f.events[eventID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if e.EnrollCount >= e.ParticipantsNumber {
		return 0, repository.ErrEventFull
	}
	return f.id(), nil
}

func (f *fakeRepo) DeleteOwned(ctx context.Context, m models.Model, userID int64) error {
	if owner, ok := f.ownedBy[m.GetID()]; !ok || owner != userID {
		return repository.ErrNotFound
	}
	return nil
}

func (f *fakeRepo) GetSubscriberByEmail(ctx context.Context, email string) (models.Subscriber, error) {
	for _, s := range f.subscribers {
		if strings.EqualFold(s.Email.String, strings.TrimSpace(email)) {
			return s, nil
		}
	}
	return models.Subscriber{}, repository.ErrNotFound
}

func (f *fakeRepo) CreateLetters(ctx context.Context, emails []string, subject, text string) ([]models.Letter, error) {
	created := []models.Letter{}
	for _, email := range emails {
		s, err := f.GetSubscriberByEmail(ctx, email)
		if err != nil {
			continue
		}
		f.mu.Lock()
		l := models.Letter{ID: f.id(), SubscriberID: s.ID, Subject: subject, Text: text}
		f.letters = append(f.letters, l)
		f.mu.Unlock()
		created = append(created, l)
	}
	return created, f.createErr
}

func (f *fakeRepo) DeleteLetters(ctx context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[int64]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.letters[:0]
	for _, l := range f.letters {
		if !drop[l.ID] {
			kept = append(kept, l)
		}
	}
	f.letters = kept
	return nil
}

func (f *fakeRepo) SubscriberSummaries(ctx context.Context) ([]models.SubscriberSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.SubscriberSummary{}
	for _, s := range f.subscribers {
		sum := models.SubscriberSummary{Email: s.Email.String}
		for _, l := range f.letters {
			if l.SubscriberID == s.ID {
				sum.LetterCount++
				if l.IsSent {
					sum.SentLetterCount++
				}
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

func (f *fakeRepo) AllLettersSent(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.letters {
		if !l.IsSent {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeRepo) UnsentLetters(ctx context.Context, subscriberID int64) ([]models.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Letter
	for _, l := range f.letters {
		if l.SubscriberID == subscriberID && !l.IsSent {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkLetterSent(ctx context.Context, letterID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.letters {
		if f.letters[i].ID == letterID {
			f.letters[i].IsSent = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRepo) ResetSentLetters(ctx context.Context, subscriberID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.letters {
		if f.letters[i].SubscriberID == subscriberID && f.letters[i].IsSent {
			f.letters[i].IsSent = false
			n++
		}
	}
	return n, nil
}

func newTestApp(repo *fakeRepo) *application {
	return &application{
		Config:   Config{Debug: true},
		Repo:     repo,
		Sessions: newSessionStore("test-session-secret"),
	}
}

// loginCookie returns a session cookie that authenticates userID.
func loginCookie(t *testing.T, app *application, userID int64) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s, err := app.Sessions.Get(req, sessionName)
	require.NoError(t, err)
	s.Values[userKey] = userID
	require.NoError(t, s.Save(req, rec))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}
