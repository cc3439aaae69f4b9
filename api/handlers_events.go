package main

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"eventboard/data/filters"
	"eventboard/data/models"
	"eventboard/data/repository"

	"github.com/go-chi/chi/v5"
)

var (
	errForbidden = errors.New("authentication required")
	errNotFound  = errors.New("not found")
)

type eventPayload struct {
	Title              string    `json:"title" validate:"required,max=200"`
	Description        string    `json:"description"`
	DateStart          time.Time `json:"date_start" validate:"required"`
	ParticipantsNumber int       `json:"participants_number" validate:"min=1,max=32767"`
	IsPrivate          bool      `json:"is_private"`
	CategoryID         *int64    `json:"category_id"`
	FeatureIDs         []int64   `json:"feature_ids"`
}

func (p eventPayload) event(id int64) models.Event {
	return models.Event{
		ID:                 id,
		Title:              p.Title,
		Description:        p.Description,
		DateStart:          p.DateStart,
		ParticipantsNumber: p.ParticipantsNumber,
		IsPrivate:          p.IsPrivate,
		CategoryID:         p.CategoryID,
	}
}

type eventList struct {
	repository.EventPage
	Filter url.Values `json:"filter"`
}

type adminEvent struct {
	models.EventListing
	PlacesLeftLabel string `json:"places_left_label"`
}

func (app *application) Health(w http.ResponseWriter, r *http.Request) {
	_ = app.SendJSON(w, http.StatusOK, plainJSON{"status": "ok"})
}

// ListEvents lists events with the filters of the request, or the filters
// remembered in the session when the request only turns the page.
func (app *application) ListEvents(w http.ResponseWriter, r *http.Request) {
	s := app.session(r)
	res := filters.Resolve(r.URL.Query(), storedFilter(s))

	// A rejected mapping is never remembered.
	f, err := filters.Parse(res.Effective)
	if err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	storeFilter(s, res.Persist)
	if err := s.Save(r, w); err != nil {
		app.serverError(w, r, err)
		return
	}

	page, err := app.Repo.QueryEvents(r.Context(), f, "")
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	effective := res.Effective
	if effective == nil {
		effective = url.Values{}
	}
	_ = app.SendSuccessJSON(w, http.StatusOK, eventList{EventPage: page, Filter: effective})
}

func (app *application) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := app.idParam(w, r)
	if !ok {
		return
	}

	detail, err := app.Repo.GetEventDetail(r.Context(), id)
	if err != nil {
		app.repoError(w, r, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusOK, detail, "event")
}

func (app *application) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var p eventPayload
	if err := app.ReadJSON(w, r, &p, true); err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	id, err := app.Repo.CreateEvent(r.Context(), p.event(0), p.FeatureIDs)
	if err != nil {
		app.repoError(w, r, err)
		return
	}

	detail, err := app.Repo.GetEventDetail(r.Context(), id)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusCreated, detail, "event")
}

func (app *application) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := app.idParam(w, r)
	if !ok {
		return
	}

	var p eventPayload
	if err := app.ReadJSON(w, r, &p, true); err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	if err := app.Repo.UpdateEvent(r.Context(), p.event(id), p.FeatureIDs); err != nil {
		app.repoError(w, r, err)
		return
	}

	detail, err := app.Repo.GetEventDetail(r.Context(), id)
	if err != nil {
		app.repoError(w, r, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusOK, detail, "event")
}

func (app *application) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := app.idParam(w, r)
	if !ok {
		return
	}

	if err := app.Repo.Delete(r.Context(), models.Event{ID: id}); err != nil {
		app.repoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := app.Repo.ListCategories(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusOK, categories, "categories")
}

func (app *application) ListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := app.Repo.ListFeatures(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusOK, features, "features")
}

// AdminEvents lists events for the back office. It accepts the same filters as
// ListEvents plus sortBy, and never touches the session.
func (app *application) AdminEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f, err := filters.Parse(query)
	if err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	page, err := app.Repo.QueryEvents(r.Context(), f, query.Get(filters.KeySortBy))
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
			return
		}
		app.serverError(w, r, err)
		return
	}

	events := make([]adminEvent, len(page.Events))
	for i, e := range page.Events {
		events[i] = adminEvent{
			EventListing:    e,
			PlacesLeftLabel: models.PlacesLeftLabel(e.ParticipantsNumber, e.EnrollCount),
		}
	}

	_ = app.SendSuccessJSON(w, http.StatusOK, map[string]interface{}{
		"events":    events,
		"page":      page.Page,
		"page_size": page.PageSize,
		"total":     page.Total,
		"has_next":  page.HasNext,
	})
}

func (app *application) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

// repoError maps repository sentinel errors to client errors and anything
// else to a 500.
func (app *application) repoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		_ = app.SendErrorJSON(w, http.StatusNotFound, errNotFound)
	case errors.Is(err, repository.ErrDuplicate):
		_ = app.SendErrorJSON(w, http.StatusConflict, repository.ErrDuplicate)
	case errors.Is(err, repository.ErrEventFull):
		_ = app.SendErrorJSON(w, http.StatusConflict, repository.ErrEventFull)
	default:
		app.serverError(w, r, err)
	}
}
