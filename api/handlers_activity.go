package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventboard/data/models"
	"eventboard/data/repository"
)

const (
	msgEventNotFound  = "Событие не найдено"
	msgAnonymous      = "Отзывы могут отправлять только зарегистрированные пользователи"
	msgDuplicate      = "Вы уже отправляли отзыв к этому событию"
	msgRequiredFields = "Оценка и текст отзыва - обязательные поля"
	msgInvalidRate    = "Оценка должна быть от 1 до 5"

	reviewDateLayout = "02.01.2006"
)

func (app *application) CreateEnroll(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	eventID, ok := app.formID(w, r, "event")
	if !ok {
		return
	}

	id, err := app.Repo.Enroll(r.Context(), userID, eventID)
	if err != nil {
		app.repoError(w, r, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusCreated, map[string]int64{"id": id, "event_id": eventID}, "enroll")
}

func (app *application) CreateFavorite(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	eventID, ok := app.formID(w, r, "event")
	if !ok {
		return
	}

	if _, err := app.Repo.GetEventByID(r.Context(), eventID); err != nil {
		app.repoError(w, r, err)
		return
	}

	id, err := app.Repo.Create(r.Context(), models.Favorite{UserID: userID, EventID: eventID})
	if err != nil {
		app.repoError(w, r, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusCreated, map[string]int64{"id": id, "event_id": eventID}, "favorite")
}

// CreateReview answers with {ok, msg, rate, text, created, user_name}; a
// rejected review is reported through ok and msg.
func (app *application) CreateReview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	rate := r.PostForm.Get("rate")
	text := r.PostForm.Get("text")
	now := time.Now()
	res := plainJSON{
		"ok":        true,
		"msg":       "",
		"rate":      rate,
		"text":      text,
		"created":   now.Format(reviewDateLayout),
		"user_name": "",
	}
	reject := func(status int, msg string) {
		res["ok"] = false
		res["msg"] = msg
		_ = app.SendJSON(w, status, res)
	}

	eventID, err := strconv.ParseInt(r.PostForm.Get("event_id"), 10, 64)
	if err != nil {
		reject(http.StatusOK, msgEventNotFound)
		return
	}
	if _, err := app.Repo.GetEventByID(r.Context(), eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			reject(http.StatusOK, msgEventNotFound)
			return
		}
		app.serverError(w, r, err)
		return
	}

	userID, ok := currentUser(r)
	if !ok {
		reject(http.StatusForbidden, msgAnonymous)
		return
	}
	user, err := app.Repo.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			reject(http.StatusForbidden, msgAnonymous)
			return
		}
		app.serverError(w, r, err)
		return
	}
	res["user_name"] = user.Username

	exists, err := app.Repo.ReviewExists(r.Context(), userID, eventID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if exists {
		reject(http.StatusOK, msgDuplicate)
		return
	}

	if strings.TrimSpace(rate) == "" || strings.TrimSpace(text) == "" {
		reject(http.StatusOK, msgRequiredFields)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(rate))
	review := models.Review{UserID: userID, EventID: eventID, Rate: n, Text: text, CreatedAt: now, UpdatedAt: now}
	if err != nil || models.ValidateModel(review) != nil {
		reject(http.StatusOK, msgInvalidRate)
		return
	}

	if _, err := app.Repo.Create(r.Context(), review); err != nil {
		// A concurrent submission got there first.
		if errors.Is(err, repository.ErrDuplicate) {
			reject(http.StatusOK, msgDuplicate)
			return
		}
		app.serverError(w, r, err)
		return
	}

	_ = app.SendJSON(w, http.StatusOK, res)
}

func (app *application) DeleteEnroll(w http.ResponseWriter, r *http.Request) {
	app.deleteOwned(w, r, func(id int64) models.Model { return models.Enroll{ID: id} })
}

func (app *application) DeleteReview(w http.ResponseWriter, r *http.Request) {
	app.deleteOwned(w, r, func(id int64) models.Model { return models.Review{ID: id} })
}

func (app *application) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	app.deleteOwned(w, r, func(id int64) models.Model { return models.Favorite{ID: id} })
}

// deleteOwned deletes the record named by the id URL parameter if it belongs
// to the current user. Records of other users look missing.
func (app *application) deleteOwned(w http.ResponseWriter, r *http.Request, model func(id int64) models.Model) {
	userID, _ := currentUser(r)
	id, ok := app.idParam(w, r)
	if !ok {
		return
	}

	if err := app.Repo.DeleteOwned(r.Context(), model(id), userID); err != nil {
		app.repoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	ctx := r.Context()

	user, err := app.Repo.GetUserByID(ctx, userID)
	if err != nil {
		app.repoError(w, r, err)
		return
	}
	enrolls, err := app.Repo.ListEnrolls(ctx, repository.ByUser, userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	reviews, err := app.Repo.ListReviews(ctx, repository.ByUser, userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	favorites, err := app.Repo.ListFavorites(ctx, userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	_ = app.SendSuccessJSON(w, http.StatusOK, map[string]interface{}{
		"user":      user,
		"enrolls":   enrolls,
		"reviews":   reviews,
		"favorites": favorites,
	})
}

func (app *application) formID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	if err := r.ParseForm(); err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return 0, false
	}
	id, err := strconv.ParseInt(r.PostForm.Get(key), 10, 64)
	if err != nil || id < 1 {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, errors.New("invalid "+key))
		return 0, false
	}
	return id, true
}
