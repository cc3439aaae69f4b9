package main

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"eventboard/data/models"
	"eventboard/data/repository"
	"eventboard/mail"

	"github.com/go-chi/chi/v5"
)

// CreateLetters creates a letter for every listed subscriber and answers with
// the subscriber summary. In demo mode the summary still counts the new
// letters, which are deleted once it has been built.
func (app *application) CreateLetters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return
	}
	emails := nonEmpty(r.PostForm["email"])
	subject := r.PostForm.Get("subject")
	text := r.PostForm.Get("text")
	ctx := r.Context()

	var created []models.Letter
	if len(emails) > 0 && subject != "" && text != "" {
		letters, err := app.Repo.CreateLetters(ctx, emails, subject, text)
		created = letters
		if err != nil {
			app.discardDemoLetters(r, created)
			app.serverError(w, r, err)
			return
		}
	}

	subscribers, err := app.Repo.SubscriberSummaries(ctx)
	if err != nil {
		app.discardDemoLetters(r, created)
		app.serverError(w, r, err)
		return
	}
	if app.Config.Demo() && len(created) > 0 {
		if err := app.Repo.DeleteLetters(ctx, letterIDs(created)); err != nil {
			app.serverError(w, r, err)
			return
		}
	}
	_ = app.SendJSON(w, http.StatusOK, plainJSON{"subscribers": subscribers})
}

// discardDemoLetters removes letters left behind by a failed demo request.
func (app *application) discardDemoLetters(r *http.Request, letters []models.Letter) {
	if !app.Config.Demo() || len(letters) == 0 {
		return
	}
	if err := app.Repo.DeleteLetters(r.Context(), letterIDs(letters)); err != nil {
		log.Printf("discard demo letters: %v", err)
	}
}

func letterIDs(letters []models.Letter) []int64 {
	ids := make([]int64, len(letters))
	for i, l := range letters {
		ids[i] = l.ID
	}
	return ids
}

// SendLetters dispatches the unsent letters of every listed subscriber in
// bulk. Unknown emails are skipped.
func (app *application) SendLetters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_ = app.SendErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	reports := []mail.Report{}
	for _, email := range nonEmpty(r.PostForm["email"]) {
		sub, err := app.Repo.GetSubscriberByEmail(r.Context(), email)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			app.serverError(w, r, err)
			return
		}

		report, err := app.Dispatcher.SendPost(r.Context(), sub, true)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		reports = append(reports, report)
	}

	_ = app.SendJSON(w, http.StatusOK, plainJSON{"ok": "ok", "reports": reports})
}

func (app *application) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subscribers, err := app.Repo.SubscriberSummaries(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	allSent, err := app.Repo.AllLettersSent(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	_ = app.SendJSON(w, http.StatusOK, plainJSON{"subscribers": subscribers, "all_emails_sent": allSent})
}

func (app *application) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := app.Scheduler.Get(chi.URLParam(r, "id"))
	if err != nil {
		_ = app.SendErrorJSON(w, http.StatusNotFound, err)
		return
	}
	_ = app.SendSuccessJSON(w, http.StatusOK, task.Info(), "task")
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
