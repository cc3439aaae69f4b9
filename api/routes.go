package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.authenticate)

	r.Get("/health", app.Health)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", app.ListEvents)
		r.Get("/{id}", app.GetEvent)
		// Anonymous reviews get a message instead of a bare 403.
		r.Post("/review", app.CreateReview)

		r.Group(func(r chi.Router) {
			r.Use(app.requireUser)
			r.Post("/", app.CreateEvent)
			r.Put("/{id}", app.UpdateEvent)
			r.Delete("/{id}", app.DeleteEvent)
			r.Post("/enroll", app.CreateEnroll)
			r.Post("/favorite", app.CreateFavorite)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(app.requireUser)
		r.Delete("/enrolls/{id}", app.DeleteEnroll)
		r.Delete("/reviews/{id}", app.DeleteReview)
		r.Delete("/favorites/{id}", app.DeleteFavorite)
		r.Get("/profile", app.Profile)
		r.Get("/admin/events", app.AdminEvents)
	})

	r.Get("/categories", app.ListCategories)
	r.Get("/features", app.ListFeatures)

	r.Route("/mail", func(r chi.Router) {
		r.Post("/letters", app.CreateLetters)
		r.Post("/send", app.SendLetters)
		r.Get("/subscribers", app.ListSubscribers)
		r.Get("/tasks/{id}", app.GetTask)
	})

	return r
}
