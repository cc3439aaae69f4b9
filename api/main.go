package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventboard/data/repository"
	"eventboard/mail"

	"github.com/gorilla/sessions"
)

type application struct {
	Config     Config
	Repo       repository.DBRepo
	Sessions   sessions.Store
	Scheduler  *mail.Scheduler
	Dispatcher *mail.Dispatcher
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	var app = &application{Config: cfg}

	db, err := app.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	defer db.Close()

	repo := &repository.SqlRepo{DB: db, PageSize: cfg.PageSize, MigrationsDir: cfg.MigrationsDir}
	app.Repo = repo

	if err = app.Repo.RunMigrations(cfg.DBName); err != nil {
		log.Fatal(err.Error())
	}

	app.Sessions = newSessionStore(cfg.SessionSecret)
	app.Scheduler = mail.NewScheduler()
	app.Dispatcher = mail.NewDispatcher(context.Background(), repo, app.transport(), app.Scheduler, mail.Options{
		Demo:       cfg.Demo(),
		ResetDelay: cfg.ResetDelay,
	})
	if cfg.Demo() {
		log.Println("Demo mode: sent letters are reset after", cfg.ResetDelay)
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	app.Scheduler.Shutdown()
	app.Dispatcher.Wait()
	log.Println("server stopped")
}

func (app *application) transport() mail.Transport {
	if app.Config.SMTPHost == "" {
		log.Println("SMTP_HOST not set, letters are only logged")
		return mail.LogTransport{}
	}
	return mail.NewSMTPTransport(app.Config.SMTPHost, app.Config.SMTPPort,
		app.Config.SMTPUser, app.Config.SMTPPassword, app.Config.MailFrom)
}
