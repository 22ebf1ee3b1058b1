package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vmarkelov/marketplace/internal/config"
	"github.com/vmarkelov/marketplace/internal/es"
	"github.com/vmarkelov/marketplace/internal/handlers"
	"github.com/vmarkelov/marketplace/internal/lifecycle"
	"github.com/vmarkelov/marketplace/internal/logging"
	"github.com/vmarkelov/marketplace/internal/mykafka"
	"github.com/vmarkelov/marketplace/internal/notify"
	"github.com/vmarkelov/marketplace/internal/repo"
	searchsvc "github.com/vmarkelov/marketplace/internal/service/search"
	"github.com/vmarkelov/marketplace/internal/service/token"
	httpserver "github.com/vmarkelov/marketplace/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	store := repo.NewGormRepo(db)

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	var indexer lifecycle.Indexer
	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		svc := searchsvc.NewService(esClient, "products")
		indexer = svc
		searchHandler = &handlers.SearchHandler{Svc: svc}
	}

	mailer := &notify.SMTPMailer{
		Host:     configuration.SMTP_HOST,
		Port:     configuration.SMTP_PORT,
		Username: configuration.SMTP_USER,
		Password: configuration.SMTP_PASSWORD,
	}
	notifier := notify.NewNotifier(mailer, logger, configuration.BASE_URL, configuration.MAIL_FROM)

	activation := &lifecycle.ActivationService{
		Repo:     store,
		Producer: prod,
		Indexer:  indexer,
		Logger:   logger,
	}

	sweeper := lifecycle.NewSweeper(store, notifier, prod, indexer, logger,
		configuration.SWEEP_INTERVAL, configuration.EXPIRY_WINDOW)
	sweeper.Start()

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{Repo: store, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler: &handlers.ProductHandler{Repo: store, Producer: prod, Activation: activation, Indexer: indexer},
		CommentHandler: &handlers.CommentHandler{Repo: store, Producer: prod},
		SearchHandler:  searchHandler,
		TokenService:   &token.TokenService{Repo: store, JWTSecret: jwtSecret, RefreshSecret: refreshSecret},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	sweeper.Stop()
	notifier.Close()

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	log.Println("shutdown complete")
}
