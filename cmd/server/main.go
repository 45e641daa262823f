package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avolkov/shop-admin/internal/config"
	"github.com/avolkov/shop-admin/internal/es"
	"github.com/avolkov/shop-admin/internal/httpserver"
	"github.com/avolkov/shop-admin/internal/logging"
	loggingmw "github.com/avolkov/shop-admin/internal/middleware/logging"
	"github.com/avolkov/shop-admin/internal/models"
	"github.com/avolkov/shop-admin/internal/mykafka"
	"github.com/avolkov/shop-admin/internal/repo"
	"github.com/avolkov/shop-admin/internal/service"
	"github.com/avolkov/shop-admin/pkg/db"
)

func main() {
	cfg := config.Load()
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := models.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
	}

	var searchHTTP httpserver.SearchHTTP
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		searchHTTP = httpserver.SearchHTTP{ES: esClient, Index: "products"}
	}

	r := repo.New(gdb)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Auth:       &httpserver.AuthHTTP{Svc: &service.AuthService{Repo: r, JWTSecret: cfg.JWTSecret}},
		Users:      &httpserver.UserHTTP{Svc: &service.UserService{Repo: r}},
		Products:   &httpserver.ProductHTTP{Svc: &service.ProductService{Repo: r}, Producer: producer},
		Categories: &httpserver.CategoryHTTP{Svc: &service.CategoryService{Repo: r}},
		Reviews:    &httpserver.ReviewHTTP{Svc: &service.ReviewService{Repo: r}, Producer: producer},
		Orders:     &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r}, Producer: producer},
		Analytics:  &httpserver.AnalyticsHTTP{Svc: &service.AnalyticsService{Repo: r}},
		Search:     &searchHTTP,
		JWTSecret:  cfg.JWTSecret,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
