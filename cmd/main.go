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

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"catalog/internal/admin"
	"catalog/internal/config"
	"catalog/internal/handlers"
	"catalog/internal/migrations"
	"catalog/internal/repositories"
	"catalog/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// The schema is owned by the goose migrations; GORM never auto-migrates.
	if cfg.MigrateOnStart {
		if err := migrations.Up(sqlDB); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	site, err := admin.Default()
	if err != nil {
		log.Fatalf("failed to load admin configuration: %v", err)
	}

	genreRepo := repositories.NewGenreRepository(db)
	languageRepo := repositories.NewLanguageRepository(db)
	authorRepo := repositories.NewAuthorRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	instanceRepo := repositories.NewBookInstanceRepository(db)

	catalogService := services.NewCatalogService(db, genreRepo, languageRepo, authorRepo, bookRepo, instanceRepo)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), handlers.RequestID())

	handlers.RegisterRoutes(router, site, catalogService, cfg.AdminPerPage)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[INFO] shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] graceful shutdown failed: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("[WARN] closing database: %v", err)
	}
}
