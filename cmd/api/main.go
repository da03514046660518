package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/sitewise/cog/internal/application"
	appanalysis "github.com/sitewise/cog/internal/application/analysis"
	appgeocoding "github.com/sitewise/cog/internal/application/geocoding"
	"github.com/sitewise/cog/internal/config"
	analysisdomain "github.com/sitewise/cog/internal/domain/analysis"
	geodomain "github.com/sitewise/cog/internal/domain/geocoding"
	"github.com/sitewise/cog/internal/infra/db/mysql"
	"github.com/sitewise/cog/internal/infra/db/postgres"
	"github.com/sitewise/cog/internal/infra/events"
	"github.com/sitewise/cog/internal/infra/geocoder/opencage"
	"github.com/sitewise/cog/internal/infra/httpserver"
	minioStore "github.com/sitewise/cog/internal/infra/storage"
	"github.com/sitewise/cog/internal/middleware"
)

// itemStore is the document store both services persist through.
type itemStore interface {
	analysisdomain.Repository
	geodomain.Cache
}

func main() {
	// .env is optional, real deployments use the environment directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	var db *sql.DB
	var store itemStore
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		store = postgres.NewItemStore(db)
	default:
		db, err = mysql.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		store = mysql.NewItemStore(db)
	}
	defer db.Close()

	objects, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	geocoder := opencage.NewClient(cfg.Geocoder.Endpoint, cfg.Geocoder.APIKey)

	analysisSvc := &appanalysis.Service{
		Repo:         store,
		Rows:         objects,
		Clock:        application.SystemClock{},
		MaxLocations: cfg.Limits.MaxLocations,
		CacheEnabled: cfg.Cache.Enabled,
	}
	geocodingSvc := &appgeocoding.Service{
		Geocoder:     geocoder,
		Cache:        store,
		Clock:        application.SystemClock{},
		MaxBatchSize: cfg.Limits.MaxBatchSize,
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTLDays: cfg.Cache.TTLDays,
	}

	if cfg.Kafka.Enabled {
		pub := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer pub.Close()
		analysisSvc.Events = pub
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(60, 1))
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	}

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(analysisSvc, geocodingSvc))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
