package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geodirectory-sync/internal/cache"
	"geodirectory-sync/internal/config"
	"geodirectory-sync/internal/domain"
	"geodirectory-sync/internal/geodirectory"
	"geodirectory-sync/internal/handler"
	"geodirectory-sync/internal/logging"
	"geodirectory-sync/internal/metrics"
	"geodirectory-sync/internal/middleware"
	"geodirectory-sync/internal/registry"
	"geodirectory-sync/internal/repository"
	"geodirectory-sync/internal/service"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	out := logging.Output(cfg.Logging)
	log.SetOutput(out)

	ctx := context.Background()

	var couch *kivik.Client
	if cfg.Database.Driver == config.DriverCouchDB || cfg.Cache.Backend == config.CacheCouchDB {
		couch, err = kivik.New("couch", cfg.Database.CouchURL())
		if err != nil {
			log.Fatalf("Failed to connect to CouchDB: %v", err)
		}
	}

	var placeRepo repository.PlaceRepository
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := repository.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open SQLite database: %v", err)
		}
		defer db.Close()

		placeRepo, err = repository.NewSQLitePlaceRepository(ctx, db)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite schema: %v", err)
		}
		log.Printf("Using SQLite place store at %s", cfg.Database.SQLitePath)
	default:
		ensureDB(ctx, couch, cfg.Database.Name)
		placeRepo = repository.NewPlaceRepository(couch, cfg.Database.Name)
		log.Printf("Using CouchDB place store at %s:%s/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	}

	var entryCache cache.EntryCache
	if cfg.Cache.Backend == config.CacheCouchDB {
		ensureDB(ctx, couch, cfg.Cache.DBName)
		entryCache = repository.NewEntryCacheRepository(couch, cfg.Cache.DBName)
	} else {
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		entryCache = memCache
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(promRegistry)

	geoClient := geodirectory.NewClient(
		cfg.GeoDirectory.URL,
		cfg.GeoDirectory.User,
		cfg.GeoDirectory.Password,
		cfg.GeoDirectory.Timeout,
	)

	typeRegistry := registry.New()
	geoService := service.NewGeoDirectoryService(
		cfg.GeoDirectory,
		geoClient,
		entryCache,
		typeRegistry,
		syncMetrics,
		logging.New(out, "geodirectory"),
	)
	placeService := service.NewPlaceService(placeRepo, geoService)
	typeRegistry.Register(domain.PlaceTypeTag, placeService)
	log.Printf("Resolving geo-directory entries for types %v", typeRegistry.Types())

	placeHandler := handler.NewPlaceHandler(placeService, logging.New(out, "places"))

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logging.New(out, "http")))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	placeHandler.Register(api)

	r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/health", healthHandler(geoService)).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting GeoDirectory Sync Server on %s (env: %s)", addr, cfg.Server.Env)
		if geoService.Enabled() {
			log.Printf("Synchronizing places with %s", cfg.GeoDirectory.URL)
		} else {
			log.Printf("Geo-directory sync disabled, places are stored locally only")
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return
	}

	log.Println("Server stopped gracefully")
}

func ensureDB(ctx context.Context, client *kivik.Client, name string) {
	exists, err := client.DBExists(ctx, name)
	if err != nil {
		log.Fatalf("Failed to check database existence: %v", err)
	}

	if !exists {
		if err := client.CreateDB(ctx, name); err != nil {
			log.Fatalf("Failed to create database: %v", err)
		}
		log.Printf("Created database: %s", name)
	}
}

func healthHandler(geo *service.GeoDirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"geodirectory-sync","sync_enabled":%t}`, geo.Enabled())
	}
}
