// Command ochazuked is the webcompat metrics service.
// It serves the GitHub webhook endpoint, the dashboard read API, and a
// health check.
package main

import (
	"context"
	"database/sql"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/webcompat/ochazuke/internal/api"
	"github.com/webcompat/ochazuke/internal/platform"
	"github.com/webcompat/ochazuke/internal/reconcile"
	"github.com/webcompat/ochazuke/internal/store"
	"github.com/webcompat/ochazuke/internal/webhook"
	"github.com/webcompat/ochazuke/pkg/config"
)

type env struct {
	Port        string
	DatabaseURL string
	HookSecret  string
	ConfigPath  string
}

func loadEnv() env {
	return env{
		Port:        envOrDefault("PORT", "8080"),
		DatabaseURL: envOrDefault("DATABASE_URL", "postgres://localhost:5432/ochazuke?sslmode=disable"),
		HookSecret:  os.Getenv("HOOK_SECRET_KEY"),
		ConfigPath:  envOrDefault("OCHAZUKE_CONFIG", "ochazuke.yml"),
	}
}

func main() {
	e := loadEnv()
	if e.HookSecret == "" {
		log.Fatal("HOOK_SECRET_KEY is not set")
	}

	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("postgres", e.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	if err := platform.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	issues := store.NewService(db)
	reconciler := reconcile.New(issues)
	hookHandler := webhook.NewHandler([]byte(e.HookSecret), reconciler, issues)
	readAPI := api.NewHandler(issues, cfg.Polling.Categories, cfg.Repo)

	mux := http.NewServeMux()
	mux.Handle("POST /webhooks/ghevents", hookHandler)
	readAPI.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", healthHandler(db))
	mux.HandleFunc("GET /{$}", indexHandler)

	srv := &http.Server{
		Addr:    ":" + e.Port,
		Handler: api.CORS(mux),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("starting ochazuked on :%s", e.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Welcome to ochazuke")
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
