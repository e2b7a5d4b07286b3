package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/movieclub/internal/adapter/driven/envsecret"
	pgadapter "github.com/ericfisherdev/movieclub/internal/adapter/driven/postgres"
	redisadapter "github.com/ericfisherdev/movieclub/internal/adapter/driven/redis"
	sqliteadapter "github.com/ericfisherdev/movieclub/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/movieclub/internal/adapter/driven/tmdb"
	httphandler "github.com/ericfisherdev/movieclub/internal/adapter/driving/http"
	"github.com/ericfisherdev/movieclub/internal/application"
	"github.com/ericfisherdev/movieclub/internal/config"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// loadDotEnv loads .env from the working directory when one exists.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// runServer serves the schedule API until ctx is cancelled (SIGINT, SIGTERM).
func runServer(ctx context.Context) error {
	// 1. Load configuration (fail fast on bad values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Install the process logger.
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"catalog_base_url", cfg.CatalogBaseURL,
		"catalog_http_cache", cfg.CatalogHTTPCache,
		"encrypted_credentials", cfg.HasSecretKey(),
	)

	// 3. Open the schedule store.
	dbs := &sqliteOpener{path: cfg.DBPath, logger: logger}
	defer dbs.close()

	store, closeStore, err := openScheduleStore(ctx, cfg, dbs, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. Resolve where the catalog credential lives.
	secrets, err := openSecretStore(ctx, cfg, dbs, logger)
	if err != nil {
		return err
	}

	credentials := application.NewSecretCache(secrets, cfg.CatalogSecretID, cfg.CatalogSecretJSONKey, logger)

	// 5. Catalog client.
	catalogOpts := []tmdb.Option{
		tmdb.WithLanguage(cfg.CatalogLanguage),
		tmdb.WithTimeout(cfg.CatalogTimeout),
	}
	if cfg.CatalogHTTPCache {
		catalogOpts = append(catalogOpts, tmdb.WithHTTPCache())
	}
	catalog, err := tmdb.New(cfg.CatalogBaseURL, catalogOpts...)
	if err != nil {
		return err
	}

	// 6. Application service and HTTP surface.
	scheduleSvc := application.NewScheduleService(store, catalog, credentials, logger,
		application.WithEnrichConcurrency(cfg.EnrichConcurrency))

	verifier := httphandler.NewIdentityVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	apiHandler := httphandler.NewHandler(scheduleSvc, store, verifier, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("movieclub started", "listen_addr", cfg.ListenAddr, "store", cfg.Store)

	// 7. Wait for a shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// 8. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from the configured level and format.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openScheduleStore opens the configured backend, runs its migrations where it
// has any, and returns a close func that logs rather than fails.
func openScheduleStore(ctx context.Context, cfg *config.Config, dbs *sqliteOpener, logger *slog.Logger) (driven.ScheduleStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := pgadapter.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pgadapter.RunMigrations(db, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("postgres store ready")
		return pgadapter.NewScheduleRepo(db), closer(logger, "postgres", db.Close), nil

	case config.StoreRedis:
		rdb, err := redisadapter.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis store ready", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return redisadapter.NewScheduleRepo(rdb, cfg.RedisKeyPrefix), closer(logger, "redis", rdb.Close), nil

	default:
		db, err := dbs.open(ctx)
		if err != nil {
			return nil, nil, err
		}
		return sqliteadapter.NewScheduleRepo(db), func() {}, nil
	}
}

// openSecretStore returns the encrypted credential table when a key is
// configured, seeding it from MOVIECLUB_CATALOG_API_KEY on first run.
// Without a key the secret is read from the environment on every fetch.
func openSecretStore(ctx context.Context, cfg *config.Config, dbs *sqliteOpener, logger *slog.Logger) (driven.SecretStore, error) {
	if !cfg.HasSecretKey() {
		logger.Info("catalog credential read from environment", "var", "MOVIECLUB_CATALOG_API_KEY")
		return envsecret.New(map[string]string{cfg.CatalogSecretID: "MOVIECLUB_CATALOG_API_KEY"}), nil
	}

	db, err := dbs.open(ctx)
	if err != nil {
		return nil, err
	}
	creds := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	if err := seedCredential(ctx, creds, cfg.CatalogSecretID, cfg.CatalogAPIKey, logger); err != nil {
		return nil, err
	}

	return creds, nil
}

func seedCredential(ctx context.Context, creds driven.CredentialStore, name, value string, logger *slog.Logger) error {
	if value == "" {
		return nil
	}
	existing, err := creds.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("read stored credential %q: %w", name, err)
	}
	if existing != "" {
		return nil
	}
	if err := creds.Set(ctx, name, value); err != nil {
		return fmt.Errorf("seed credential %q: %w", name, err)
	}
	logger.Info("catalog credential seeded into encrypted store", "name", name)
	return nil
}

// sqliteOpener opens the SQLite file at most once. The schedule store and the
// credential table share it when both are in use.
type sqliteOpener struct {
	path   string
	logger *slog.Logger
	db     *sqliteadapter.DB
}

func (o *sqliteOpener) open(ctx context.Context) (*sqliteadapter.DB, error) {
	if o.db != nil {
		return o.db, nil
	}

	db, err := sqliteadapter.NewDB(ctx, o.path)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	o.logger.Info("sqlite database ready", "path", db.Path())
	o.db = db
	return db, nil
}

func (o *sqliteOpener) close() {
	if o.db == nil {
		return
	}
	if err := o.db.Close(); err != nil {
		o.logger.Error("error closing database", "error", err)
	}
}

func closer(logger *slog.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Error("error closing "+name, "error", err)
		}
	}
}
