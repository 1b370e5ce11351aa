package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/boundary"
	"mapeditor/core-go/internal/db"
	"mapeditor/core-go/internal/httpapi"
	"mapeditor/core-go/internal/metrics"
	"mapeditor/core-go/internal/modelstore"
	"mapeditor/core-go/internal/notify"
	"mapeditor/core-go/internal/projection"
	"mapeditor/core-go/internal/projectionworker"
	"mapeditor/core-go/internal/runstore"
	"mapeditor/core-go/internal/settings"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	addr := envOr("HTTP_ADDR", ":8081")
	logLevel := envOr("LOG_LEVEL", "info")
	logFormat := envOr("LOG_FORMAT", "json")
	serviceName := envOr("SERVICE_NAME", "mapeditor-core")
	databaseURL := envOr("DATABASE_URL", "")
	sqlitePath := envOr("SQLITE_PATH", "")
	natsURL := envOr("NATS_URL", "")
	natsPrefix := envOr("NATS_SUBJECT_PREFIX", "mapeditor")
	boundaryURL := envOr("BOUNDARY_SERVICE_URL", "")
	boundaryFile := envOr("BOUNDARY_FILE", "")
	boundaryCacheSize := envInt("BOUNDARY_CACHE_SIZE", 512)
	settingsFile := envOr("SETTINGS_FILE", "")
	boundariesYear := envInt("BOUNDARIES_YEAR", 2019)

	logger := httpapi.NewLogger(httpapi.LogConfig{Level: logLevel, Service: serviceName, Format: logFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var pool *db.Pool
	if databaseURL != "" {
		p, err := db.Open(ctx, databaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		if err := p.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
		pool = p
	}

	var runs runstore.Store
	switch {
	case pool != nil:
		runs = runstore.NewPostgres(pool.Queries())
	case sqlitePath != "":
		s, err := runstore.OpenSQLite(sqlitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", sqlitePath).Msg("failed to open sqlite run store")
		}
		defer s.Close()
		runs = s
	default:
		runs = runstore.NewMemory()
	}

	var publisher notify.Publisher
	if natsURL == "" {
		logger.Warn().Msg("NATS_URL not set; projection messages are not published")
	} else {
		n, err := notify.ConnectNATS(logger, natsURL, natsPrefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer n.Close()
		publisher = n
	}

	boundaries := boundarySource(logger, boundaryURL, boundaryFile)
	if boundaries != nil {
		c, err := boundary.NewCache(logger, boundaries, boundaryCacheSize, m)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create boundary cache")
		}
		boundaries = c
	}

	st, err := settings.Open(settingsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load settings")
	}

	systems := modelstore.New()
	engine := projection.NewEngine(logger, projection.Options{
		Systems:        systems,
		Boundaries:     boundaries,
		Runs:           runs,
		Publisher:      publisher,
		Metrics:        m,
		BoundariesYear: boundariesYear,
	})

	var jobs projectionworker.Queries = projectionworker.NewMemoryQueue()
	if pool != nil {
		jobs = pool.Queries()
	}
	worker := projectionworker.New(logger, jobs, engine, projectionworker.Options{})
	go worker.Run(ctx)

	h := httpapi.NewHandler(logger, pool, httpapi.Options{
		Systems:   systems,
		Projector: engine,
		Runs:      runs,
		Jobs:      worker,
		Settings:  st,
		Metrics:   m,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("mapeditor core listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

func boundarySource(logger zerolog.Logger, url, file string) boundary.Service {
	switch {
	case url != "":
		return boundary.NewClient(logger, url, boundary.ClientOptions{})
	case file != "":
		s, err := boundary.LoadStaticFile(file)
		if err != nil {
			logger.Fatal().Err(err).Str("path", file).Msg("failed to load boundary file")
		}
		return s
	default:
		logger.Warn().Msg("no boundary source configured; area boundaries will not be looked up")
		return nil
	}
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(envOr(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
