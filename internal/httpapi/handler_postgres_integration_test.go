package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"mapeditor/core-go/internal/db"
	"mapeditor/core-go/internal/modelstore"
	"mapeditor/core-go/internal/projection"
	"mapeditor/core-go/internal/projectionworker"
	"mapeditor/core-go/internal/runstore"
	"mapeditor/core-go/internal/settings"
)

func requireTestDatabaseURL(t *testing.T) string {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	return dsn
}

func mustDeriveDatabaseURL(t *testing.T, baseURL, dbName string) string {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		t.Skipf("TEST_DATABASE_URL must be a URL-style DSN (e.g. postgres://...); got %q", baseURL)
	}

	u.Path = "/" + dbName
	return u.String()
}

func newTestDatabaseName() string {
	// Safe identifier (letters/digits/underscores) so we can use it without quoting.
	return fmt.Sprintf("mapeditor_test_%d", time.Now().UnixNano())
}

func createDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	_, err = adminConn.Exec(ctx, "CREATE DATABASE "+dbName)
	return err
}

func dropDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	if _, err := adminConn.Exec(ctx, "DROP DATABASE "+dbName+" WITH (FORCE)"); err == nil {
		return nil
	}
	_, err = adminConn.Exec(ctx, "DROP DATABASE "+dbName)
	return err
}

func TestHandler_Postgres_ProjectionRunsAndJobs(t *testing.T) {
	adminURL := requireTestDatabaseURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := newTestDatabaseName()
	testDBURL := mustDeriveDatabaseURL(t, adminURL, dbName)

	if err := createDatabase(ctx, adminURL, dbName); err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		_ = dropDatabase(context.Background(), adminURL, dbName)
	})

	pool, err := db.Open(ctx, testDBURL)
	if err != nil {
		t.Fatalf("open db pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := modelstore.New()
	runs := runstore.NewPostgres(pool.Queries())
	log := NewLogger(LogConfig{Level: "error"})
	engine := projection.NewEngine(log, projection.Options{Systems: store, Runs: runs})
	worker := projectionworker.New(log, pool.Queries(), engine, projectionworker.Options{PollInterval: 20 * time.Millisecond})

	h := NewHandler(log, pool, Options{
		Systems:   store,
		Projector: engine,
		Runs:      runs,
		Jobs:      worker,
		Settings:  settings.NewMemory(),
	})

	rr := do(h, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(h, http.MethodPost, "/api/v1/energysystems", demoDocument)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(h, http.MethodPost, "/api/v1/energysystems/es-1/jobs", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("enqueue expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	jobID, _ := decodeBody(t, rr)["id"].(string)
	if jobID == "" {
		t.Fatalf("expected job id")
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go worker.Run(runCtx)

	q := pool.Queries()
	deadline := time.Now().Add(10 * time.Second)
	for {
		job, err := q.GetProjectionJob(ctx, jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status == "succeeded" {
			break
		}
		if job.Status == "failed" {
			msg := ""
			if job.LastError != nil {
				msg = *job.LastError
			}
			t.Fatalf("job failed: %s", msg)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %q after deadline", job.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}

	rr = do(h, http.MethodGet, "/api/v1/energysystems/es-1/projection", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("snapshot expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if decodeBody(t, rr)["title"] != "Demo" {
		t.Fatalf("unexpected snapshot %s", rr.Body.String())
	}

	rr = do(h, http.MethodPost, "/api/v1/energysystems/es-1/projection", "")
	if decodeBody(t, rr)["skipped"] != true {
		t.Fatalf("expected processed marker to persist in postgres")
	}
}
