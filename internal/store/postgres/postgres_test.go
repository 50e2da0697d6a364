//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attend/internal/store"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(dbURL, 5, 2)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestIdentityStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	s := NewIdentityStore(pool, "Facenet512")

	rec := store.IdentityRecord{
		StudentID:    "MIT2025001",
		Name:         "Jana Nováková",
		Embedding:    []float32{0.1, 0.2, 0.3},
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.Register(ctx, rec); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Register(ctx, store.IdentityRecord{
		StudentID:    "MIT2025002",
		Name:         "Petr Svoboda",
		Embedding:    []float32{0.4, 0.5, 0.6},
		RegisteredAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	records, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].StudentID != "MIT2025001" {
		t.Errorf("insertion order not preserved: %s first", records[0].StudentID)
	}
	if records[0].Embedding[1] != 0.2 {
		t.Errorf("embedding round trip failed: %v", records[0].Embedding)
	}

	// Re-enrollment updates in place and keeps position.
	rec.Name = "Renamed"
	rec.Embedding = []float32{0.7, 0.8, 0.9}
	if err := s.Register(ctx, rec); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	records, err = s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if records[0].StudentID != "MIT2025001" || records[0].Name != "Renamed" {
		t.Errorf("expected updated record at position 0, got %+v", records[0])
	}

	if err := s.Remove(ctx, "MIT2025002"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := s.Remove(ctx, "MIT2025002"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for second remove, got %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 record after remove, got %d", count)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Count != 1 || stats.Model != "Facenet512" {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
