package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/recognition"
	"github.com/kozaktomas/face-attend/internal/store"
	"github.com/kozaktomas/face-attend/internal/store/postgres"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// buildRegistry picks the registry backend: PostgreSQL when DATABASE_URL is
// set, the snapshot file store otherwise. The returned cleanup closes the
// database pool (a no-op for the file store).
func buildRegistry(cfg *config.Config) (store.Registry, func(), error) {
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		fmt.Println("Using PostgreSQL identity store")
		return postgres.NewIdentityStore(pool, cfg.Vision.Model), func() { pool.Close() }, nil
	}

	fmt.Printf("Using file identity store in %s\n", cfg.Store.DataDir)
	return store.NewFileStore(cfg.SnapshotPath(), cfg.MetadataPath(), cfg.Vision.Model), func() {}, nil
}

// buildEngine wires the vision client and the registry into an engine.
// The registry is loaded before the engine is returned.
func buildEngine(ctx context.Context, cfg *config.Config, threshold float64) (*recognition.Engine, store.Registry, func(), error) {
	if cfg.Vision.DetectorURL == "" {
		return nil, nil, nil, errors.New("DETECTOR_URL environment variable is required")
	}

	registry, cleanup, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := registry.Load(ctx); err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("loading identity registry: %w", err)
	}

	client := vision.NewClient(cfg.Vision.DetectorURL, cfg.Vision.EmbedderURL, cfg.Vision.Model)
	engine := recognition.NewEngine(client, client, registry, threshold)
	return engine, registry, cleanup, nil
}
