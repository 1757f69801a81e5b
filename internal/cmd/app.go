package cmd

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/margin/internal/config"
	"github.com/Iron-Ham/margin/internal/event"
	"github.com/Iron-Ham/margin/internal/logging"
	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/Iron-Ham/margin/internal/storage/jsonfile"
	"github.com/Iron-Ham/margin/internal/storage/memory"
	"github.com/Iron-Ham/margin/internal/storage/sqlite"
)

// app bundles what every note command needs.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	store  *notes.Store
	files  *jsonfile.Store // set only for the json backend
}

// openApp loads configuration and opens the configured backend.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLoggerWithRotation(
			cfg.Logging.ResolvedDir(),
			logging.ParseLevel(cfg.Logging.Level),
			logging.RotationConfig{
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				Compress:   cfg.Logging.Compress,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open log: %w", err)
		}
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		bus:    event.NewBus(event.WithLogger(logger)),
	}

	backend, err := a.openBackend(ctx)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	a.store = notes.NewStore(backend,
		notes.WithLogger(logger),
		notes.WithBus(a.bus),
		notes.WithParallel(cfg.Import.Parallel),
		notes.WithIndent(cfg.Export.IndentString()),
	)
	logger.Debug("store opened", "backend", backend.Name())
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (notes.Backend, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendJSON:
		files, err := jsonfile.Open(a.cfg.Storage.ResolvedDir(),
			jsonfile.WithLockTimeout(a.cfg.Storage.LockTimeout()),
			jsonfile.WithLogger(a.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open notes directory: %w", err)
		}
		a.files = files
		return files, nil
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, a.cfg.Storage.ResolvedSQLitePath(), sqlite.WithLogger(a.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open notes database: %w", err)
		}
		return db, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

// Close waits for queued writes, then releases the backend and the log.
func (a *app) Close(ctx context.Context) error {
	a.bus.Clear()
	storeErr := a.store.Close(ctx)
	logErr := a.logger.Close()
	if storeErr != nil {
		return storeErr
	}
	return logErr
}

// withApp opens the app, runs fn, and closes the app.
func withApp(ctx context.Context, fn func(*app) error) (err error) {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(ctx); err == nil {
			err = closeErr
		}
	}()
	return fn(a)
}
