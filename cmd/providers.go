// -- cmd/providers.go --
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/browser"
	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/engine"
	"github.com/xkilldash9x/scenario-cli/internal/store"
)

const browserShutdownTimeout = 30 * time.Second

// reportStore is the subset of *store.Store the commands use.
type reportStore interface {
	EnsureSchema(ctx context.Context) error
	SaveReport(ctx context.Context, report *schemas.RunReport) error
	LoadReport(ctx context.Context, runID string) (*schemas.RunReport, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// storeProvider defines an interface for creating a report store.
type storeProvider interface {
	NewStore(ctx context.Context, cfg config.Interface, logger *zap.Logger) (reportStore, func(), error)
}

type defaultStoreProvider struct{}

func (p *defaultStoreProvider) NewStore(ctx context.Context, cfg config.Interface, logger *zap.Logger) (reportStore, func(), error) {
	dbURL := cfg.Database().URL
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (set database.url or SCENARIO_DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}
	return s, pool.Close, nil
}

// browserProvider hands out the session factory scenarios run on.
type browserProvider interface {
	NewSessionFactory(cfg config.Interface, logger *zap.Logger) (engine.SessionFactory, func(), error)
}

type defaultBrowserProvider struct{}

func (p *defaultBrowserProvider) NewSessionFactory(cfg config.Interface, logger *zap.Logger) (engine.SessionFactory, func(), error) {
	manager := browser.NewManager(cfg.Browser(), logger)
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), browserShutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(ctx); err != nil {
			logger.Warn("Browser shutdown reported an error.", zap.Error(err))
		}
	}
	return manager, shutdown, nil
}
