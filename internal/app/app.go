// Package app wires configuration into a ready-to-use dashboard service:
// store selection, the retrieval chain and the service itself.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/katrinamanzanilla/2nd-mini-site/internal/config"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/retrieval"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/service"
	"github.com/katrinamanzanilla/2nd-mini-site/internal/store"
)

// App holds the wired components. Close releases the database pool.
type App struct {
	Config  *config.Config
	Store   store.Store
	Chain   *retrieval.Chain
	Service *service.Service

	closers []func()
}

// New builds the app. With DATABASE_URL set it connects to PostgreSQL and
// ensures the schema; otherwise it uses the in-memory store.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = st

	a.Chain = retrieval.NewDefaultChain(ChainOptions(cfg))
	a.Service = service.New(a.Chain, a.Store, service.Options{
		HistoryLimit:       cfg.Session.HistoryLimit,
		SessionTTL:         cfg.Session.TTL,
		LoadTimeout:        cfg.Session.LoadTimeout,
		MaxConcurrentLoads: cfg.Session.MaxConcurrentLoads,
		LoadWait:           cfg.Session.LoadWait,
	})

	slog.Info("retrieval chain ready", "strategies", a.Chain.Labels())
	return a, nil
}

// ChainOptions maps the fetch section onto retrieval options.
func ChainOptions(cfg *config.Config) retrieval.Options {
	return retrieval.Options{
		Endpoints: retrieval.Endpoints{
			DocsBaseURL:      cfg.Fetch.DocsBaseURL,
			OpenSheetBaseURL: cfg.Fetch.OpenSheetBaseURL,
		},
		Timeout:              cfg.Fetch.Timeout,
		ScriptTimeout:        cfg.Fetch.ScriptTimeout,
		MaxBodyBytes:         cfg.Fetch.MaxBodyBytes,
		UserAgent:            cfg.Fetch.UserAgent,
		DisableScriptChannel: cfg.Fetch.DisableScriptChannel,
	}
}

// SweepConfig maps the session section onto the sweeper settings.
func SweepConfig(cfg *config.Config) service.SweepConfig {
	return service.SweepConfig{
		Interval:         cfg.Session.SweepInterval,
		HistoryRetention: cfg.Session.HistoryRetention,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	db := a.Config.Database
	if !db.Enabled() {
		slog.Info("using in-memory store")
		return store.NewMemory(), nil
	}

	pool, err := store.Connect(ctx, db.URL, store.PoolOptions{
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: db.MaxConnLifetime,
		MaxConnIdleTime: db.MaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	slog.Info("connected to database", "name", databaseName(db.URL))
	return pg, nil
}

// databaseName extracts the database name for logging without credentials.
func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
