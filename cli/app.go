package cli

import (
	"context"

	"github.com/xiaoyuanzhu-com/flowtrack/config"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
	"github.com/xiaoyuanzhu-com/flowtrack/search"
	"github.com/xiaoyuanzhu-com/flowtrack/vendors"
	"github.com/xiaoyuanzhu-com/flowtrack/workers/reconcile"
)

// app holds the components one-shot commands share. The database and the
// mirror are only opened by commands that need them.
type app struct {
	cfg      *config.Config
	repo     *fs.Service
	index    *search.Index
	database *db.DB
}

func newApp(cfg *config.Config) *app {
	repo := fs.NewService(fs.Config{Root: cfg.RepoRoot})
	return &app{
		cfg:   cfg,
		repo:  repo,
		index: search.NewIndex(repo),
	}
}

func (a *app) db() (*db.DB, error) {
	if a.database != nil {
		return a.database, nil
	}
	database, err := db.Open(db.Config{Path: a.cfg.DatabasePath, LogQueries: a.cfg.DBLogQueries})
	if err != nil {
		return nil, err
	}
	a.database = database
	return database, nil
}

// engine builds a reconciliation engine over the configured mirror provider
func (a *app) engine(ctx context.Context) (*reconcile.Engine, error) {
	client, err := vendors.NewMirrorClient(ctx, a.cfg)
	if err != nil {
		return nil, err
	}

	engine := reconcile.NewEngine(reconcile.Config{RootName: a.cfg.MirrorRootName}, a.repo, client)
	if database, err := a.db(); err == nil {
		engine.SetRecorder(database)
	} else {
		log.Warn().Err(err).Msg("sync history unavailable")
	}
	return engine, nil
}

func (a *app) close() {
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			log.Error().Err(err).Msg("database close error")
		}
		a.database = nil
	}
}
