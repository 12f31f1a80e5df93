package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/docproc"
	"github.com/formpilot/formpilot/internal/objectstore"
	"github.com/formpilot/formpilot/internal/realtime"
	"github.com/formpilot/formpilot/internal/store"
)

type App struct {
	Store     store.Store
	Objects   objectstore.ObjectStore
	Processor *docproc.Processor
	Hub       *realtime.Hub
	Server    *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	st, err := store.NewPostgresStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("database initialized and ready")

	objects, err := objectstore.NewS3Store(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("object store initialized and ready")

	processor := docproc.NewProcessor(objectstore.NewPreviewStore(objects))
	hub := realtime.NewHub()

	server := NewServer(cfg, st, objects, processor, hub)

	return &App{
		Store:     st,
		Objects:   objects,
		Processor: processor,
		Hub:       hub,
		Server:    server,
	}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
