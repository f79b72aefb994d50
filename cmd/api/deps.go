package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"inkwell/api/internal/app"
	"inkwell/api/internal/cache"
	"inkwell/api/internal/gitrepo"
	"inkwell/api/internal/media"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
	"inkwell/api/internal/suggest"
)

// runtime owns every backend connection opened for a command.
type runtime struct {
	db      *sql.DB
	service *app.Service
	closers []func()
}

func (r *runtime) Close(ctx context.Context) {
	if r.service != nil {
		if err := r.service.Close(ctx); err != nil {
			logger.Error().Err(err).Msg("flush pending writes")
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// openRuntime connects the configured backends. With inMemory set the
// document store lives in the process and nothing touches PostgreSQL.
func openRuntime(ctx context.Context, inMemory bool) (*runtime, error) {
	rt := &runtime{}
	deps := app.Deps{Logger: logger}

	var pgfts *search.PgFTS
	if inMemory {
		logger.Warn().Msg("using in-memory document store; pages are lost on exit")
		deps.Store = store.NewMemoryStore()
	} else {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt.db = db
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		deps.Store = store.NewPostgresStore(db)
		pgfts = search.NewPgFTS(db)
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = redisStore.Close() })
		deps.Cache = redisStore
		logger.Info().Msg("using redis for the local page cache")
	}

	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		rt.closers = append(rt.closers, meili.Close)
	}
	var fallback search.Searcher = search.NewMemory()
	if pgfts != nil {
		fallback = pgfts
	}
	deps.Search = search.NewService(meili, fallback, logger)
	if pgfts != nil {
		go deps.Search.ReindexFromPG(context.Background(), pgfts)
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		objects, err := media.NewMinioStore(ctx, media.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MediaPublicURL,
		})
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("media storage failed: %w", err)
		}
		deps.Media = media.NewService(objects, cfg.MediaMaxBytes)
	}

	if strings.TrimSpace(cfg.ArchiveDir) != "" {
		if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
		deps.Archive = gitrepo.New(cfg.ArchiveDir)
	}

	if strings.TrimSpace(cfg.SuggestURL) != "" {
		deps.Suggest = suggest.NewHTTPProvider(cfg.SuggestURL, cfg.SuggestKey, cfg.SuggestTimeout, logger)
	}

	rt.service = app.New(cfg, deps)
	return rt, nil
}
