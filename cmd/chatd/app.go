package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/cache"
	"github.com/tbourn/llm-chat-backend/internal/config"
	"github.com/tbourn/llm-chat-backend/internal/crypto"
	httpapi "github.com/tbourn/llm-chat-backend/internal/http"
	"github.com/tbourn/llm-chat-backend/internal/http/handlers"
	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/observability"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/scheduler"
	"github.com/tbourn/llm-chat-backend/internal/storage"
)

// app holds the process-wide dependencies shared by serve and worker.
type app struct {
	db       *gorm.DB
	services handlers.Services
	runner   *scheduler.Runner

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
		if err != nil {
			return nil, fmt.Errorf("otel: %w", err)
		}
		a.closers = append(a.closers, func() error {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(sctx)
		})
	}

	if a.db, err = openDB(cfg); err != nil {
		return nil, err
	}
	db := a.db
	a.closers = append(a.closers, func() error { return closeDB(db) })

	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var c cache.Cache
	switch {
	case cfg.LLM.CacheTTL <= 0:
	case cfg.Redis.Addr != "":
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: "chatd:",
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		c = rc
	default:
		mc := cache.NewMemory(cfg.LLM.CacheTTL, 10*time.Minute)
		a.closers = append(a.closers, mc.Close)
		c = mc
	}

	var sealer *crypto.Sealer
	if cfg.EncryptionKey != "" {
		if sealer, err = crypto.NewSealer(cfg.EncryptionKey); err != nil {
			return nil, fmt.Errorf("encryption key: %w", err)
		}
	} else {
		log.Warn().Msg("ENCRYPTION_KEY not set: provider keys and connectors are disabled")
	}

	providers := make(map[string]llm.ProviderConfig, len(cfg.LLM.Providers))
	for name, p := range cfg.LLM.Providers {
		providers[name] = llm.ProviderConfig{BaseURL: p.BaseURL, APIKey: p.APIKey}
	}
	router := llm.NewRouter(llm.Config{
		Providers:   providers,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
		RetryDelay:  cfg.LLM.RetryDelay,
		HTTPClient:  &http.Client{},
		Logger:      log.With().Str("component", "llm").Logger(),
	})

	a.services = httpapi.NewServices(cfg, httpapi.Deps{
		DB:      db,
		LLM:     router,
		Keys:    router,
		Models:  llm.NewRegistry(llm.DefaultModels(), cfg.LLM.DefaultModel),
		Cache:   c,
		Storage: store,
		Sealer:  sealer,
	})

	a.runner = &scheduler.Runner{
		DB:          db,
		Exec:        a.services.Tasks,
		Interval:    cfg.Scheduler.Interval,
		Concurrency: cfg.Scheduler.Concurrency,
		BatchSize:   cfg.Scheduler.BatchSize,
		Log:         log.With().Str("component", "scheduler").Logger(),
	}
	return a, nil
}

// newStorage picks the S3-compatible backend when an endpoint is configured
// and the local filesystem otherwise.
func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Endpoint == "" {
		log.Info().Str("dir", cfg.LocalDir).Msg("attachments on local disk")
		return storage.NewLocal(cfg.LocalDir)
	}
	s, err := storage.NewMinIO(ctx, storage.MinIOConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("attachments in object storage")
	return s, nil
}

// purgeIdempotency drops expired Idempotency-Key records every hour.
func (a *app) purgeIdempotency(ctx context.Context) error {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			n, err := repo.PurgeReplays(ctx, a.db, now.UTC())
			if err != nil {
				log.Error().Err(err).Msg("purge idempotency records")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("idempotency records purged")
			}
		}
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}
	a.closers = nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
