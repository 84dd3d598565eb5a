// Command chatd runs the chat backend: the HTTP API, the scheduled task
// worker, and schema migrations.
//
// @title                       LLM Chat Backend API
// @version                     1.0
// @description                 Multi-tenant chat over LLM providers: chats, branching threads, streaming completions, attachments, connectors, scheduled tasks and sharing.
// @BasePath                    /api/v1
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 "Bearer <token>"
//
//go:generate swag init -g cmd/chatd/main.go -d ../../ -o ../../docs --parseInternal
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "github.com/tbourn/llm-chat-backend/docs"
	"github.com/tbourn/llm-chat-backend/internal/config"
	httpapi "github.com/tbourn/llm-chat-backend/internal/http"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// configFile is the --config flag shared by every subcommand.
var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("chatd failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "chatd",
		Short:         "LLM chat backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// A missing .env is normal outside development.
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML settings file; the environment overrides it")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (and the scheduler when SCHEDULER_ENABLED)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	worker := &cobra.Command{
		Use:   "worker",
		Short: "Run only the scheduled task worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context())
		},
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DB.Driver).Msg("schema up to date")
			return closeDB(db)
		},
	}

	root.AddCommand(serve, worker, migrate)
	// Bare "chatd" serves.
	root.RunE = serve.RunE
	return root
}

// loadConfig reads --config and the environment and configures the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return config.Config{}, err
	}
	sysutil.ConfigureLogging(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: version,
	})
	return cfg, nil
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctxOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.services, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if cfg.Scheduler.Enabled {
		g.Go(func() error { return ignoreCanceled(a.runner.Run(gctx)) })
	}
	g.Go(func() error { return a.purgeIdempotency(gctx) })

	return g.Wait()
}

func runWorker(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctxOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(a.runner.Run(gctx)) })
	g.Go(func() error { return a.purgeIdempotency(gctx) })
	return g.Wait()
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DB.Path
	if cfg.DB.Driver == repo.DriverPostgres {
		dsn = cfg.DB.URL
	}
	db, err := repo.Open(repo.Options{
		Driver:  cfg.DB.Driver,
		DSN:     dsn,
		Tracing: cfg.DB.Tracing,
		Debug:   cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
