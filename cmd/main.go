package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"go-scoreboard-sse/internal/application/facade"
	"go-scoreboard-sse/internal/domain"
	"go-scoreboard-sse/internal/infrastructure/config"
	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
	"go-scoreboard-sse/internal/infrastructure/persistence/memory"
	"go-scoreboard-sse/internal/infrastructure/persistence/postgres"
	"go-scoreboard-sse/internal/infrastructure/server"
)

type cliArgs struct {
	JSONLog    bool
	LogLevel   string `validate:"omitempty,oneof=debug info warn error fatal"`
	ConfigFile string `validate:"omitempty,file"`
}

var cmdArgs cliArgs

func main() {
	app := &cli.App{
		Name:        "scoreboard-sse",
		Usage:       "application entrypoint",
		Description: "Game scoreboard API with a real-time SSE/WebSocket update channel",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{"LOG_AS_JSON"},
				Value:       false,
				DefaultText: "false",
				Destination: &cmdArgs.JSONLog,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [debug info warn error fatal], overrides the config file",
				Aliases:     []string{"l"},
				EnvVars:     []string{"LOG_LEVEL"},
				Destination: &cmdArgs.LogLevel,
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "Application config file. Use DEFAULT if not specified.",
				Aliases:     []string{"c"},
				EnvVars:     []string{"CONFIG_FILE"},
				Destination: &cmdArgs.ConfigFile,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "program shutdown: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.SystemConfig, error) {
	if err := validator.New().Struct(&cmdArgs); err != nil {
		return nil, fmt.Errorf("invalid command line arguments: %w", err)
	}

	cfg, err := config.Load(cmdArgs.ConfigFile)
	if err != nil {
		return nil, err
	}
	if cmdArgs.LogLevel != "" {
		cfg.Log.LevelName = cmdArgs.LogLevel
		cfg.Log.Resolve()
	}
	if cmdArgs.JSONLog {
		cfg.Log.Format = "json"
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogrusLogger(&cfg.Log)
	sctx := WithSignal(c.Context)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hubInstance := hub.New(log, hub.Options{
		HeartbeatInterval:  cfg.Realtime.HeartbeatInterval(),
		StaleAfter:         cfg.Realtime.StaleAfter(),
		WriteTimeout:       cfg.Realtime.WriteTimeout(),
		ResumeWindow:       cfg.Realtime.ResumeWindow(),
		PublishConcurrency: cfg.Realtime.PublishConcurrency,
		Metrics:            hub.NewMetrics(reg),
	})

	repo, db, err := newGameRepository(sctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	games := facade.NewGameApplicationService(repo, hubInstance, nil, log)

	// Start the hub first
	if err := hubInstance.Start(sctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	router := InitRouter(cfg, hubInstance, games, reg, log)
	httpSrv := server.NewHTTPServer(router, cfg.Server, log)
	app := newApplication(log, httpSrv, hubInstance, time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	return app.Run(sctx)
}

// newGameRepository returns the configured store. The *sql.DB is nil for the
// memory store.
func newGameRepository(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (domain.GameRepository, *sql.DB, error) {
	if cfg.Driver != "postgres" {
		log.Info("Using in-memory game store")
		return memory.NewGameRepository(), nil, nil
	}

	db, err := postgres.Open(ctx, cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	repo := postgres.NewGameRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("Using PostgreSQL game store")
	return repo, db, nil
}

type Application struct {
	logger          logger.Logger
	httpSrv         server.Server
	hub             *hub.Hub
	shutdownTimeout time.Duration
}

func newApplication(
	logger logger.Logger,
	httpSrv server.Server,
	hubInstance *hub.Hub,
	shutdownTimeout time.Duration,
) *Application {
	return &Application{
		logger:          logger.WithField("app", "scoreboard"),
		httpSrv:         httpSrv,
		hub:             hubInstance,
		shutdownTimeout: shutdownTimeout,
	}
}

func (app *Application) Run(ctx context.Context) error {
	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()
		app.logger.Info("Shutting down")

		gracefulshutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
		defer cancel()

		// Stop hub first so open streams release their handlers
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
