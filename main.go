package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/nhle/todo-assistant/internal/ai"
	"github.com/nhle/todo-assistant/internal/auth"
	"github.com/nhle/todo-assistant/internal/chat"
	"github.com/nhle/todo-assistant/internal/model"
	"github.com/nhle/todo-assistant/internal/server"
	"github.com/nhle/todo-assistant/internal/store"
	"github.com/nhle/todo-assistant/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

type flags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	Port       int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		f         flags
		logCloser func()
	)

	app := &cli.Command{
		Name:    "todo-assistant",
		Usage:   "Task manager API with a conversational assistant",
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TODO_CONFIG"),
				Value:       model.DefaultConfigPath(),
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal)",
				Sources:     cli.EnvVars("TODO_LOG_LEVEL"),
				Value:       "info",
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("TODO_LOG_FILE"),
				Destination: &f.LogFile,
			},
			&cli.IntFlag{
				Name:        "port",
				Aliases:     []string{"p"},
				Usage:       "listen port (overrides config)",
				Sources:     cli.EnvVars("TODO_PORT"),
				Destination: &f.Port,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(f.LogLevel, f.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API server",
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, f, log.Logger)
				},
			},
		},
		DefaultCommand: "serve",
	}

	err := app.Run(ctx, os.Args)
	if logCloser != nil {
		logCloser()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// serve loads config, opens the store, and runs the HTTP server until the
// context is cancelled.
func serve(ctx context.Context, f flags, logger zerolog.Logger) error {
	cfg, err := model.LoadConfig(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.Port != 0 {
		cfg.Server.Port = f.Port
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("no auth secret configured: set auth.secret or TODO_AUTH_SECRET")
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if cfg.AI.APIKey == "" {
		logger.Warn().Msg("no AI API key configured; chat fallback replies will be canned")
	}
	client := ai.NewClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.MaxTokens)
	responder := ai.NewResponder(client, logger)
	dispatcher := chat.NewDispatcher(st, responder, logger)

	tokens := auth.NewTokenIssuer(cfg.Auth.Secret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	srv := server.New(cfg.Server, st, tokens, dispatcher, logger)
	return srv.Run(ctx)
}
