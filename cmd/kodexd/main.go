// kodexd runs the workbench: the domain core, the event distribution
// layer, and the agent tool gateway, all in one process.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/kodexlab/kodex/pkg/app"
	"github.com/kodexlab/kodex/pkg/config"
	"github.com/kodexlab/kodex/pkg/observability"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to the JSON settings file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("kodexd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tel, err := observability.Init(ctx, observability.Config{
		ServiceName:    "kodexd",
		ServiceVersion: version,
		Environment:    "local",
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer tel.Shutdown(context.Background())

	a, err := app.New(settings,
		app.WithLogger(logger),
		app.WithTelemetry(tel),
	)
	if err != nil {
		return err
	}

	logger.Info("kodex workbench starting",
		"version", version,
		"database", settings.DatabasePath,
		"operations", len(a.Dispatcher.Operations()),
		"agent_enabled", settings.AgentEnabled,
	)
	return a.Run(ctx)
}
