package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/labkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/labkeeper/internal/cli"
	"github.com/dmitrijs2005/labkeeper/internal/config"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig(ctx)
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "labctl stopped", "error", err)
		os.Exit(1)
	}
}
