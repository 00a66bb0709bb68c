package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"shopdesk-loyalty/internal/config"
	"shopdesk-loyalty/internal/infra/db/migrations"
	"shopdesk-loyalty/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-config file] up|down|status\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := flag.Arg(0)
	switch cmd {
	case "up", "":
		err = migrations.Up(ctx, cfg.Database.URL)
	case "down":
		err = migrations.Down(ctx, cfg.Database.URL)
	case "status":
		err = migrations.Status(ctx, cfg.Database.URL)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}
	logger.Info().Str("command", cmd).Msg("migration done")
}
