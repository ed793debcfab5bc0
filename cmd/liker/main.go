package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/app"
	"github.com/Adda-Baaj/groupkit/internal/config"
	"github.com/Adda-Baaj/groupkit/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "liker failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	window := flag.Duration("since", 24*time.Hour, "how far back to look for messages; 0 scans the whole history")
	unlike := flag.Bool("unlike", false, "remove likes instead of adding them")
	dryRun := flag.Bool("dry-run", false, "log matching messages without sending requests")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	groups, err := app.LoadGroups(cfg, nil, log)
	if err != nil {
		return err
	}
	client, err := app.NewGroupMeClient(cfg)
	if err != nil {
		return err
	}
	store, err := app.OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := app.LikeOptions{Unlike: *unlike, DryRun: *dryRun}
	if *window > 0 {
		opts.Since = time.Now().Add(-*window)
	}

	if err := app.NewLiker(client, store, opts, log).Run(ctx, groups); err != nil {
		return fmt.Errorf("like pass: %w", err)
	}
	return nil
}
