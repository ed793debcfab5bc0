package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/app"
	"github.com/Adda-Baaj/groupkit/internal/config"
	"github.com/Adda-Baaj/groupkit/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stats failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	groupsFlag := flag.String("groups", "", "comma-separated group ids (default: every group in the groups file)")
	window := flag.Duration("since", 0, "only count messages newer than this, e.g. 720h (default: whole history)")
	noTable := flag.Bool("no-table", false, "skip the summary table on stdout")
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

	var ids []string
	for _, id := range strings.Split(*groupsFlag, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	groups, err := app.LoadGroups(cfg, ids, log)
	if err != nil {
		return err
	}
	client, err := app.NewGroupMeClient(cfg)
	if err != nil {
		return err
	}

	opts := app.StatsOptions{OutputDir: cfg.OutputDir, Zero: cfg.CSVZero, Table: os.Stdout}
	if *window > 0 {
		opts.Since = time.Now().Add(-*window)
	}
	if *noTable {
		opts.Table = nil
	}

	if err := app.NewStats(client, opts, log).Run(ctx, groups); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return nil
}
