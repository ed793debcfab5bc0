package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adda-Baaj/groupkit/internal/app"
	"github.com/Adda-Baaj/groupkit/internal/config"
	"github.com/Adda-Baaj/groupkit/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "exporter failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	groupsFlag := flag.String("groups", "", "comma-separated group ids to export (default: every group in the groups file)")
	outFlag := flag.String("out", "", "output directory (overrides OUTPUT_DIR)")
	quiet := flag.Bool("quiet", false, "do not draw progress bars")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *outFlag != "" {
		cfg.OutputDir = *outFlag
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	groups, err := app.LoadGroups(cfg, splitIDs(*groupsFlag), log)
	if err != nil {
		return err
	}
	client, err := app.NewGroupMeClient(cfg)
	if err != nil {
		return err
	}

	opts := app.ExportOptions{
		OutputDir:     cfg.OutputDir,
		// Exports leave absent cells empty; csv_zero applies to stats counts.
		Zero:          "",
		Progress:      os.Stdout,
		ProgressWidth: cfg.ProgressWidth,
	}
	if *quiet {
		opts.Progress = nil
	}

	if err := app.NewExporter(client, opts, log).Run(ctx, groups); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
