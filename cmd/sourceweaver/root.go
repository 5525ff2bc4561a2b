package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alvmarrod/source-weaver/internal/config"
	"github.com/alvmarrod/source-weaver/internal/crawler"
	"github.com/alvmarrod/source-weaver/internal/export"
	"github.com/alvmarrod/source-weaver/internal/fetcher"
	"github.com/alvmarrod/source-weaver/internal/metrics"
	"github.com/alvmarrod/source-weaver/internal/storage"
	"github.com/alvmarrod/source-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// configPath is read when present; the positional arguments override it
const configPath = "config.json"

// NewRootCmd creates the sourceweaver command
func NewRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sourceweaver <seed-url> [max-level]",
		Short: "Trace the provenance of an article by following its outbound links",
		Long: `sourceweaver builds a directed graph of articles starting at a seed URL.
Every outbound link becomes a node; nodes are expanded breadth-first until all
unexpanded nodes sit at or beyond max-level (default 3). The final graph is
written to SQLite, node-link JSON and Graphviz DOT.`,
		Version:       version.Version,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := applyArgs(cfg, args); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
}

// applyArgs copies the positional seed URL and optional max level into cfg
func applyArgs(cfg *config.Config, args []string) error {
	cfg.SeedURL = args[0]

	if len(args) > 1 {
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid max-level %q: %w", args[1], err)
		}
		cfg.MaxLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// run crawls from cfg.SeedURL and exports the resulting graph
func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Infof("Source Weaver v%s starting: seed=%s, max_level=%d", version.Version, cfg.SeedURL, cfg.MaxLevel)

	tracker := metrics.NewTracker()
	tracker.SetRun(cfg.SeedURL, cfg.MaxLevel)

	c := crawler.NewCrawler(cfg, fetcher.NewFetcher(cfg), tracker)
	g, err := c.Crawl(ctx, cfg.SeedURL)
	if err != nil {
		writeMetrics(tracker, cfg.MetricsPath, terminationReason(err))
		return fmt.Errorf("crawl failed: %w", err)
	}

	logrus.Info("Final stats: " + tracker.LogProgress())

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	exporters := []export.Exporter{
		store,
		&export.JSONExporter{Path: cfg.JSONPath},
		&export.DOTExporter{Path: cfg.DOTPath},
	}
	for _, e := range exporters {
		if err := e.Export(g); err != nil {
			writeMetrics(tracker, cfg.MetricsPath, "export_error")
			return fmt.Errorf("failed to export graph: %w", err)
		}
	}
	logrus.Infof("Graph written to %s, %s and %s", cfg.DBPath, cfg.JSONPath, cfg.DOTPath)

	writeMetrics(tracker, cfg.MetricsPath, "completed")
	return nil
}

func terminationReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "signal"
	case errors.Is(err, crawler.ErrLinkSource):
		return "fetch_error"
	default:
		return "error"
	}
}

func writeMetrics(tracker *metrics.Tracker, path, reason string) {
	if err := tracker.WriteToFile(path, reason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
		return
	}
	logrus.Infof("Metrics written to %s", path)
}
