// Pulpo Picker — a picking-plan orchestrator for Altruan's Pulpo
// warehouse management system.
//
// Architecture:
//
//	main.go                      — entry point: loads config, runs one picking cycle, exits
//	internal/orchestrator        — orchestrator: wires shelves → separation → batching → carts
//	internal/separate            — order separation: single-pick gates + six-bucket routing
//	internal/batch                — Batch Planner: same-SKU batching with pallet-capacity splits
//	internal/cart                 — Cart Planners: shelf-based then random cart filling
//	internal/shelves               — Shelves Indexer: builds the shelf/stock snapshot for a run
//	internal/classify              — order classification: priority, size, Seni, suitability
//	internal/notes                 — picking-order note composition
//	internal/roster                — picker roster persistence (Blob) and refresh (Sheets)
//	internal/wmsclient             — REST client for the Pulpo WMS API
//	internal/articleservice        — article-master client for pallet-capacity fallback
//	internal/alert                 — Teams webhook notifications for conditions needing a human
//
// What it does:
//
//	Each run walks the queued fulfillment orders once: it pauses orders
//	that ship via a carrier outside the picking flow, filters out orders
//	the warehouse can't fully fulfill yet, and then routes the rest into
//	single picks, batches (many orders, one SKU) or carts (several
//	orders sharing a shelf or just a package-size bucket), balancing
//	throughput against the warehouse's available picking capacity.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/altruan-tools/pulpopicker/internal/alert"
	"github.com/altruan-tools/pulpopicker/internal/articleservice"
	"github.com/altruan-tools/pulpopicker/internal/batch"
	"github.com/altruan-tools/pulpopicker/internal/config"
	"github.com/altruan-tools/pulpopicker/internal/orchestrator"
	"github.com/altruan-tools/pulpopicker/internal/roster"
	"github.com/altruan-tools/pulpopicker/internal/shelves"
	"github.com/altruan-tools/pulpopicker/internal/wmsclient"
	"github.com/altruan-tools/pulpopicker/pkg/model"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("PULPO_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	if cfg.DryRun {
		logger.Warn("dry_run is set but has no effect: picks are created as usual")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, skuRulesCount, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build orchestrator", "error", err)
		os.Exit(1)
	}
	logger.Info("orchestrator ready", "skus_to_batch", skuRulesCount)

	summary, err := orch.Run(ctx, now())
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run finished",
		"orders_seen", summary.OrdersSeen,
		"running_dry", summary.IsRunningDry,
		"sweeping_time", summary.IsSweepingTime,
	)
}

// build wires every subsystem together from cfg, matching the shape
// internal/orchestrator.New expects.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*orchestrator.Orchestrator, int, error) {
	wmsURL := cfg.WMS.BaseURL
	if cfg.WMS.UseSandbox {
		wmsURL = cfg.WMS.SandboxURL
	}
	client := wmsclient.NewClient(wmsclient.Config{
		BaseURL:    wmsURL,
		Login:      cfg.WMS.Login,
		Password:   cfg.WMS.Password,
		Timeout:    cfg.WMS.Timeout,
		MaxCalls:   cfg.WMS.MaxCalls,
		TimeWindow: cfg.WMS.TimeWindow,
		Retries:    cfg.WMS.Retries,
		RetryDelay: cfg.WMS.RetryDelay,
	}, logger)
	if err := client.Authenticate(ctx); err != nil {
		return nil, 0, fmt.Errorf("authenticate with wms: %w", err)
	}

	rosterStore, err := roster.NewStore(roster.BlobConfig{
		ConnectionString: cfg.Roster.BlobConnectionString,
		Container:        cfg.Roster.BlobContainer,
		Blob:             cfg.Roster.BlobName,
	}, logger)
	if err != nil {
		return nil, 0, fmt.Errorf("create roster store: %w", err)
	}

	var rosterRefresher *roster.Refresher
	if cfg.Roster.SheetID != "" {
		rosterRefresher, err = roster.NewRefresher(ctx, roster.SheetConfig{
			SpreadsheetID: cfg.Roster.SheetID,
			Ranges:        cfg.Roster.SheetRanges,
		}, client, logger)
		if err != nil {
			logger.Error("roster sheet refresh disabled: failed to create client", "error", err)
			rosterRefresher = nil
		}
	}

	articlesClient := articleservice.NewClient(articleservice.Config{
		BaseURL: cfg.ArticleService.BaseURL,
		Timeout: cfg.ArticleService.Timeout,
	}, logger)
	notifier := alert.NewNotifier(cfg.Alert.WebhookURL, logger)
	shelfIndexer := shelves.New(client, logger)

	skuRules, err := batch.LoadSkusToBatchRules(cfg.Run.SkusToBatchPath)
	var configErr *wmsclient.ConfigError
	if errors.As(err, &configErr) {
		logger.Error("skus-to-batch rules unavailable, degrading to an empty rule set", "error", err)
		skuRules = model.SkusToBatchRules{}
	} else if err != nil {
		return nil, 0, fmt.Errorf("load skus-to-batch rules: %w", err)
	}

	orch := orchestrator.New(
		client,
		rosterStore,
		rosterRefresher,
		cfg.Roster.UpdateHours,
		shelfIndexer,
		articlesClient,
		notifier,
		logger,
		cfg.Run,
		skuRules,
	)
	return orch, len(skuRules), nil
}

// now returns the current time in the warehouse's local timezone, since
// every hour-of-day comparison in the orchestrator (sweeping, night
// cleaning, roster refresh) is defined against Berlin local time
// regardless of where this process runs.
func now() time.Time {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
