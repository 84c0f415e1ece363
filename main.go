package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-watch/api"
	"rental-watch/config"
	"rental-watch/metrics"
	"rental-watch/models"
	"rental-watch/notify"
	"rental-watch/scraper"
	"rental-watch/scraper/ygl"
	"rental-watch/services"
	"rental-watch/storage"
	"rental-watch/utils"
)

func main() {
	notifyFlag := flag.Bool("notify", false, "send notifications for new listings")
	sourcesFlag := flag.String("sources", "", "path to the sources YAML file (overrides SOURCES_PATH)")
	serveFlag := flag.Bool("serve", false, "keep serving the read API after the run")
	exportFlag := flag.String("export", "", "write the known-listings index as JSON to this path")
	flag.Parse()

	cfg := config.Load()
	if *notifyFlag {
		cfg.NotifyEnabled = true
	}
	if *sourcesFlag != "" {
		cfg.SourcesPath = *sourcesFlag
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	if err := run(cfg, logger, *serveFlag, *exportFlag); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger, serve bool, exportPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Rental watch starting ===")
	logger.Info("Config: store=%s | notify=%v via %s | max pages: %d | concurrency: %d | filter: %v (baths>=%.1f, per bed<=%.0f)",
		cfg.StoreDriver, cfg.NotifyEnabled, cfg.NotifyTransport, cfg.MaxPages, cfg.MaxConcurrency,
		cfg.Filter.Enabled, cfg.Filter.MinBaths, cfg.Filter.MaxPricePerBed)

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return err
	}
	logger.Info("Loaded %d sources from %s", len(sources), cfg.SourcesPath)

	retry := &utils.RetryConfig{MaxAttempts: cfg.ConnectRetries, BaseDelay: time.Second, Logger: logger}

	store, err := openStore(cfg, retry)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, closeNotifier, err := openNotifier(cfg, retry, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	fetcher, closeFetcher := openFetcher(cfg, logger)
	defer closeFetcher()

	reg := metrics.NewRegistry()
	reconciler := services.NewReconciler(store, logger)
	if err := reconciler.Load(ctx); err != nil {
		return err
	}

	walker := scraper.NewWalker(fetcher, ygl.NewParser(), logger, scraper.WalkerOptions{
		MaxPages:  cfg.MaxPages,
		PageDelay: time.Duration(cfg.PageDelayMs) * time.Millisecond,
	})
	pipeline := services.NewPipeline(walker, reconciler, notifier, logger, services.PipelineOptions{
		NotifyEnabled: cfg.NotifyEnabled,
		Filter:        cfg.Filter,
		Concurrency:   cfg.MaxConcurrency,
		RateLimitMs:   cfg.PageDelayMs,
	}).WithMetrics(reg)

	if cfg.RawCSVPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.RawCSVPath)
		if err != nil {
			return fmt.Errorf("open raw CSV: %w", err)
		}
		defer csvWriter.Close()
		pipeline.WithRawWriter(csvWriter)
	}

	report, runErr := pipeline.Run(ctx, sources)
	printRunReport(report)

	listings, listErr := store.ListAll(context.Background())
	if listErr != nil {
		logger.Error("Failed to read listings for insights: %v", listErr)
	} else {
		insights := services.NewInsightService(logger)
		insights.Print(os.Stdout, insights.Generate(listings, report.StartedAt))
	}

	if exportPath != "" && listErr == nil {
		if err := exportListings(exportPath, listings); err != nil {
			logger.Error("Export failed: %v", err)
		} else {
			logger.Info("Exported %d listings to %s", len(listings), exportPath)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	if serve {
		srv := api.NewServer(store, sources, services.NewInsightService(logger), logger, cfg.AuthUser, cfg.AuthPass).
			WithMetrics(reg).
			WithCORSOrigin(cfg.CORSOrigin).
			WithRunStart(report.StartedAt)
		return srv.ListenAndServe(ctx, cfg.HTTPAddr)
	}
	return nil
}

func openStore(cfg *config.Config, retry *utils.RetryConfig) (storage.Store, error) {
	switch cfg.StoreDriver {
	case "pebble":
		s, err := storage.NewPebbleStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open pebble store at %s: %w", cfg.StorePath, err)
		}
		return s, nil
	case "postgres":
		s, err := storage.NewPostgresStore(cfg.DSN(), retry)
		if err != nil {
			return nil, fmt.Errorf("connect to PostgreSQL (is it running? docker compose up -d): %w", err)
		}
		return s, nil
	case "memory":
		return storage.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func openNotifier(cfg *config.Config, retry *utils.RetryConfig, logger *utils.Logger) (services.Notifier, func(), error) {
	noop := func() {}
	if !cfg.NotifyEnabled {
		return nil, noop, nil
	}
	switch cfg.NotifyTransport {
	case "log":
		return notify.NewLogNotifier(logger), noop, nil
	case "nats":
		n, err := notify.NewNATSNotifier(cfg.NATSURL, cfg.NATSSubject, retry, logger)
		if err != nil {
			return nil, noop, err
		}
		return n, n.Close, nil
	case "email":
		n, err := notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			To:       cfg.SMTPTo,
		})
		if err != nil {
			return nil, noop, err
		}
		return n, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
	}
}

func openFetcher(cfg *config.Config, logger *utils.Logger) (scraper.Fetcher, func()) {
	if !cfg.UseBrowser {
		return scraper.NewHTTPFetcher(cfg.FetchTimeout, cfg.UserAgent), func() {}
	}
	b := scraper.NewBrowserFetcher(cfg.ChromeBin, cfg.UserAgent, cfg.FetchTimeout, logger)
	return b, b.Close
}

func printRunReport(r *models.RunReport) {
	fmt.Printf("\n  Run started %s, took %s\n", r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond))
	fmt.Printf("  %-24s %6s %6s %6s %6s %6s %6s\n", "source", "pages", "items", "new", "repeat", "bad", "skip")
	for _, s := range r.Sources {
		status := ""
		var fe *models.FetchError
		switch {
		case s.Err == nil:
		case errors.As(s.Err, &fe):
			status = "  (fetch failed)"
		case errors.Is(s.Err, scraper.ErrPageLimit):
			status = "  (page limit)"
		default:
			status = "  (error)"
		}
		fmt.Printf("  %-24s %6d %6d %6d %6d %6d %6d%s\n",
			truncateName(s.Source, 24), s.Pages, s.Items, s.New, s.Repeat, s.Malformed, s.Filtered, status)
	}
}

func exportListings(path string, listings []models.KnownListing) error {
	out := make(map[string]models.KnownListing, len(listings))
	for _, l := range listings {
		out[l.Address] = l
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
