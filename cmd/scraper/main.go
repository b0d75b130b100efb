package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/catalog"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/config"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/detail"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/diagnostics"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/export"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/models"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/session"
)

func main() {
	var (
		brand       = flag.String("brand", "", "Brand to scrape: Hanwha | Axis | Avigilon | all (required)")
		headless    = flag.Bool("headless", true, "Prefer headless browser (interactive login is always visible)")
		onlyMissing = flag.Bool("only-missing", false, "Only fetch MSRP for records without a price")
		catalogOnly = flag.Bool("catalog-only", false, "Skip the MSRP phase; export the catalog list only")
		fromFile    = flag.String("from-file", "", "Path to an existing catalog CSV instead of re-harvesting")
		pdpOnly     = flag.Bool("pdp-only", false, "With -from-file, skip writing a new catalog snapshot")
		limit       = flag.Int("limit", 0, "Process only the first N items (0 = all)")
		keepOpen    = flag.Bool("keep-open", false, "Keep the browser open after the run")
	)
	flag.Parse()

	// .env is optional; real env vars win either way.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg.Logging)

	if *brand == "" {
		fmt.Fprintln(os.Stderr, "-brand is required")
		flag.Usage()
		os.Exit(1)
	}

	// Credentials are checked before any browser launches.
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	brands, err := config.Brands(*brand)
	if err != nil {
		slog.Error("bad brand", "error", err)
		os.Exit(1)
	}
	if *fromFile != "" && len(brands) > 1 {
		slog.Error("-from-file requires a single brand, not 'all'")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, brands, runOptions{
		headless:    *headless,
		onlyMissing: *onlyMissing,
		catalogOnly: *catalogOnly,
		fromFile:    *fromFile,
		pdpOnly:     *pdpOnly,
		limit:       *limit,
		keepOpen:    *keepOpen,
	}); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	headless    bool
	onlyMissing bool
	catalogOnly bool
	fromFile    string
	pdpOnly     bool
	limit       int
	keepOpen    bool
}

func run(ctx context.Context, cfg *config.Config, brands []config.BrandConfig, opts runOptions) error {
	debug := diagnostics.NewRecorder(cfg.Export.DebugDir)

	manager := session.NewManager(cfg.Session, cfg.Credentials, cfg.Browser, debug)
	sess, err := manager.Acquire(ctx, opts.headless)
	if err != nil {
		if errors.Is(err, session.ErrLoginTimeout) || errors.Is(err, session.ErrSessionInvalid) {
			return fmt.Errorf("authentication failed: %w", err)
		}
		return err
	}
	defer func() {
		if opts.keepOpen {
			slog.Info("browser left open as requested (-keep-open); press Enter to close")
			bufio.NewReader(os.Stdin).ReadString('\n')
		}
		sess.Close()
	}()

	harvester := catalog.NewHarvester(cfg.Harvest, debug)
	extractor := detail.NewExtractor(cfg.Detail, debug)

	for _, b := range brands {
		var partials []models.ProductRecord

		if opts.fromFile != "" {
			partials, err = export.LoadRecords(opts.fromFile)
			if err != nil {
				return err
			}
			slog.Info("loaded catalog from file", "path", opts.fromFile, "records", len(partials))
		} else {
			partials, err = harvester.Harvest(ctx, sess, b)
			if err != nil {
				return fmt.Errorf("harvest failed for %s: %w", b.Name, err)
			}
		}

		if opts.limit > 0 && len(partials) > opts.limit {
			slog.Info("limiting run", "limit", opts.limit)
			partials = partials[:opts.limit]
		}

		// Always drop a catalog snapshot for fresh harvests so counts and
		// columns can be validated even if the MSRP phase dies.
		if opts.fromFile == "" || !opts.pdpOnly {
			path, err := export.WriteRecords(cfg.Export.Dir, b.Name, "catalog", partials)
			if err != nil {
				return err
			}
			slog.Info("catalog snapshot written", "path", path)
		}

		if opts.catalogOnly {
			slog.Info("catalog-only run, skipping MSRP phase", "brand", b.Name)
			continue
		}

		enriched, err := extractor.Enrich(ctx, sess, partials, b, opts.onlyMissing)
		if err != nil {
			return fmt.Errorf("detail extraction failed for %s: %w", b.Name, err)
		}

		final := models.Reconcile(partials, enriched)

		path, err := export.WriteRecords(cfg.Export.Dir, b.Name, "msrp", final)
		if err != nil {
			return err
		}
		slog.Info("export written", "brand", b.Name, "path", path, "rows", len(final))
	}

	return nil
}

func setupLogger(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
