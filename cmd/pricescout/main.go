package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricescout/analyze"
	"pricescout/cache"
	"pricescout/config"
	"pricescout/models"
	"pricescout/pipeline"
	"pricescout/proxy"
	"pricescout/scraper"
	"pricescout/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.FromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	flags := parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	products := splitList(flags.products)
	if len(products) == 0 {
		fmt.Fprintln(os.Stderr, "no products given; use -products \"iphone 13,notebook\"")
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("initialising store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	pageCache := buildCache(ctx, cfg, flags.noCache)

	proxies := proxy.NewManager(cfg.Proxies, cfg.ProxyMinSuccessRate, cfg.ProxyCooldown)
	metrics := scraper.NewMetrics()

	fetcher, err := scraper.NewFetcher(cfg, proxies, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting run",
		slog.String("region", cfg.Region),
		slog.Int("products", len(products)),
		slog.Int("pages", cfg.MaxPages),
		slog.Int("workers", cfg.Parallelism),
		slog.Int("proxies", proxies.Size()),
	)

	ingestor := pipeline.NewIngestor(st, cfg)
	runner := scraper.NewRunner(cfg, fetcher, proxies, pageCache, ingestor, metrics, time.Now().UnixNano())

	runStart := time.Now()
	summary := runner.Run(ctx, products, cfg.MaxPages)
	printSummary(summary, time.Since(runStart))

	analyzer := analyze.New(st, cfg)
	medians := make(map[string]float64)
	for _, product := range products {
		stats, paths, err := analyzer.Report(context.Background(), product, time.Time{}, time.Time{})
		if errors.Is(err, analyze.ErrInsufficientData) {
			fmt.Printf("\n%s: no priced listings collected, skipping analysis\n", product)
			continue
		}
		if err != nil {
			slog.Error("analysis failed", slog.String("product", product), slog.Any("error", err))
			continue
		}
		printStats(stats, paths)
		medians[product] = stats.Median
	}
	if len(medians) >= 2 {
		if path, err := analyze.RenderComparison(medians, cfg.OutputDir); err != nil {
			slog.Error("comparison chart failed", slog.Any("error", err))
		} else {
			fmt.Printf("\nComparison chart: %s\n", path)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}
}

type cliFlags struct {
	products string
	noCache  bool
}

func parseFlags(cfg *config.Config) cliFlags {
	var fl cliFlags

	products := flag.String("products", "", "Comma-separated product search terms")
	pages := flag.Int("pages", cfg.MaxPages, "Result pages to scrape per product")
	region := flag.String("region", cfg.Region, "Marketplace region slug")
	minPrice := flag.Float64("min-price", cfg.MinPrice, "Minimum price to keep a listing")
	maxPrice := flag.Float64("max-price", cfg.MaxPrice, "Maximum price to keep a listing")
	parallel := flag.Int("parallel", cfg.Parallelism, "Number of concurrent workers")
	delayMs := flag.Int("delay", int(cfg.Delay/time.Millisecond), "Base delay between requests (milliseconds)")
	randomDelayMs := flag.Int("random-delay", int(cfg.RandomDelay/time.Millisecond), "Random jitter added to delay (milliseconds)")
	maxRetries := flag.Int("max-retries", cfg.MaxRetries, "Maximum retry attempts per page")
	proxies := flag.String("proxies", strings.Join(cfg.Proxies, ","), "Comma-separated proxy URLs")
	noCache := flag.Bool("no-cache", false, "Disable the page cache")
	output := flag.String("output", cfg.OutputDir, "Directory for analysis artifacts")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	cfg.MaxPages = *pages
	cfg.Region = *region
	cfg.MinPrice = *minPrice
	cfg.MaxPrice = *maxPrice
	cfg.Parallelism = *parallel
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.RandomDelay = time.Duration(*randomDelayMs) * time.Millisecond
	cfg.MaxRetries = *maxRetries
	cfg.OutputDir = *output
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if *proxies != "" {
		cfg.Proxies = splitList(*proxies)
	}

	fl.products = *products
	fl.noCache = *noCache
	return fl
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}

	jsonl, err := store.NewJSONL(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return jsonl, func() {
		if err := jsonl.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}, nil
}

func buildCache(ctx context.Context, cfg *config.Config, disabled bool) cache.Cache {
	if disabled || cfg.CacheTTL == 0 {
		return cache.Disabled{}
	}
	local := cache.NewMemory(0, cfg.CacheTTL)
	if cfg.RedisAddr == "" {
		return local
	}
	remote := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	return cache.NewTiered(remote, local)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSummary(summary *models.RunSummary, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Run complete")
	fmt.Printf("  Tasks attempted:  %d\n", summary.TasksAttempted)
	fmt.Printf("  Tasks succeeded:  %d\n", summary.TasksSucceeded)
	fmt.Printf("  Tasks failed:     %d\n", summary.TasksFailed)
	fmt.Printf("  Listings saved:   %d\n", summary.ListingsPersisted)
	fmt.Printf("  Retries:          %d\n", summary.RetryCount)
	if len(summary.ErrorsByType) > 0 {
		fmt.Printf("  Error types:      %v\n", summary.ErrorsByType)
	}
	for product, count := range summary.PerProduct {
		fmt.Printf("    %-20s %d listings\n", product, count)
	}
	fmt.Printf("  Duration:         %v\n", duration)
	fmt.Println(separator)
}

func printStats(stats *models.Stats, paths []string) {
	fmt.Printf("\nResults for %q (%d priced listings)\n", stats.ProductQuery, stats.Count)
	fmt.Printf("  Mean:    R$ %.2f\n", stats.Mean)
	fmt.Printf("  Median:  R$ %.2f\n", stats.Median)
	fmt.Printf("  Min:     R$ %.2f\n", stats.Min)
	fmt.Printf("  Max:     R$ %.2f\n", stats.Max)
	fmt.Printf("  StdDev:  R$ %.2f\n", stats.StdDev)
	fmt.Printf("  P25/P75: R$ %.2f / R$ %.2f\n", stats.P25, stats.P75)
	fmt.Printf("  Mode:    R$ %.2f\n", stats.Mode)
	for _, p := range paths {
		fmt.Printf("  Artifact: %s\n", p)
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
