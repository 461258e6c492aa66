package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/giygas/medcodes-scraper/codesparser"
	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/config"
	"github.com/giygas/medcodes-scraper/data"
	"github.com/giygas/medcodes-scraper/fetcher"
	"github.com/giygas/medcodes-scraper/health"
	"github.com/giygas/medcodes-scraper/logging"
	"github.com/giygas/medcodes-scraper/pipeline"
	"github.com/giygas/medcodes-scraper/scheduler"
	"github.com/giygas/medcodes-scraper/server"
	"github.com/giygas/medcodes-scraper/storage"
	"github.com/giygas/medcodes-scraper/validation"
)

func main() {
	once := flag.Bool("once", false, "run the scraper once, print a summary and exit")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(logging.Options{
		LogDir:         cfg.LogDir,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := newRunner(ctx, cfg)
	if err != nil {
		logging.Error("Failed to initialize the scraper", "error", err)
		os.Exit(1)
	}

	if *once {
		if err := runOnce(ctx, cfg, runner, os.Stdout); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, runner); err != nil {
		logging.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// newRunner wires the fetcher, both scrapers and the storage backend
func newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Orchestrator, error) {
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.Options{
		Timeout:           cfg.FetchTimeout,
		RequestsPerSecond: cfg.FetchRate,
	})

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return pipeline.NewOrchestrator(
		codesparser.NewCMSScraper(httpFetcher, codesparser.DefaultCMSConfig()),
		codesparser.NewNUCCScraper(httpFetcher, codesparser.DefaultNUCCConfig()),
		store,
		validation.NewDataValidator(),
	), nil
}

// runOnce runs the pipeline a single time and prints its summary to out
func runOnce(ctx context.Context, cfg *config.Config, runner *pipeline.Orchestrator, out io.Writer) error {
	if cfg.UseObjectStorage() {
		fmt.Fprintf(out, "Object storage enabled. Files will be uploaded to bucket: %s\n", cfg.BucketName)
	} else {
		fmt.Fprintf(out, "Object storage disabled. Files will be saved locally to: %s\n", cfg.OutputDir)
	}

	result, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(out, "\nERROR: %v\n", err)
		return err
	}

	printSummary(out, result)
	return nil
}

func printSummary(out io.Writer, result *entities.RunResult) {
	fmt.Fprintln(out, "\nScraping completed successfully")
	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  - CMS CPT/HCPCS codes: %d\n", result.CMSCount)
	fmt.Fprintf(out, "  - NUCC taxonomy codes: %d\n", result.NUCCCount)
	fmt.Fprintf(out, "  - Total codes: %d\n", result.TotalCount)

	names := make([]string, 0, len(result.Locations))
	for name := range result.Locations {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "\nOutput files:")
	for _, name := range names {
		fmt.Fprintf(out, "  - %s: %s\n", name, result.Locations[name])
	}
}

// serve starts the scheduler and the HTTP server and blocks until ctx is done
func serve(ctx context.Context, cfg *config.Config, runner *pipeline.Orchestrator) error {
	runStore := data.NewRunContainer()
	runStore.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(runStore, runner, scheduler.Options{
		Times:      cfg.ScheduleTimes,
		RunOnStart: cfg.RunOnStart,
	})
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, runStore, sched, health.NewHealthChecker(runStore))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Create a context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
