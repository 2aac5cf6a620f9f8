package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/classify"
	"github.com/fluxsignal/exchange-flow-backend/internal/config"
	"github.com/fluxsignal/exchange-flow-backend/internal/enhance"
	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/metrics"
	"github.com/fluxsignal/exchange-flow-backend/internal/pipeline"
	"github.com/fluxsignal/exchange-flow-backend/internal/scheduler"
	"github.com/fluxsignal/exchange-flow-backend/internal/store"
	"github.com/fluxsignal/exchange-flow-backend/internal/transport"
)

type cliConfig struct {
	ConfigPath  string `long:"config" env:"EXCHANGE_FLOW_CONFIG" description:"path to the configuration file" default:"config/config.yaml"`
	APIAddr     string `long:"api-addr" env:"EXCHANGE_FLOW_API_ADDR" description:"address for the collaborator API" default:":8080"`
	MetricsAddr string `long:"metrics-addr" env:"EXCHANGE_FLOW_METRICS_ADDR" description:"address for the metrics server" default:":2112"`
}

func main() {
	cli := cliConfig{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cli, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cli, logger); err != nil {
		logger.Fatal("exchange flow backend failed", zap.Error(err))
	}
}

func run(ctx context.Context, cli cliConfig, logger *zap.Logger) error {
	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDatabaseDir(); err != nil {
		return err
	}

	startMetricsServer(ctx, cli.MetricsAddr, logger)

	st, err := store.Open(cfg.Database.Path, metrics.NewStore(), logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("close store failed", zap.Error(closeErr))
		}
	}()

	book, err := classify.LoadAddressBook(cfg.Addresses.File)
	if err != nil {
		return fmt.Errorf("load address book: %w", err)
	}
	classifier := classify.New(
		book,
		cfg.NodeRegistry.URL,
		&http.Client{Timeout: cfg.NodeRegistry.RequestTimeout()},
		metrics.NewClassifier(),
		logger,
	)
	// First refresh is best-effort: the registry being down must not block
	// startup, ingestion simply sees fewer operators until the next refresh.
	if err := classifier.RefreshNodeOperators(ctx); err != nil {
		logger.Warn("initial node registry refresh failed", zap.Error(err))
	}

	chain, err := indexer.NewClient(cfg, metrics.NewIndexerClient(), logger)
	if err != nil {
		return fmt.Errorf("init indexer client: %w", err)
	}

	pipe, err := pipeline.New(st, chain, classifier, metrics.NewPipeline(), cfg.Retention.WindowBlocks, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	pipe.Start(ctx)
	defer pipe.Stop()

	cache := enhance.NewCache(metrics.NewCache())
	engine, err := enhance.New(st, chain, classifier, cache, metrics.NewEnhancement(), cfg.Enhancement, cfg.BlockTimeSeconds, logger)
	if err != nil {
		return fmt.Errorf("init enhancement engine: %w", err)
	}

	backgroundEnhancement := scheduler.NewToggle(cfg.Enhancement.BackgroundJob.Enabled)

	sched := scheduler.New(logger)
	if err := sched.Add(ctx, &scheduler.Job{
		Name:       "ingestion",
		Interval:   time.Duration(cfg.Sync.IntervalMinutes) * time.Minute,
		RunOnStart: cfg.Sync.RunOnStart,
		Run:        pipe.Tick,
	}); err != nil {
		return err
	}
	if err := sched.Add(ctx, &scheduler.Job{
		Name:       "enhancement",
		Interval:   time.Duration(cfg.Enhancement.BackgroundJob.IntervalMinutes) * time.Minute,
		RunOnStart: cfg.Enhancement.BackgroundJob.RunOnStart,
		Run: func(ctx context.Context) error {
			if !backgroundEnhancement.Enabled() {
				return nil
			}
			unknowns, err := st.GetUnknownWallets(ctx, cfg.Enhancement.FailedRetry())
			if err != nil {
				return err
			}
			if unknowns.Total < cfg.Enhancement.BackgroundJob.MinUnknownsThreshold {
				logger.Debug("below unknowns threshold; skipping enhancement",
					zap.Int("total", unknowns.Total),
					zap.Int("threshold", cfg.Enhancement.BackgroundJob.MinUnknownsThreshold),
				)
				return nil
			}
			_, err = engine.EnhanceUnknowns(ctx)
			return err
		},
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	handler := transport.NewHandler(st, pipe, engine, backgroundEnhancement, cfg.Periods, logger)
	srv := transport.Server(cli.APIAddr, handler.Router())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown api server", zap.Error(err))
		}
	}()

	logger.Info("starting api server", zap.String("addr", cli.APIAddr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
