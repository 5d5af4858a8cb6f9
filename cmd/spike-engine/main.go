package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stratusops/spikecorr/internal/api"
	"github.com/stratusops/spikecorr/internal/config"
	"github.com/stratusops/spikecorr/internal/engine"
	"github.com/stratusops/spikecorr/internal/metrics"
	"github.com/stratusops/spikecorr/internal/repo"
	"github.com/stratusops/spikecorr/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting spike-engine",
		slog.String("instance_id", cfg.Instance.ID),
		slog.String("metric", cfg.Metric.Name))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Instance.Region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.Instance.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		logger.Error("failed to load AWS configuration", slog.Any("error", err))
		os.Exit(1)
	}

	metricSource := repo.NewCloudWatchSource(cloudwatch.NewFromConfig(awsCfg), repo.MetricQuery{
		Namespace: cfg.Metric.Namespace,
		Name:      cfg.Metric.Name,
		Unit:      cfg.Metric.Unit,
	})
	statusSource := repo.NewEC2StatusSource(ec2.NewFromConfig(awsCfg), logger)
	executor := repo.NewSSMExecutor(
		ssm.NewFromConfig(awsCfg),
		logger,
		cfg.Remote.PollInterval.Std(),
		cfg.Remote.CommandTimeout.Std(),
	)

	pipeline := engine.NewPipeline(engine.PipelineParams{
		Logger:         logger,
		InstanceID:     cfg.Instance.ID,
		Lookback:       cfg.Metric.Lookback.Std(),
		ProcessPattern: cfg.Discovery.ProcessPattern,
		MetricSource:   metricSource,
		StatusSource:   statusSource,
		Executor:       executor,
		Parser:         engine.NewGunicornParser(cfg.Discovery.ServiceRoot),
		Counter:        engine.NewWindowCounter(executor, logger, cfg.Counter.MaxConcurrent),
		Detail:         engine.NewDetailFetcher(executor, logger),
	})

	var analyzer engine.Analyzer
	if cfg.Analyzer.BaseURL != "" {
		analyzer = repo.NewAnalyzerClient(cfg.Analyzer.BaseURL, cfg.Analyzer.Path, cfg.Analyzer.Timeout.Std())
	} else {
		logger.Warn("no analyzer endpoint configured, reports will only be logged")
	}

	scheduler := engine.NewScheduler(logger, pipeline, analyzer,
		cfg.Scheduler.Period.Std(), cfg.Scheduler.CycleBudget.Std())

	server, err := api.NewServer(cfg.Server)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go scheduler.Run(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("spike-engine stopped")
}
