package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/application/orthology"
	"github.com/orthoatlas/orthoatlas/internal/application/treesearch"
	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/messaging/kafka"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/prometheus"
	apihttp "github.com/orthoatlas/orthoatlas/internal/interfaces/http"
	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/handlers"
	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/middleware"
)

// NewServeCmd creates the serve command: the HTTP API server over the
// configured dataset source.
func NewServeCmd() *cobra.Command {
	var servePort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OrthoAtlas HTTP API server",
		Long:  "Serve the orthology and tree search API over HTTP. The dataset loads on\nstartup (or lazily on first request if the source is down) and is swapped\natomically on an admin-triggered reload.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd, cliCtx, servePort)
		},
	}

	cmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides configuration)")
	return cmd
}

func runServe(cmd *cobra.Command, cliCtx *CLIContext, portOverride int) error {
	cfg := cliCtx.Config
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	// The server logs in the configured format (JSON by default), not the
	// CLI's stderr console format.
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	src, err := newSource(cfg, logger)
	if err != nil {
		return err
	}

	var (
		appMetrics     *prometheus.AppMetrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return err
		}
		appMetrics = prometheus.NewAppMetrics(collector)
		metricsHandler = collector.Handler()
	}

	var (
		producer  *kafka.Producer
		publisher *kafka.EventPublisher
	)
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			return err
		}
		defer producer.Close()
		publisher = kafka.NewEventPublisher(producer, cfg.Kafka.ClientID)
	}

	dataOpts := []dataset.ServiceOption{
		dataset.WithLogger(logger),
		dataset.WithMetrics(appMetrics),
	}
	if publisher != nil {
		dataOpts = append(dataOpts, dataset.WithEvents(publisher))
	}
	data := dataset.NewService(src, cfg.Dataset, dataOpts...)

	treeSvc := treesearch.NewService(data,
		treesearch.WithLogger(logger),
		treesearch.WithMetrics(appMetrics))
	orthoSvc := orthology.NewService(data,
		orthology.WithLogger(logger),
		orthology.WithMetrics(appMetrics))

	health := handlers.NewHealthHandler(Version, logger, appMetrics)
	health.AddCheck("datasource", src.Healthy)
	health.AddCheck("dataset", func(ctx context.Context) error {
		_, err := data.Ensure(ctx)
		return err
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rlCfg := middleware.DefaultRateLimitConfig()
		rlCfg.RPS = cfg.RateLimit.RPS
		rlCfg.Burst = cfg.RateLimit.Burst
		limiter = middleware.NewRateLimiter(rlCfg)
		defer limiter.Stop()
	}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Search:         handlers.NewSearchHandler(treeSvc, logger),
		Orthology:      handlers.NewOrthologyHandler(orthoSvc, logger),
		Species:        handlers.NewSpeciesHandler(data, logger),
		Dataset:        handlers.NewDatasetHandler(data, logger),
		Health:         health,
		Logger:         logger,
		Metrics:        appMetrics,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		RateLimiter:    limiter,
		CORS:           corsFromConfig(cfg),
		AdminAPIKey:    cfg.Admin.APIKey,
		Mode:           cfg.Server.Mode,
	})

	srv := apihttp.NewServer(cfg.Server, router, logger)

	// Warm the dataset before accepting traffic. A failure is not fatal:
	// readiness gates traffic and the next request retries the load.
	warmCtx, warmCancel := context.WithTimeout(cmd.Context(), cfg.Dataset.LoadTimeout)
	if _, err := data.Ensure(warmCtx); err != nil {
		logger.Warn("initial dataset load failed; will retry on demand", logging.Err(err))
	}
	warmCancel()

	if cliCtx.ConfigFile != "" {
		config.Watch(cliCtx.ConfigFile, func(next *config.Config) {
			logger.Info("configuration file changed on disk; restart to apply",
				logging.String("path", cliCtx.ConfigFile),
				logging.String("log_level", next.Log.Level))
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("orthoatlas api server started",
		logging.Int("port", cfg.Server.Port),
		logging.String("mode", cfg.Server.Mode),
		logging.String("source", src.Describe()),
		logging.String("version", Version))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server terminated", logging.Err(err))
			return err
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", logging.Err(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// corsFromConfig maps the server CORS settings onto the middleware config.
// No configured origins means no CORS middleware at all.
func corsFromConfig(cfg *config.Config) *middleware.CORSConfig {
	if len(cfg.Server.AllowedOrigins) == 0 {
		return nil
	}
	cc := middleware.DefaultCORSConfig()
	cc.AllowedOrigins = cfg.Server.AllowedOrigins
	return &cc
}
