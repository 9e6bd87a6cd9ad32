package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	v1 "github.com/bookwell/customer-sync/cmd/customer-sync/api/v1"
	"github.com/bookwell/customer-sync/internal/board"
	"github.com/bookwell/customer-sync/internal/bookings"
	"github.com/bookwell/customer-sync/internal/config"
	"github.com/bookwell/customer-sync/internal/httpclient"
	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/service"
	pkgsync "github.com/bookwell/customer-sync/internal/sync"
	"github.com/bookwell/customer-sync/internal/sync/coordinator"
	"github.com/bookwell/customer-sync/internal/sync/state"
	"github.com/bookwell/customer-sync/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the customer sync server",
	Long: `Start the customer sync HTTP server.

The server requires a configuration file (--config) that specifies:
- Booking system API endpoint and credentials
- Board platform endpoint, board and column mapping
- Run window, run guard and pacing settings

See examples/ directory for sample configurations.

Sync passes are triggered through POST /v1/sync, and additionally by the
background coordinator when sync.auto.enabled is set.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverIdleTimeout      = 60 * time.Second

	// A synchronous trigger holds the response open for the whole pass,
	// which is paced by the per-record delay. The write timeout has to
	// accommodate that, not a typical API response.
	serverWriteTimeout = 30 * time.Minute
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

// syncComponents bundles the wired sync pipeline shared by the serve and
// run commands.
type syncComponents struct {
	stateService state.Service
	coordinator  coordinator.Coordinator
	service      service.SyncService
	cleanup      func()
}

// buildSyncComponents wires the source client, board client, window gate,
// sync manager, state service and coordinator from the configuration.
func buildSyncComponents(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry) (*syncComponents, error) {
	sourceToken, err := cfg.Source.GetToken()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source token: %w", err)
	}
	boardToken, err := cfg.Board.GetToken()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve board token: %w", err)
	}

	sourceClient := bookings.NewClient(
		httpclient.NewDefaultClient(
			httpclient.WithBearerToken(sourceToken),
			httpclient.WithTimeout(cfg.Source.GetTimeout()),
		),
		cfg.Source.BaseURL,
		cfg.Source.GetPageSize(),
	)

	boardClient := board.NewClient(
		httpclient.NewDefaultClient(
			httpclient.WithBearerToken(boardToken),
			httpclient.WithTimeout(cfg.Board.GetTimeout()),
		),
		cfg.Board.Endpoint,
		cfg.Board.BoardID,
		cfg.Board.GroupID,
		board.ColumnMapping{
			Email:      cfg.Board.EmailColumnID,
			Phone:      cfg.Board.PhoneColumnID,
			CustomerID: cfg.Board.CustomerIDColumnID,
			CreatedAt:  cfg.Board.CreatedAtColumnID,
		},
	)

	gate, err := pkgsync.NewGate(cfg.Sync.GetTimezone(), cfg.Sync.GetWindowStart(), cfg.Sync.GetWindowEnd())
	if err != nil {
		return nil, fmt.Errorf("failed to build run window gate: %w", err)
	}

	manager := pkgsync.NewDefaultSyncManager(sourceClient, boardClient, gate, pkgsync.Options{
		Lookback:      cfg.Sync.GetLookback(),
		RecordDelay:   cfg.Sync.GetRecordDelay(),
		RetryCooldown: cfg.Sync.GetRetryCooldown(),
		DryRun:        cfg.Sync.DryRun,
	})

	stateService, stateCleanup, err := state.NewService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create state service: %w", err)
	}
	if err := stateService.Initialize(ctx); err != nil {
		stateCleanup()
		return nil, fmt.Errorf("failed to initialize state service: %w", err)
	}

	syncMetrics, err := telemetry.NewSyncMetrics(tel.MeterProvider())
	if err != nil {
		stateCleanup()
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	coord := coordinator.New(manager, stateService,
		coordinator.WithSyncMetrics(syncMetrics),
		coordinator.WithPollInterval(cfg.Sync.Auto.GetPollInterval()),
	)

	return &syncComponents{
		stateService: stateService,
		coordinator:  coord,
		service:      service.New(coord, stateService),
		cleanup:      stateCleanup,
	}, nil
}

func loadConfigFromFlags() (*config.Config, error) {
	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (source: %s, board: %s)",
		configPath, cfg.Source.BaseURL, cfg.Board.BoardID)
	return cfg, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	address := viper.GetString("address")

	logger.Infof("Starting customer sync server on %s", address)

	cfg, err := loadConfigFromFlags()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Failed to shut down telemetry: %v", err)
		}
	}()

	components, err := buildSyncComponents(ctx, cfg, tel)
	if err != nil {
		return err
	}
	defer components.cleanup()

	if cfg.Sync.Auto.Enabled {
		logger.Info("Starting background sync coordinator")
		syncCtx, syncCancel := context.WithCancel(context.Background())
		defer syncCancel()
		go func() {
			if err := components.coordinator.Start(syncCtx); err != nil {
				logger.Errorf("Sync coordinator failed: %v", err)
			}
		}()
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	router := v1.NewServer(components.service,
		v1.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			httpMetrics.Middleware,
			v1.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	if cfg.Sync.Auto.Enabled {
		if err := components.coordinator.Stop(); err != nil {
			logger.Errorf("Failed to stop sync coordinator: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
