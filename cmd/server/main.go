package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	http_handler "statusboard/internal/adapters/handler/http"
	"statusboard/internal/adapters/handler/mqtt"
	"statusboard/internal/adapters/relay"
	"statusboard/internal/adapters/store/file"
	"statusboard/internal/adapters/store/memory"
	"statusboard/internal/config"
	"statusboard/internal/core/logger"
	"statusboard/internal/core/ports"
	"statusboard/internal/core/services"
	"statusboard/internal/core/tracing"
)

const version = "0.1.0"

var (
	flagPort       string
	flagStatusFile string
	flagConfigFile string
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "statusboard",
	Short: "Receive agent status pushes and serve a dashboard",
	Long: `statusboard accepts JSON status snapshots on POST /api/status, keeps the
latest one in memory (or reads it from a file) and serves it as JSON and as
an HTML dashboard.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Listen port (overrides PORT)")
	rootCmd.Flags().StringVar(&flagStatusFile, "status-file", "", "Read status from this file instead of accepting pushes")
	rootCmd.Flags().StringVarP(&flagConfigFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flags().Changed("config") {
		os.Setenv("CONFIG_FILE", flagConfigFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("status-file") {
		cfg.StatusFile = flagStatusFile
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, cfg.Validate()
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger.Info("Starting statusboard", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableTracing {
		shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, version, cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
		} else {
			logger.Info("Tracing initialized", "endpoint", cfg.OTLPEndpoint)
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Error("Failed to shutdown tracing", "error", err)
				}
			}()
		}
	}

	var (
		source ports.SnapshotSource
		kind   string
		hub    *http_handler.Hub
		opts   = []services.Option{services.WithTitle(cfg.Title)}
	)

	if cfg.FileMode() {
		source, kind = file.NewSource(cfg.StatusFile), "file"
		logger.Info("Reading status from file", "path", cfg.StatusFile)
	} else {
		source, kind = memory.NewStore(), "memory"

		hub = http_handler.NewHub()
		go hub.Run(ctx)
		opts = append(opts, services.WithNotifiers(hub), services.WithLiveUpdates(true))

		if cfg.RelayURL != "" {
			relayClient := relay.NewClient(cfg.RelayURL, cfg.RelaySecret, cfg.RelayTimeout)
			opts = append(opts, services.WithRelay(relayClient))
			logger.Info("Relay enabled", "endpoint", relayClient.Endpoint())
		}

		if cfg.MQTTBrokerURL != "" {
			publisher, err := mqtt.NewPublisher(cfg.MQTTBrokerURL, cfg.MQTTTopicPrefix)
			if err != nil {
				logger.Error("Failed to init MQTT publisher", "error", err)
			} else {
				defer publisher.Close()
				opts = append(opts, services.WithNotifiers(publisher))
				logger.Info("MQTT publisher started", "topic", publisher.Topic())
			}
		}
	}

	statusSvc := services.NewStatusService(source, opts...)
	healthSvc := services.NewHealthService(source, kind, version)

	server := http_handler.NewServer(statusSvc, healthSvc, hub, http_handler.Options{
		AuthToken:     cfg.AuthToken,
		EnableMetrics: cfg.EnableMetrics,
	})

	if cfg.AuthToken == "" && statusSvc.AcceptsIngest() {
		logger.Warn("STATUS_AUTH_TOKEN not set, ingest is unauthenticated")
	}

	logger.Info("HTTP server starting", "port", cfg.Port, "source", kind)
	err = server.Run(ctx, ":"+cfg.Port)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed", "error", err)
		return err
	}

	logger.Info("Shutting down gracefully...")
	statusSvc.Wait()
	return nil
}
