package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"statusboard/internal/agent"
	"statusboard/internal/core/logger"
)

var (
	cfg       agent.Config
	noDocker  bool
	once      bool
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:          "statusboard-agent",
	Short:        "Push status snapshots to a statusboard server",
	SilenceUsage: true,
	RunE:         runAgent,
}

func init() {
	rootCmd.Flags().StringVarP(&cfg.ServerURL, "server", "s", envOr("AGENT_SERVER", "http://localhost:3000"), "statusboard base URL")
	rootCmd.Flags().StringVar(&cfg.Token, "token", os.Getenv("STATUS_AUTH_TOKEN"), "Bearer token for ingest")
	rootCmd.Flags().StringVarP(&cfg.BaseFile, "base", "b", os.Getenv("AGENT_BASE_FILE"), "Base snapshot JSON file")
	rootCmd.Flags().StringVar(&cfg.Name, "name", os.Getenv("AGENT_NAME"), "Agent name (defaults to hostname)")
	rootCmd.Flags().DurationVarP(&cfg.Interval, "interval", "i", time.Minute, "Push interval")
	rootCmd.Flags().BoolVar(&noDocker, "no-docker", false, "Do not collect the docker section")
	rootCmd.Flags().BoolVar(&once, "once", false, "Push a single snapshot and exit")
	rootCmd.Flags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level")
	rootCmd.Flags().StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "text"), "Log format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runAgent(cmd *cobra.Command, args []string) error {
	logger.Init(logger.ParseLevel(logLevel), logFormat)

	var docker *agent.DockerCollector
	if !noDocker {
		d, err := agent.NewDockerCollector()
		if err != nil {
			logger.Warn("Docker client unavailable, docker section disabled", "error", err)
		} else {
			docker = d
		}
	}

	a := agent.New(cfg, docker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		return a.PushOnce(ctx)
	}
	return a.Run(ctx)
}
