package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/washu-tag/context-gateway/internal/gateway"
	"github.com/washu-tag/context-gateway/internal/monitoring"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var noBanner bool

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the gateway server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !noBanner {
				printBanner()
			}
			return runGatewayServer(cmd.Context(), flags)
		},
	}
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "suppress startup banner")
	return cmd
}

// runGatewayServer starts the gateway and blocks until SIGINT or SIGTERM.
func runGatewayServer(ctx context.Context, flags *rootFlags) error {
	cfg, source, err := loadConfig(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if flags.debug {
		cfg.Monitoring.LogLevel = "debug"
	}
	logger := monitoring.Global(cfg.Monitoring.LoggerConfig())

	logger.Info().
		Str("version", Version).
		Str("config", source).
		Int("port", cfg.Server.Port).
		Str("upstream", cfg.Upstream.OllamaURL).
		Int("token_threshold", cfg.Summarization.TokenThreshold).
		Bool("telemetry", cfg.Monitoring.TelemetryEnabled).
		Msg("Context Gateway starting")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.New(ctx, cfg, gateway.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	if err := gw.Run(ctx); err != nil {
		return err
	}

	log.Info().Msg("Context Gateway stopped")
	return nil
}
