package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wireboard/internal/app"
	"github.com/vovakirdan/wireboard/internal/config"
	applog "github.com/vovakirdan/wireboard/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "wireboard-server [port]",
		Short:        "Bulletin board server with groups and live notifications",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	var override config.Config
	if len(args) == 1 {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		override.Port = port
	}

	bootLog := applog.New("info")
	cfg, path, err := config.Load(bootLog, "")
	if err != nil {
		return err
	}
	cfg.UpdateFrom(override)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := applog.New(cfg.LogLevel)
	logger.Info().Str("config", path).Str("addr", cfg.Addr()).Msg("starting wireboard server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	return nil
}

func parsePort(arg string) (int, error) {
	port, err := strconv.Atoi(arg)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q: must be a number between 1 and 65535", arg)
	}
	return port, nil
}
