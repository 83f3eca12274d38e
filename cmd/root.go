package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pantry-bot/config"
	"pantry-bot/internal/container"
	mylog "pantry-bot/internal/log"
)

// NewRootCmd создаёт корневую команду.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pantrybot",
		Short: "Recognize groceries on photos and keep a pantry inventory",
		Long: `pantrybot sends photos to an object-detection service, filters the
detections by confidence and reconciles them with the pantry inventory.
New items are written only after the user confirms them.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to YAML config (default $XDG_CONFIG_HOME/pantry-bot/config.yaml)")

	cmd.AddCommand(NewBotCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewInventoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute запускает корневую команду.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, mylog.Scrub(err.Error()))
		os.Exit(1)
	}
}

// loadConfig читает конфигурацию с учётом глобальных флагов и настраивает логгер.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	var cfg *config.Config
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, nil, err
	}
	cfg.Verbose = cfg.Verbose || verbose

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := mylog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// buildContainer загружает конфигурацию и собирает сервисы.
func buildContainer(cmd *cobra.Command) (*config.Config, *container.Container, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := container.Build(cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build services: %w", err)
	}
	return cfg, c, logger, nil
}

// signalContext отменяется по SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
