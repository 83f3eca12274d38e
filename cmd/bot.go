package main

import (
	"context"

	"github.com/spf13/cobra"

	telegram "pantry-bot/internal/api"
	"pantry-bot/internal/container"
)

// NewBotCmd создаёт команду запуска Telegram-бота.
func NewBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE:  runBotCmd,
	}
}

func runBotCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	c, err := container.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	bot, err := telegram.NewBot(cfg.TelegramToken, c, cfg.MaxImageBytes, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(context.Background())
	defer stop()

	logger.Info("bot is running")
	if err := bot.Run(ctx); err != nil {
		return err
	}
	logger.Info("bot stopped")
	return nil
}
