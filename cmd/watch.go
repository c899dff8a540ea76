/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/bookshelf-app/server/config"
	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/mq"
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail cache invalidation notices",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.FromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		log.Info("watching invalidations", "channel", cfg.MQ.Channel)
		return mq.Watch(ctx, broker, cfg.MQ.Channel, log)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
