/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/bookshelf-app/server/config"
	"github.com/bookshelf-app/server/internal/auth"
	"github.com/bookshelf-app/server/internal/db"
	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/seed"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/internal/store"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load default genres, a test user and sample books",
	Long: `Loads the default genres, the test account admin@admin.com.br and a few
sample books. Running it again leaves existing rows alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel)

		sqlDB, err := db.Open(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer sqlDB.Close()
		gormDB, err := db.OpenGorm(sqlDB)
		if err != nil {
			return err
		}

		users := services.NewUserService(store.NewUserRepository(sqlDB), auth.NewPasswordHasher(cfg.Password.Cost), nil)
		genres := services.NewGenreService(store.NewGenreRepository(gormDB), nil)
		books := services.NewBookService(store.NewBookRepository(gormDB), nil, nil, log)

		_, err = seed.Run(cmd.Context(), genres, users, books, log)
		return err
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
