/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"

	"github.com/mautops/claims-gin/internal/config"
	"github.com/mautops/claims-gin/internal/database"
	"github.com/mautops/claims-gin/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations to create or update database schema.
This command will:
- Create the state history, audit log and notification event tables
- Update table schemas if needed
- Create indexes for optimal query performance

Claims themselves are kept in memory and are not migrated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err := logging.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// 2. 连接数据库
		logger.WithFields(logrus.Fields{
			"driver": cfg.Database.Driver,
			"path":   cfg.Database.Path,
			"host":   cfg.Database.Host,
			"dbname": cfg.Database.DBName,
		}).Info("connecting to database")
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer database.Close(db)

		// 3. 执行迁移
		logger.Info("running database migrations")
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("database migrations completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.claims-gin)")
}
