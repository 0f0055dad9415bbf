/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/api"
	"github.com/mautops/claims-gin/internal/config"
	"github.com/mautops/claims-gin/internal/container"
	"github.com/mautops/claims-gin/internal/logging"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Claims Gin API server.
The server will listen on the configured host and port,
and provide REST, WebSocket and SSE interfaces for claim submission and review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		applyServerFlags(cmd, cfg)

		logger, err := logging.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if config.IsProduction(cfg) {
			gin.SetMode(gin.ReleaseMode)
		}

		// 2. 配置热更新,目前只作用于日志级别
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath, logger)
			watcher.OnConfigChange(config.LogLevelReloader(logger))
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("config watcher not started")
			} else {
				defer watcher.Stop()
			}
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer func() {
			if err := ctr.Close(); err != nil {
				logger.WithError(err).Warn("container close failed")
			}
		}()

		// 4. 设置路由
		router := ctr.Router()
		router.NoRoute(func(c *gin.Context) {
			api.Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
		})

		// 5. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
		case <-quit:
		}

		logger.Info("shutting down server")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("server exited")
		return nil
	},
}

// applyServerFlags 命令行参数覆盖配置
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("seed-demo") {
		cfg.Claims.SeedDemo, _ = cmd.Flags().GetBool("seed-demo")
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
	serverCmd.Flags().Bool("seed-demo", false, "Insert demo claims on startup")
}

// LoadConfig 加载配置
func LoadConfig(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}
