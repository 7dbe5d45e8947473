package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-planner/internal/api"
	"meal-planner/internal/core/session"
	"meal-planner/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer common.Sync()

		common.LogInfo("載入設定",
			zap.String("supabase_url", cfg.Supabase.URL),
			zap.String("supabase_anon_key", common.MaskSecret(cfg.Supabase.AnonKey)),
			zap.String("gateway_driver", cfg.Gateway.Driver),
			zap.String("session_backend", cfg.Session.Backend),
		)
		if cfg.DemoOnly() {
			common.LogWarn("後端未設定，所有工作階段以示範模式運作")
		}

		gw, err := newGateway(cfg)
		if err != nil {
			return err
		}
		if gw != nil {
			defer gw.Close()
		}

		// 初始化工作階段索引與管理器
		index, err := session.NewIndex(cfg)
		if err != nil {
			return fmt.Errorf("failed to create session index: %w", err)
		}
		manager := session.NewManager(cfg, gw, index)
		defer manager.Close()

		// 設置路由
		router, err := api.SetupRouter(cfg, manager, gw)
		if err != nil {
			common.LogError("Failed to setup router", zap.Error(err))
			return err
		}

		// 設置 HTTP 服務器
		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		// 啟動服務器
		serveErr := make(chan error, 1)
		go func() {
			common.LogInfo("啟動應用",
				zap.String("version", cfg.App.Version),
				zap.String("env", cfg.App.Env),
				zap.Int("port", cfg.Server.Port),
				zap.Bool("debug", cfg.App.Debug),
			)

			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serveErr <- err
			}
		}()

		// 等待中斷信號
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-serveErr:
			common.LogError("Failed to start server", zap.Error(err))
			return err
		case <-quit:
		}

		common.LogInfo("Shutting down server...")

		// 設置關閉超時
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			common.LogError("Server forced to shutdown", zap.Error(err))
			return err
		}

		common.LogInfo("Server exited")
		return nil
	},
}
