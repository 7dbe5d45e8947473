package main

import (
	"fmt"
	"os"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "meal-planner",
	Short:        "Meal planning session service",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, mealsCmd, configCmd)
}

// loadConfig 載入設定並初始化 logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// newGateway 建立資料閘道；後端未設定時回傳 nil，工作階段一律以示範模式運作
func newGateway(cfg *config.Config) (*gateway.Gateway, error) {
	if cfg.DemoOnly() {
		return nil, nil
	}
	backend, err := gateway.NewBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	return gateway.New(backend), nil
}
