package gateway

import (
	"fmt"

	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// NewBackend 依設定建立後端
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Gateway.Driver {
	case config.DriverPostgres:
		backend, err := NewPostgresBackend(cfg)
		if err != nil {
			return nil, err
		}
		common.LogInfo("使用 Postgres 直連後端")
		return backend, nil
	case config.DriverREST, "":
		common.LogInfo("使用 REST 後端",
			zap.String("url", cfg.Supabase.URL),
			zap.String("anon_key", common.MaskSecret(cfg.Supabase.AnonKey)),
		)
		return NewRESTBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Gateway.Driver)
	}
}
