package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"meal-planner/internal/core/gateway"
	"meal-planner/internal/core/meal"
	"meal-planner/internal/pkg/common"

	"github.com/spf13/cobra"
)

var (
	mealsTags    []string
	mealsTimeout time.Duration
)

// mealsCmd 非互動指令：後端未設定時直接失敗，不使用示範資料
var mealsCmd = &cobra.Command{
	Use:   "meals",
	Short: "List meals from the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer common.Sync()

		if err := cfg.RequireBackend(); err != nil {
			return common.ErrBackendNotReady.Wrap(err)
		}

		gw, err := newGateway(cfg)
		if err != nil {
			return err
		}
		defer gw.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), mealsTimeout)
		defer cancel()

		meals, err := fetchMeals(ctx, gw, mealsTags)
		if err != nil {
			return err
		}
		return writeMeals(os.Stdout, meals)
	},
}

// fetchMeals 沒有標籤時 FilterMeals 等同 ListMeals，只會呼叫後端一次
func fetchMeals(ctx context.Context, gw *gateway.Gateway, tags []string) ([]meal.Meal, error) {
	res := gw.FilterMeals(ctx, meal.Filters{DietaryRestrictions: tags})
	if res.IsFailed() {
		return nil, fmt.Errorf("failed to list meals: %w", res.Err)
	}
	if res.IsEmpty() {
		return []meal.Meal{}, nil
	}
	return res.Value, nil
}

func writeMeals(w io.Writer, meals []meal.Meal) error {
	if meals == nil {
		meals = []meal.Meal{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meals)
}

// configCmd 顯示目前生效的設定，金鑰遮罩
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer common.Sync()

		fmt.Printf("Gateway driver:  %s\n", cfg.Gateway.Driver)
		fmt.Printf("Backend URL:     %s\n", cfg.Supabase.URL)
		fmt.Printf("Anon key:        %s\n", common.MaskSecret(cfg.Supabase.AnonKey))
		fmt.Printf("JWT secret set:  %t\n", cfg.Supabase.JWTSecret != "")
		fmt.Printf("Postgres DSN:    %s\n", maskDSN(cfg.Postgres.DSN))
		fmt.Printf("Demo only:       %t\n", cfg.DemoOnly())
		fmt.Printf("Session backend: %s (ttl %s, max %d)\n",
			cfg.Session.Backend, cfg.Session.TTL, cfg.Session.MaxSessions)
		fmt.Printf("Listen port:     %d\n", cfg.Server.Port)
		return nil
	},
}

func init() {
	mealsCmd.Flags().StringSliceVar(&mealsTags, "tag", nil, "dietary tag to filter by (repeatable)")
	mealsCmd.Flags().DurationVar(&mealsTimeout, "timeout", 15*time.Second, "request timeout")
}

// maskDSN 遮罩連線字串中的密碼
func maskDSN(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return common.MaskSecret(dsn)
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
