// turnosctl 运维命令行：迁移、回填、签发服务 Token、手动处理通知队列
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RyouhaWH/turnos-app-sub002/config"
	"github.com/RyouhaWH/turnos-app-sub002/internal/repository"
	"github.com/RyouhaWH/turnos-app-sub002/internal/service"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/database"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/jwt"
	applogger "github.com/RyouhaWH/turnos-app-sub002/pkg/logger"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/whatsapp"
)

var (
	configPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "turnosctl",
	Short:         "Herramientas de operación del servicio de turnos",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica las migraciones pendientes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return database.RunMigrations(sqlDB, logger)
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill-dates",
	Short: "Completa shift_date en registros históricos del log de cambios",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		svc := service.NewChangeLogService(repository.NewRepository(db), logger)
		resp, err := svc.Backfill(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registros actualizados: %d\n", resp.Updated)
		return nil
	},
}

var (
	tokenUser string
	tokenName string
	tokenTTL  time.Duration
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Emite un token de acceso para una cuenta de servicio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if tokenUser == "" {
			return fmt.Errorf("--user es obligatorio")
		}
		token, err := jwt.NewManager(&cfg.Auth).Issue(tokenUser, tokenName, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var drainCmd = &cobra.Command{
	Use:   "notify-drain",
	Short: "Procesa una ronda de notificaciones pendientes y termina",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, db, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		sender := whatsapp.NewClient(cfg.Notification.TransportURL, cfg.Notification.Timeout,
			whatsapp.WithRateLimit(cfg.Notification.RatePerSecond))
		svc := service.NewNotificationService(&cfg.Notification, cfg.Roster.PlaceholderLabel,
			repository.NewRepository(db), sender, logger)

		n, err := svc.ProcessDue(ctx)
		if err != nil {
			return err
		}
		logger.Info("通知队列处理完成", zap.Int("processed", n))
		fmt.Fprintf(cmd.OutOrStdout(), "notificaciones procesadas: %d\n", n)
		return nil
	},
}

// bootstrap 加载配置、日志与数据库
func bootstrap() (*config.Config, *gorm.DB, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log, "turnosctl")
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, logger, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("TURNOS_CONFIG"), "ruta del archivo de configuración")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "tiempo máximo de la operación")

	issueTokenCmd.Flags().StringVar(&tokenUser, "user", "", "UUID del operador (se registra como changed_by)")
	issueTokenCmd.Flags().StringVar(&tokenName, "name", "", "nombre para los logs")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "vigencia del token (por defecto auth.access_token_ttl)")

	rootCmd.AddCommand(migrateCmd, backfillCmd, issueTokenCmd, drainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
