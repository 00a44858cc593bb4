package main

import (
	"fmt"
	"os"

	"github.com/mikepea/promptportal/pkg/portal/auth"
	"github.com/mikepea/promptportal/pkg/portal/config"
	"github.com/mikepea/promptportal/pkg/portal/database"
	"github.com/mikepea/promptportal/pkg/portal/logger"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate swag init -g main.go -d ./,../../pkg/portal -o ../../api/swagger --outputTypes go

// @title Prompt Portal API
// @version 1.0
// @description Share, discover and collect AI prompts.

// @contact.name Prompt Portal
// @contact.url https://github.com/mikepea/promptportal

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

const (
	Version = "0.1.0"
	appName = "portal-server"
)

const (
	defaultAdminEmail    = "admin@promptportal.local"
	defaultAdminPassword = "changeme"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Prompt Portal API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return migrate(cfg)
		},
	})

	cmd.AddCommand(seedCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

// setup loads configuration and initializes logging and the database
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := database.Connect(cfg.DBDriver, cfg.DBDSN); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	auth.SetSecret(cfg.JWTSecret)
	return cfg, nil
}

func migrate(cfg *config.Config) error {
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Log.Info("database migrations completed", zap.String("driver", cfg.DBDriver))

	if err := ensureAdminExists(database.GetDB()); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	return nil
}

// ensureAdminExists creates a default admin user if no admin exists in the database
func ensureAdminExists(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := auth.HashPassword(defaultAdminPassword)
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        defaultAdminEmail,
		Name:         "Admin",
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	logger.Log.Warn("created default admin user, change its password",
		zap.String("email", defaultAdminEmail))
	return nil
}
