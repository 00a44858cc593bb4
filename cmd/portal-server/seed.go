package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/database"
	"github.com/mikepea/promptportal/pkg/portal/logger"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/querycache"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile lists the categories and tools to create
type SeedFile struct {
	Categories []string `yaml:"categories"`
	Tools      []struct {
		Name string          `yaml:"name"`
		Type models.ToolType `yaml:"type"`
	} `yaml:"tools"`
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create categories and tools from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if file == "" {
				file = cfg.SeedFile
			}
			if err := migrate(cfg); err != nil {
				return err
			}
			return seed(cmd.Context(), file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed file path (defaults to PORTAL_SEED_FILE)")
	return cmd
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sf, nil
}

// seed creates every entry through the catalog as the first admin.
// Entries that already exist are skipped.
func seed(ctx context.Context, path string) error {
	sf, err := loadSeedFile(path)
	if err != nil {
		return err
	}

	db := database.GetDB()
	var adminUser models.User
	if err := db.Where("role = ?", models.RoleAdmin).Order("id").First(&adminUser).Error; err != nil {
		return fmt.Errorf("find admin user: %w", err)
	}
	sess := catalog.Session{UserID: adminUser.ID, Role: adminUser.Role}
	client := catalog.NewClient(store.NewGormStore(db), querycache.New(), logger.Log)

	created := 0
	for _, name := range sf.Categories {
		if _, err := client.CreateCategory(ctx, sess, name); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return fmt.Errorf("category %q: %w", name, err)
		}
		created++
	}
	for _, tool := range sf.Tools {
		if _, err := client.CreateTool(ctx, sess, tool.Name, tool.Type); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return fmt.Errorf("tool %q: %w", tool.Name, err)
		}
		created++
	}

	logger.Log.Info("seed complete", zap.String("file", path), zap.Int("created", created))
	return nil
}
