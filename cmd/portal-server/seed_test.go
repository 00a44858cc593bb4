package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikepea/promptportal/pkg/portal/database"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, database.Connect(database.DriverSQLite, ":memory:"))
	sqlDB, err := database.GetDB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(database.GetDB()))
	require.NoError(t, ensureAdminExists(database.GetDB()))
}

func writeSeedFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestEnsureAdminExistsIsIdempotent(t *testing.T) {
	setupTestDB(t)
	require.NoError(t, ensureAdminExists(database.GetDB()))

	var count int64
	database.GetDB().Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSeedCreatesAndSkipsExisting(t *testing.T) {
	setupTestDB(t)
	path := writeSeedFile(t, `
categories: [Portrait, Landscape]
tools:
  - name: Midjourney
    type: image
`)

	require.NoError(t, seed(t.Context(), path))
	require.NoError(t, seed(t.Context(), path))

	var categories []models.Category
	database.GetDB().Order("name").Find(&categories)
	require.Len(t, categories, 2)
	assert.Equal(t, "landscape", categories[0].Slug)

	var tools []models.Tool
	database.GetDB().Find(&tools)
	require.Len(t, tools, 1)
	assert.Equal(t, models.ToolTypeImage, tools[0].Type)
}

func TestSeedRejectsUnknownToolType(t *testing.T) {
	setupTestDB(t)
	path := writeSeedFile(t, `
tools:
  - name: Suno
    type: audio
`)

	assert.Error(t, seed(t.Context(), path))
}

func TestLoadSeedFileErrors(t *testing.T) {
	_, err := loadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadSeedFile(writeSeedFile(t, "categories: {not: [a list"))
	assert.Error(t, err)
}
