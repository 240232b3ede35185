package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/saiakshat556/farm-data-bridge/internal/app"
	"github.com/saiakshat556/farm-data-bridge/internal/database"
	"github.com/saiakshat556/farm-data-bridge/internal/models"
)

func bootstrapConfig(t *testing.T) *app.Config {
	t.Helper()
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "bootstrap.sqlite")
	cfg.Auth.JWT.Secret = "bootstrap-secret"
	cfg.Auth.PasswordCost = bcrypt.MinCost
	return cfg
}

func TestBootstrapRuntimeWiresStack(t *testing.T) {
	cfg := bootstrapConfig(t)
	cfg.Features.SeedDemoData = true

	stack, err := bootstrapRuntime(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Hub)
	require.NotNil(t, stack.Cleaner)
	require.NotNil(t, stack.Services)

	var users int64
	require.NoError(t, stack.DB.Model(&models.User{}).Count(&users).Error)
	require.EqualValues(t, len(database.DemoUsers), users)

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBootstrapRuntimeHonoursFeatureToggles(t *testing.T) {
	cfg := bootstrapConfig(t)
	cfg.Features.Notifications.Enabled = false
	cfg.Maintenance.Enabled = false

	stack, err := bootstrapRuntime(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.Nil(t, stack.Hub)
	require.Nil(t, stack.Cleaner)

	var users int64
	require.NoError(t, stack.DB.Model(&models.User{}).Count(&users).Error)
	require.Zero(t, users)
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := bootstrapConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(cfg, zap.NewNop())
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9321\n"), 0o600))

	cfg, err := loadApplicationConfig(file)
	require.NoError(t, err)
	require.Equal(t, 9321, cfg.Server.Port)

	cfg, err = loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9321, cfg.Server.Port)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.ErrorContains(t, err, "does not exist")
}

func TestEnsureSecretsPresent(t *testing.T) {
	require.Error(t, ensureSecretsPresent(nil))

	cfg := &app.Config{}
	cfg.Auth.JWT.Secret = "   "
	require.ErrorContains(t, ensureSecretsPresent(cfg), "auth.jwt.secret")

	cfg.Auth.JWT.Secret = " secret "
	require.NoError(t, ensureSecretsPresent(cfg))
	require.Equal(t, "secret", cfg.Auth.JWT.Secret)
}
