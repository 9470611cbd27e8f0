package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffnum/internal/config"
	"staffnum/internal/domain/employeeid"
	"staffnum/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetDefault(logger.Nop())
	os.Exit(m.Run())
}

func TestNew_FileDrivers(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverFile
	cfg.Storage.File.Path = filepath.Join(dir, "counters.json")
	cfg.Directory.File = filepath.Join(dir, "directory.yaml")

	a, err := New(context.Background(), &cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Directory)
	assert.Empty(t, a.Checks)
	assert.Empty(t, a.Stats)

	res, err := a.Service.GenerateFor(context.Background(), employeeid.Request{})
	require.NoError(t, err)
	assert.Equal(t, "EMP-0001", res.EmployeeNumber)

	_, err = os.Stat(cfg.Storage.File.Path)
	assert.NoError(t, err)

	jwt, err := a.JWTService()
	require.NoError(t, err)
	assert.Nil(t, jwt)
}

func TestNew_InvalidSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Directory.File = filepath.Join(t.TempDir(), "directory.yaml")
	cfg.EmployeeID.Pattern = "{NOPE}-{###}"

	_, err := New(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestJWTService(t *testing.T) {
	cfg := config.Default()
	cfg.Directory.File = filepath.Join(t.TempDir(), "directory.yaml")
	cfg.Auth.JWTSecret = "secret"

	a, err := New(context.Background(), &cfg)
	require.NoError(t, err)
	defer a.Close()

	jwt, err := a.JWTService()
	require.NoError(t, err)
	require.NotNil(t, jwt)

	token, _, err := jwt.GenerateAccessToken("ops", []string{"hr_admin"})
	require.NoError(t, err)
	user, err := jwt.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", user.UserID)
}
