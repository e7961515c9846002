package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)
	require.Equal(t, "https://api.pushover.net", cfg.API.BaseURL)
	require.Equal(t, 15*time.Second, cfg.API.RequestTimeout)
	require.False(t, cfg.API.Echo)
	require.Equal(t, ":8091", cfg.HTTP.Addr)
	require.Empty(t, cfg.Storage.Path)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushover.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  app_token: file-app
  user_token: file-user
  request_timeout: 3s
storage:
  path: /tmp/history.db
`), 0o600))
	t.Setenv("PUSHOVER_API_USER_TOKEN", "env-user")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("app-token", "", "")
	flags.String("user-token", "", "")
	flags.BoolP("echo", "e", false, "")
	require.NoError(t, flags.Parse([]string{"--app-token", "flag-app", "-e"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, "flag-app", cfg.API.AppToken)
	require.Equal(t, "env-user", cfg.API.UserToken)
	require.True(t, cfg.API.Echo)
	require.Equal(t, 3*time.Second, cfg.API.RequestTimeout)
	require.Equal(t, "/tmp/history.db", cfg.Storage.Path)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o600))

	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestCheckRelayAuth(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)
	require.ErrorIs(t, cfg.CheckRelayAuth(), ErrDefaultPassword)

	cfg.Auth.Password = "  "
	require.ErrorIs(t, cfg.CheckRelayAuth(), ErrDefaultPassword)

	cfg.Auth.Password = "s3cret-relay"
	require.NoError(t, cfg.CheckRelayAuth())

	cfg.Auth.Password = DefaultPassword
	cfg.Auth.Enabled = false
	require.NoError(t, cfg.CheckRelayAuth())
}
