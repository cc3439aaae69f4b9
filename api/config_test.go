package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 9, cfg.PageSize)
	assert.Equal(t, 5*time.Second, cfg.ResetDelay)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.Demo())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DEBUG", "true")
	t.Setenv("PAGE_SIZE", "20")
	t.Setenv("RESET_DELAY", "250ms")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.False(t, cfg.Demo())
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.ResetDelay)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SMTP_HOST=smtp.example.com\nSMTP_PORT=2525\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SMTP_HOST")
		os.Unsetenv("SMTP_PORT")
	})

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("PAGE_SIZE", "many")
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
