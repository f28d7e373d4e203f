package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/clinic-ui-verify/pkg/verify"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad(t *testing.T) {
	t.Run("defaults equal the fixed verifier literals", func(t *testing.T) {
		chdir(t, t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, verify.DefaultConfig(), cfg.Verify)
		assert.True(t, cfg.Browser.Headless)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
		assert.Equal(t, "clinic-verification", cfg.Temporal.TaskQueue)
		assert.Empty(t, cfg.Database.DSN)
		assert.Equal(t, "8080", cfg.API.Port)
	})

	t.Run("loads values from environment variables with CLINICV prefix", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("CLINICV_VERIFY_BASE_URL", "http://staging.clinic:3000")
		t.Setenv("CLINICV_VERIFY_DELETE_TITLE", "Delete batch DELETE_TEST_123")
		t.Setenv("CLINICV_VERIFY_TIMEOUT", "5s")
		t.Setenv("CLINICV_BROWSER_HEADLESS", "false")
		t.Setenv("CLINICV_LOG_FORMAT", "json")
		t.Setenv("CLINICV_DATABASE_DSN", "root:pw@tcp(db:3306)/verification")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://staging.clinic:3000", cfg.Verify.BaseURL)
		assert.Equal(t, "Delete batch DELETE_TEST_123", cfg.Verify.DeleteTitle)
		assert.Equal(t, 5*time.Second, cfg.Verify.Timeout)
		assert.Equal(t, 60*time.Second, cfg.Verify.NavigationTimeout)
		assert.False(t, cfg.Browser.Headless)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "root:pw@tcp(db:3306)/verification", cfg.Database.DSN)
	})

	t.Run("reads clinicv.yaml from the working directory", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		yaml := "verify:\n  base_url: http://file.clinic\n  batch:\n    number: B-42\ntemporal:\n  task_queue: nightly\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "clinicv.yaml"), []byte(yaml), 0644))

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://file.clinic", cfg.Verify.BaseURL)
		assert.Equal(t, "B-42", cfg.Verify.Batch.Number)
		assert.Equal(t, "2025-12-31", cfg.Verify.Batch.ExpiryDate)
		assert.Equal(t, "nightly", cfg.Temporal.TaskQueue)
	})

	t.Run("rejects a non-positive timeout", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("CLINICV_VERIFY_TIMEOUT", "0s")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  port: \"9090\"\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.API.Port)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
