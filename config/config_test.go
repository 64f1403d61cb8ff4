package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
  mode: release
model:
  endpoint: http://model:8501
  request_timeout: 15s
  net:
    architecture: ResNet50
    output_stride: 32
session:
  idle_ttl: 5m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "http://model:8501", cfg.Model.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.Model.RequestTimeout)
	assert.Equal(t, "ResNet50", cfg.Model.Net.Architecture)
	assert.Equal(t, 32, cfg.Model.Net.OutputStride)
	assert.Equal(t, 2, cfg.Model.Net.QuantBytes)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, 40_000_000, cfg.Upload.MaxPixels)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, "@every 1m", cfg.Session.SweepSpec)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CUTOUT_MODEL_ENDPOINT", "http://env-model:1234")

	cfg, err := Load(writeConfig(t, "server:\n  mode: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://env-model:1234", cfg.Model.Endpoint)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "bad mode", content: "server:\n  mode: prod\n", wantMsg: "server.mode"},
		{name: "bad size", content: "upload:\n  max_size: 0\n", wantMsg: "upload.max_size"},
		{name: "bad pixels", content: "upload:\n  max_pixels: -1\n", wantMsg: "upload.max_pixels"},
		{name: "empty endpoint", content: "model:\n  endpoint: \"\"\n", wantMsg: "model.endpoint"},
		{name: "broken yaml", content: "server: [", wantMsg: "failed to read config file"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileEnvOverride(t *testing.T) {
	t.Setenv("CUTOUT_MODEL_ENDPOINT", "http://env-model:1234")
	t.Setenv("CUTOUT_SERVER_MODE", "release")
	t.Setenv("CUTOUT_SESSION_IDLE_TTL", "90s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env-model:1234", cfg.Model.Endpoint)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 90*time.Second, cfg.Session.IdleTTL)
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoad_MissingFileInvalidEnv(t *testing.T) {
	t.Setenv("CUTOUT_SERVER_MODE", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.mode")
}
