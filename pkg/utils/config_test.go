package utils

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/pkg/models"
)

func TestLoadConfigLayers(t *testing.T) {
	t.Chdir(t.TempDir())

	file := filepath.Join(t.TempDir(), "estatehub.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http_addr: ":9999"
auth:
  jwt_issuer: from-file
assets:
  max_edge: 640
`), 0o644))

	t.Setenv("ESTATEHUB_CONFIG", file)
	t.Setenv("ESTATEHUB_HTTP_ADDR", ":7777")
	t.Setenv("ESTATEHUB_IMAGE_QUALITY", "0.5")
	t.Setenv("ESTATEHUB_JWT_TTL_HOURS", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.HTTPAddr, "env beats file")
	assert.Equal(t, "from-file", cfg.Auth.JWTIssuer)
	assert.Equal(t, 640, cfg.Assets.MaxEdge)
	assert.Equal(t, 0.5, cfg.Assets.Quality)
	assert.Equal(t, 2*time.Hour, cfg.Auth.JWTDuration)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, ":7070", cfg.SyncAddr, "defaults survive")
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Chdir(t.TempDir())

	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("http_addr: [unclosed"), 0o644))
	t.Setenv("ESTATEHUB_CONFIG", file)

	_, err := LoadConfig()
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"remote without endpoint", func(c *Config) {
			c.Backend = BackendRemote
			c.Mongo.URI = "mongodb://localhost"
		}, false},
		{"remote without mongo", func(c *Config) {
			c.Backend = BackendRemote
			c.Assets.UploadEndpoint = "https://script.example/exec"
		}, false},
		{"remote complete", func(c *Config) {
			c.Backend = BackendRemote
			c.Mongo.URI = "mongodb://localhost"
			c.Assets.UploadEndpoint = "https://script.example/exec"
		}, true},
		{"unknown backend", func(c *Config) { c.Backend = "s3" }, false},
		{"empty password", func(c *Config) { c.Auth.AdminPassword = "" }, false},
		{"zero edge", func(c *Config) { c.Assets.MaxEdge = 0 }, false},
		{"quality above one", func(c *Config) { c.Assets.Quality = 1.5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrConfiguration)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("x: %w", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", models.ErrPermission), http.StatusForbidden},
		{fmt.Errorf("x: %w", models.ErrTransient), http.StatusBadGateway},
		{fmt.Errorf("x: %w", models.ErrConfiguration), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
