package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Catalog: CatalogConfig{
			Providers: []ProviderConfig{
				{Type: "deezer", DisplayName: "Deezer"},
			},
		},
		Store: StoreConfig{
			Backend: "rest",
			UserID:  "user-1",
			REST: RESTStoreConfig{
				BaseURL: "https://example.supabase.co",
				APIKey:  "test-api-key",
			},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "no catalog providers",
			mutate: func(c *Config) {
				c.Catalog.Providers = nil
			},
			wantErr: true,
			errMsg:  "Providers",
		},
		{
			name: "missing user id",
			mutate: func(c *Config) {
				c.Store.UserID = ""
			},
			wantErr: true,
			errMsg:  "UserID",
		},
		{
			name: "unknown store backend",
			mutate: func(c *Config) {
				c.Store.Backend = "dynamodb"
			},
			wantErr: true,
			errMsg:  "Backend",
		},
		{
			name: "rest backend without base url",
			mutate: func(c *Config) {
				c.Store.REST.BaseURL = ""
			},
			wantErr: true,
			errMsg:  "base_url",
		},
		{
			name: "postgres backend without dsn",
			mutate: func(c *Config) {
				c.Store.Backend = "postgres"
			},
			wantErr: true,
			errMsg:  "dsn",
		},
		{
			name: "volume out of range",
			mutate: func(c *Config) {
				c.Playback.InitialVolume = 1.5
			},
			wantErr: true,
			errMsg:  "InitialVolume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Playback.InitialVolume = 1.0
			cfg.Playback.RecentLimit = 20
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
catalog:
  providers:
    - type: deezer
store:
  backend: rest
  user_id: user-1
  rest:
    base_url: https://example.supabase.co
    api_key: test-api-key
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1.0, cfg.Playback.InitialVolume)
	assert.Equal(t, 20, cfg.Playback.RecentLimit)
	assert.Equal(t, "playlist-covers", cfg.Store.REST.CoverBucket)
	assert.Equal(t, "https://playd.app", cfg.Share.BaseURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	content := `
catalog:
  providers:
    - type: deezer
    - type: spotify
store:
  backend: rest
  user_id: from-file
  rest:
    base_url: https://example.supabase.co
    api_key: from-file
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("PLAYD_USER_ID", "from-env")
	t.Setenv("STORE_API_KEY", "env-key")
	t.Setenv("SPOTIFY_CLIENT_ID", "env-client-id")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Store.UserID)
	assert.Equal(t, "env-key", cfg.Store.REST.APIKey)
	assert.Equal(t, "env-client-id", cfg.Catalog.Providers[1].Settings["client_id"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_SQLDriver(t *testing.T) {
	tests := []struct {
		name     string
		store    StoreConfig
		expected string
	}{
		{
			name:     "postgres backend",
			store:    StoreConfig{Backend: "postgres"},
			expected: "postgres",
		},
		{
			name:     "sqlite backend",
			store:    StoreConfig{Backend: "sqlite"},
			expected: "sqlite3",
		},
		{
			name:     "explicit driver wins",
			store:    StoreConfig{Backend: "sqlite", SQL: SQLStoreConfig{Driver: "custom"}},
			expected: "custom",
		},
		{
			name:     "rest backend has no driver",
			store:    StoreConfig{Backend: "rest"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Store: tt.store}
			assert.Equal(t, tt.expected, cfg.SQLDriver())
		})
	}
}
