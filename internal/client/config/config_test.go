package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, "wesigned.db", cfg.DatabasePath)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Contains(t, cfg.WarmAssets, cfg.OfflineAsset)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name        string
		args        []string
		expectPanic bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "overrides api url, db path and interval",
			args: []string{"cmd", "-a", "http://10.0.0.1:9090/api", "-d", "alt.db", "-i", "10"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://10.0.0.1:9090/api", cfg.APIBaseURL)
				assert.Equal(t, "alt.db", cfg.DatabasePath)
				assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
			},
		},
		{
			name: "unknown flags do not disturb parsing",
			args: []string{"cmd", "-x", "1", "-a", "http://10.0.0.1:9090/api"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://10.0.0.1:9090/api", cfg.APIBaseURL)
			},
		},
		{
			name:        "incorrect check interval",
			args:        []string{"cmd", "-i", "abc"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
			os.Args = tt.args

			cfg := &Config{}
			cfg.LoadDefaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			tt.check(t, cfg)
		})
	}
}

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("overlays only fields present in the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"api_base_url": "http://10.0.0.1:9090/api",
			"sync_interval": "30s"
		}`), 0o600))
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "http://10.0.0.1:9090/api", cfg.APIBaseURL)
		assert.Equal(t, 30*time.Second, cfg.SyncInterval)
		// untouched fields keep their defaults
		assert.Equal(t, "wesigned.db", cfg.DatabasePath)
		assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("no config flag is a no-op", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	})

	t.Run("panics on unreadable file", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "missing.json")}

		cfg := &Config{}
		cfg.LoadDefaults()
		require.Panics(t, func() { parseJson(cfg) })
	})
}
