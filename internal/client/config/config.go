package config

import "time"

// Config holds runtime settings for the attendance client and its
// background agent.
//
// Fields:
//   - APIBaseURL: base URL of the attendance server API (".../api").
//   - AssetBaseURL: origin the warm-asset paths are resolved against.
//   - DatabasePath: SQLite file backing the persistent local store.
//   - CachePath: SQLite file backing the best-effort response cache.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SyncInterval: how often the agent retries a drain while online.
//   - WarmAssets: paths pre-cached when the agent installs.
//   - OfflineAsset: path served as the fallback when both the network and
//     the cache miss.
type Config struct {
	APIBaseURL          string
	AssetBaseURL        string
	DatabasePath        string
	CachePath           string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	WarmAssets          []string
	OfflineAsset        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5000/api"
	c.AssetBaseURL = "http://localhost:5173"
	c.DatabasePath = "wesigned.db"
	c.CachePath = "wesigned-cache.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = time.Minute
	c.WarmAssets = []string{
		"/",
		"/index.html",
		"/offline.html",
		"/images/logo.png",
		"/images/offline.png",
		"/images/monster.png",
	}
	c.OfflineAsset = "/offline.html"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
