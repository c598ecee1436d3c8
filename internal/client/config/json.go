package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/wesigned/wesigned/internal/flagx"
	"github.com/wesigned/wesigned/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL          string         `json:"api_base_url"`
	AssetBaseURL        string         `json:"asset_base_url"`
	DatabasePath        string         `json:"database_path"`
	CachePath           string         `json:"cache_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	WarmAssets          []string       `json:"warm_assets"`
	OfflineAsset        string         `json:"offline_asset"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config flags via
// flagx.JsonConfigFlags(); when absent, no JSON is loaded. Only fields
// present in the file override the existing values. Panics on read or
// unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.AssetBaseURL != "" {
		cfg.AssetBaseURL = jc.AssetBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if len(jc.WarmAssets) > 0 {
		cfg.WarmAssets = jc.WarmAssets
	}
	if jc.OfflineAsset != "" {
		cfg.OfflineAsset = jc.OfflineAsset
	}
}
