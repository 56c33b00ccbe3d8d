package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/simplefin"
	"github.com/spf13/viper"
)

// SimpleFINStateFile returns where a claimed SimpleFIN access URL is cached.
func SimpleFINStateFile() string {
	return filepath.Join(Dir(), "simplefin_auth.json")
}

// LoadSimpleFINConfig loads SimpleFIN credentials from viper, falling back to
// SIMPLEFIN_TOKEN and SIMPLEFIN_ACCESS_URL. One of them must be set unless an
// access URL was claimed before.
func LoadSimpleFINConfig() (*simplefin.Config, error) {
	lookup := func(key, env string) string {
		if v := viper.GetString(key); v != "" {
			return v
		}
		return os.Getenv(env)
	}

	cfg := &simplefin.Config{
		Token:     lookup("simplefin.token", "SIMPLEFIN_TOKEN"),
		AccessURL: lookup("simplefin.access_url", "SIMPLEFIN_ACCESS_URL"),
		StateFile: SimpleFINStateFile(),
	}

	if cfg.Token == "" && cfg.AccessURL == "" {
		if _, err := os.Stat(cfg.StateFile); err != nil {
			return nil, fmt.Errorf("%w: set simplefin.token to a SimpleFIN setup token", common.ErrMissingConfig)
		}
	}
	return cfg, nil
}
