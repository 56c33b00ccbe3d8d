package config

import (
	"fmt"
	"os"

	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/plaid"
	"github.com/spf13/viper"
)

// LoadPlaidConfig loads Plaid credentials from viper, falling back to the
// PLAID_* environment variables. The environment defaults to sandbox.
func LoadPlaidConfig() (*plaid.Config, error) {
	lookup := func(key, env string) string {
		if v := viper.GetString(key); v != "" {
			return v
		}
		return os.Getenv(env)
	}

	cfg := &plaid.Config{
		ClientID:    lookup("plaid.client_id", "PLAID_CLIENT_ID"),
		Secret:      lookup("plaid.secret", "PLAID_SECRET"),
		Environment: lookup("plaid.environment", "PLAID_ENV"),
		AccessToken: lookup("plaid.access_token", "PLAID_ACCESS_TOKEN"),
	}
	if cfg.Environment == "" {
		cfg.Environment = "sandbox"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMissingConfig, err)
	}
	return cfg, nil
}
