package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from .env files into the process environment.
// ENV_FILE names a single file that must exist. Otherwise ./.env and the .env
// in the config directory are read when present. Variables already set in the
// environment are never overridden.
func LoadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(ExpandPath(envFile)); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, path := range []string{".env", filepath.Join(Dir(), ".env")} {
		if err := godotenv.Load(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
		slog.Debug("Loaded environment file", "path", path)
	}

	return nil
}
