package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/sheets"
	"github.com/spf13/viper"
)

// SheetsTokenFile returns where 'spice auth sheets' stores the OAuth2 token.
func SheetsTokenFile() string {
	return filepath.Join(Dir(), "sheets-token.json")
}

// LoadSheetsConfig loads Google Sheets configuration. Each setting comes from
// viper (config file or SPICE_ env vars) first, then the GOOGLE_SHEETS_*
// environment variable, then the default.
func LoadSheetsConfig() (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	set := func(target *string, key, env string) {
		if v := viper.GetString(key); v != "" {
			*target = v
			return
		}
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}

	set(&config.ServiceAccountPath, "sheets.service_account_path", "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	set(&config.ClientID, "sheets.client_id", "GOOGLE_SHEETS_CLIENT_ID")
	set(&config.ClientSecret, "sheets.client_secret", "GOOGLE_SHEETS_CLIENT_SECRET")
	set(&config.RefreshToken, "sheets.refresh_token", "GOOGLE_SHEETS_REFRESH_TOKEN")
	set(&config.SpreadsheetID, "sheets.spreadsheet_id", "GOOGLE_SHEETS_SPREADSHEET_ID")
	set(&config.SpreadsheetName, "sheets.spreadsheet_name", "GOOGLE_SHEETS_SPREADSHEET_NAME")
	set(&config.SheetName, "sheets.sheet_name", "GOOGLE_SHEETS_SHEET_NAME")
	set(&config.TimeZone, "sheets.time_zone", "GOOGLE_SHEETS_TIME_ZONE")

	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)

	if config.RefreshToken == "" && config.ServiceAccountPath == "" {
		if token, err := sheets.LoadToken(SheetsTokenFile()); err == nil {
			config.RefreshToken = token.RefreshToken
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMissingConfig, err)
	}

	return &config, nil
}
