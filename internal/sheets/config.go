// Package sheets exports cash-flow projections to Google Sheets.
package sheets

import (
	"fmt"
	"strings"
	"time"
)

// Defaults for a newly created spreadsheet.
const (
	DefaultSpreadsheetName = "Cash Flow Forecast"
	DefaultSheetName       = "Forecast"
)

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	SheetName          string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  DefaultSpreadsheetName,
		SheetName:        DefaultSheetName,
		EnableFormatting: true,
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}
	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}
	if c.SheetName == "" {
		return fmt.Errorf("sheet name is required")
	}
	if strings.ContainsAny(c.SheetName, "'![]") {
		return fmt.Errorf("sheet name %q cannot contain quotes, brackets or '!'", c.SheetName)
	}
	// An empty zone leaves new spreadsheets in the account's default zone.
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}
