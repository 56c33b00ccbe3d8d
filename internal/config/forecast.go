package config

import (
	"fmt"

	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Viper keys read by LoadForecastConfig.
const (
	KeyDatabasePath    = "database.path"
	KeyBucket          = "forecast.bucket"
	KeySensitivity     = "forecast.sensitivity"
	KeyDays            = "forecast.days"
	KeyStartingBalance = "forecast.starting_balance"
	KeyThreshold       = "forecast.threshold"
	KeyMinOccurrences  = "detect.min_occurrences"
)

// ForecastConfig holds the settings of a projection run.
type ForecastConfig struct {
	DatabasePath    string `validate:"required"`
	Bucket          string `validate:"required,oneof=1d 3d 1w 2w 1m"`
	Sensitivity     string `validate:"required,oneof=strict normal loose"`
	StartingBalance string `validate:"omitempty,numeric"`
	Threshold       string `validate:"omitempty,numeric"`
	Days            int    `validate:"min=1,max=3650"`
	MinOccurrences  int    `validate:"min=2,max=100"`
}

var validate = validator.New()

// SetDefaults registers the default values of every forecast key.
func SetDefaults() {
	viper.SetDefault(KeyDatabasePath, DefaultDatabasePath())
	viper.SetDefault(KeyBucket, string(model.BucketWeek))
	viper.SetDefault(KeySensitivity, string(model.SensitivityNormal))
	viper.SetDefault(KeyDays, 90)
	viper.SetDefault(KeyMinOccurrences, 3)
}

// LoadForecastConfig reads forecast settings from viper and validates them.
func LoadForecastConfig() (*ForecastConfig, error) {
	cfg := &ForecastConfig{
		DatabasePath:    ExpandPath(viper.GetString(KeyDatabasePath)),
		Bucket:          viper.GetString(KeyBucket),
		Sensitivity:     viper.GetString(KeySensitivity),
		StartingBalance: viper.GetString(KeyStartingBalance),
		Threshold:       viper.GetString(KeyThreshold),
		Days:            viper.GetInt(KeyDays),
		MinOccurrences:  viper.GetInt(KeyMinOccurrences),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c *ForecastConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// BucketWidth returns the configured bucket width.
func (c *ForecastConfig) BucketWidth() model.BucketWidth {
	return model.BucketWidth(c.Bucket)
}

// SensitivityLevel returns the configured detector sensitivity.
func (c *ForecastConfig) SensitivityLevel() model.Sensitivity {
	return model.Sensitivity(c.Sensitivity)
}

// StartingBalanceAmount returns the configured starting balance, zero when unset.
func (c *ForecastConfig) StartingBalanceAmount() decimal.Decimal {
	if c.StartingBalance == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(c.StartingBalance)
}

// ThresholdAmount returns the configured warning threshold, invalid when unset.
func (c *ForecastConfig) ThresholdAmount() decimal.NullDecimal {
	if c.Threshold == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(c.Threshold))
}
