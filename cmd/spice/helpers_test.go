package main

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/config"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	fallback := civil.Date{Year: 2024, Month: 2, Day: 29}

	tests := []struct {
		name    string
		input   string
		want    civil.Date
		wantErr bool
	}{
		{name: "empty uses fallback", input: "", want: fallback},
		{name: "iso date", input: "2024-03-15", want: civil.Date{Year: 2024, Month: 3, Day: 15}},
		{name: "surrounding space", input: " 2024-03-15 ", want: civil.Date{Year: 2024, Month: 3, Day: 15}},
		{name: "today", input: "Today", want: today()},
		{name: "wrong layout", input: "03/15/2024", wantErr: true},
		{name: "impossible date", input: "2023-02-29", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.input, fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOptionalDate(t *testing.T) {
	got, err := parseOptionalDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseOptionalDate("2024-01-31")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 31}, *got)

	_, err = parseOptionalDate("soon")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "1850", want: "1850"},
		{input: "-1,850.25", want: "-1850.25"},
		{input: "$2,450.00", want: "2450"},
		{input: "-$40", want: "-40"},
		{input: "12 345.6", want: "12345.6"},
		{input: "twelve", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = parseID("#7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	config.SetDefaults()
	viper.Set(config.KeyDays, 120) // as if read from the config file

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("bucket", "", "")
	cmd.Flags().Int("days", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--bucket", "1d"}))

	applyFlagOverrides(cmd, map[string]string{
		"bucket": config.KeyBucket,
		"days":   config.KeyDays,
	})

	assert.Equal(t, "1d", viper.GetString(config.KeyBucket))
	assert.Equal(t, 120, viper.GetInt(config.KeyDays), "unset flags keep the configured value")
}
