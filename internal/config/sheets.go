package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/khulafarming/yieldcast/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration. Values come from
// viper first (config file or YIELDCAST_SHEETS_* variables), then from the
// GOOGLE_SHEETS_* variables, then from defaults.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(firstNonEmpty(
		v.GetString("sheets.service_account_path"),
		os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")))
	config.ClientID = firstNonEmpty(
		v.GetString("sheets.client_id"),
		os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	config.ClientSecret = firstNonEmpty(
		v.GetString("sheets.client_secret"),
		os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
	config.RefreshToken = firstNonEmpty(
		v.GetString("sheets.refresh_token"),
		os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"))
	config.SpreadsheetID = firstNonEmpty(
		v.GetString("sheets.spreadsheet_id"),
		os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	config.SpreadsheetName = firstNonEmpty(
		os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME"),
		v.GetString("sheets.spreadsheet_name"),
		config.SpreadsheetName)

	if tz := v.GetString("sheets.timezone"); tz != "" {
		config.TimeZone = tz
	}
	if n := v.GetInt("sheets.batch_size"); n > 0 {
		config.BatchSize = n
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
