// Package sheets exports prediction history to Google Sheets.
package sheets

import (
	"fmt"
	"time"
	_ "time/tzdata" // zones resolve on hosts without a tz database

	"github.com/khulafarming/yieldcast/internal/common"
)

// AuthMethod names how the writer authenticates against the Sheets API.
type AuthMethod string

// Supported authentication methods.
const (
	AuthNone           AuthMethod = ""
	AuthOAuth2         AuthMethod = "oauth2"
	AuthServiceAccount AuthMethod = "service_account"
)

// Config holds the configuration for the Google Sheets writer. Exactly one
// of the OAuth2 triple or ServiceAccountPath must be set.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	// TimeZone is an IANA zone used both for the spreadsheet and for the
	// dates written into it.
	TimeZone         string
	BatchSize        int
	RetryAttempts    int
	RetryDelay       time.Duration
	EnableFormatting bool
}

// DefaultConfig returns the export settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  "Yield Forecasts",
		TimeZone:         "Africa/Johannesburg",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// Auth reports which credentials are present. Partial OAuth2 credentials
// count as none.
func (c *Config) Auth() AuthMethod {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	switch {
	case hasOAuth && c.ServiceAccountPath != "":
		return AuthNone
	case hasOAuth:
		return AuthOAuth2
	case c.ServiceAccountPath != "":
		return AuthServiceAccount
	default:
		return AuthNone
	}
}

// Location resolves TimeZone. An empty zone means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", common.ErrInvalidConfig, c.TimeZone)
	}
	return loc, nil
}

// Validate checks the credentials and export settings.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	switch {
	case hasOAuth && c.ServiceAccountPath != "":
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	case c.Auth() == AuthNone:
		return fmt.Errorf("%w: no authentication method configured", common.ErrMissingConfig)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", common.ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}
	_, err := c.Location()
	return err
}
