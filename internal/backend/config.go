package backend

import (
	"fmt"

	"ridesdash/internal/config"
	"ridesdash/internal/records/csvfile"
	"ridesdash/internal/records/google"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// CSV specific
	DataDir string
	Files   csvfile.Files

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	Google google.Config
}

// FromAppConfig converts the application config to backend config. typ
// overrides DATA_BACKEND when not empty.
func FromAppConfig(appConfig *config.Config, typ BackendType) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	if typ == "" {
		typ = BackendType(appConfig.DataBackend)
	}
	if !typ.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type: %s", typ)
	}

	return Config{
		Type: typ,

		DataDir: appConfig.DataDir,
		Files: csvfile.Files{
			Locations:  appConfig.LocationsFile,
			Categories: appConfig.CategoriesFile,
			Rides:      appConfig.RidesFile,
		},

		SQLiteDBPath: appConfig.SQLiteDBPath,

		Google: google.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			LocationsSheet:  appConfig.GoogleLocationsSheet,
			CategoriesSheet: appConfig.GoogleCategoriesSheet,
			RidesSheet:      appConfig.GoogleRidesSheet,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend:
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for csv backend")
		}
		if c.Files.Locations == "" || c.Files.Categories == "" || c.Files.Rides == "" {
			return fmt.Errorf("locations, categories and rides file names are required for csv backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Google.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.Google.CredentialsJSON == "" && c.Google.CredentialsFile == "" {
			return fmt.Errorf("service account credentials are required for sheets backend")
		}
	}

	return nil
}
