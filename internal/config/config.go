package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendCSV, BackendSQLite, BackendSheets}

// ConfigFileEnv names the environment variable pointing at an optional TOML file.
const ConfigFileEnv = "RIDESDASH_CONFIG"

type Config struct {
	// HTTP Server
	Port               string        `toml:"port"`
	LoadTimeout        time.Duration `toml:"load_timeout"`
	RateLimitPerMinute int           `toml:"rate_limit_per_minute"`
	LogLevel           string        `toml:"log_level"`

	// PNG chart cache; size 0 disables it
	ChartCacheSize int           `toml:"chart_cache_size"`
	ChartCacheTTL  time.Duration `toml:"chart_cache_ttl"`

	// Backend selection
	DataBackend string `toml:"data_backend"`

	// CSV files
	DataDir        string `toml:"data_dir"`
	LocationsFile  string `toml:"locations_file"`
	CategoriesFile string `toml:"categories_file"`
	RidesFile      string `toml:"rides_file"`

	// Database
	SQLiteDBPath string `toml:"sqlite_db_path"`

	// AMQP
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleLocationsSheet     string `toml:"google_locations_sheet"`
	GoogleCategoriesSheet    string `toml:"google_categories_sheet"`
	GoogleRidesSheet         string `toml:"google_rides_sheet"`
	GoogleServiceAccountJSON string `toml:"-"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		Port:               "8081",
		LoadTimeout:        7 * time.Second,
		RateLimitPerMinute: 120,
		LogLevel:           "info",

		ChartCacheSize: 64,
		ChartCacheTTL:  10 * time.Minute,

		DataBackend: BackendCSV,

		DataDir:        "./data",
		LocationsFile:  "Locations_Table.csv",
		CategoriesFile: "Category_Table.csv",
		RidesFile:      "Corrected_Rides_Table.csv",

		SQLiteDBPath: "./data/ridesdash.db",

		AMQPExchange: "ridesdash",
		AMQPQueue:    "dataset_imported",

		GoogleLocationsSheet:  "Locations",
		GoogleCategoriesSheet: "Categories",
		GoogleRidesSheet:      "Rides",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// RIDESDASH_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Port = getEnv("PORT", c.Port)
	c.LoadTimeout = getEnvDuration("LOAD_TIMEOUT", c.LoadTimeout)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.ChartCacheSize = getEnvInt("CHART_CACHE_SIZE", c.ChartCacheSize)
	c.ChartCacheTTL = getEnvDuration("CHART_CACHE_TTL", c.ChartCacheTTL)

	c.DataBackend = strings.ToLower(getEnv("DATA_BACKEND", c.DataBackend))

	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LocationsFile = getEnv("LOCATIONS_FILE", c.LocationsFile)
	c.CategoriesFile = getEnv("CATEGORIES_FILE", c.CategoriesFile)
	c.RidesFile = getEnv("RIDES_FILE", c.RidesFile)

	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleLocationsSheet = getEnv("GOOGLE_LOCATIONS_SHEET", c.GoogleLocationsSheet)
	c.GoogleCategoriesSheet = getEnv("GOOGLE_CATEGORIES_SHEET", c.GoogleCategoriesSheet)
	c.GoogleRidesSheet = getEnv("GOOGLE_RIDES_SHEET", c.GoogleRidesSheet)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE",
		getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleServiceAccountFile))
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendCSV:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using csv backend")
		}
		if c.LocationsFile == "" || c.CategoriesFile == "" || c.RidesFile == "" {
			errors = append(errors, "locations, categories and rides file names are required when using csv backend")
		}
	case BackendSQLite:
		errors = append(errors, c.validateSQLitePath()...)
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LoadTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be at least 100ms", c.LoadTimeout))
	} else if c.LoadTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be at most 5 minutes", c.LoadTimeout))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.ChartCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid chart cache size %d: must be 0 (disabled) or more", c.ChartCacheSize))
	}
	if c.ChartCacheSize > 0 && c.ChartCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid chart cache TTL %v: must be at least 1s", c.ChartCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateImport checks what the import command needs on top of Validate:
// a writable SQLite path regardless of the serving backend.
func (c *Config) ValidateImport() error {
	if errs := c.validateSQLitePath(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) validateSQLitePath() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty"}
	}
	// Check if directory exists or can be created
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleLocationsSheet == "" || c.GoogleCategoriesSheet == "" || c.GoogleRidesSheet == "" {
		errors = append(errors, "Google locations, categories and rides sheet names are required when using sheets backend")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

// WriteTOML encodes the configuration in the format accepted by RIDESDASH_CONFIG.
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// DataPath joins a CSV file name onto DataDir.
func (c *Config) DataPath(name string) string {
	return filepath.Join(c.DataDir, name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
