// Package config loads collector configuration from environment
// variables and an optional .env file, with typed fallbacks.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the collector needs, gathered from the CLI
// flags of spec.md §6 and the environment variables of §6's
// "Environment configuration" table.
type Config struct {
	// Feature flags
	Demo            bool
	SaveToDB        bool
	UseNewTables    bool
	IncludeCashInfo bool
	Continuous      bool
	SaveJSON        bool

	TotalATMs int
	Interval  time.Duration
	OutputDir string

	// Vendor API
	VendorBaseURL       string
	VendorUsername      string
	VendorPassword      string
	FallbackUsername    string
	FallbackPassword    string
	VendorConnTimeout  time.Duration
	VendorReadTimeout  time.Duration
	VendorMaxRetries   int
	InterTerminalPause time.Duration
	RegistryPath       string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Logging
	LogFile  string
	LogLevel string
}

// Load parses CLI flags, then fills anything left unset from the
// environment (and an optional .env file, loaded first so explicit
// environment variables still win).
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("atm-collector", flag.ContinueOnError)

	demo := fs.Bool("demo", false, "synthetic data, no network or database I/O")
	saveToDB := fs.Bool("save-to-db", getEnvBool("COLLECTOR_SAVE_TO_DB", false), "persist results to the database")
	useNewTables := fs.Bool("use-new-tables", getEnvBool("COLLECTOR_USE_NEW_TABLES", true), "write only the JSONB tables; when false, regional counts are also written to the legacy regional_atm_counts table")
	includeCash := fs.Bool("include-cash-info", getEnvBool("COLLECTOR_INCLUDE_CASH_INFO", false), "run the P6 cash-information phase")
	totalATMs := fs.Int("total-atms", getEnvInt("COLLECTOR_TOTAL_ATMS", 14), "configured fleet size")
	continuous := fs.Bool("continuous", getEnvBool("COLLECTOR_CONTINUOUS", false), "run the scheduler loop instead of a single cycle")
	intervalSec := fs.Int("interval", getEnvInt("COLLECTOR_INTERVAL_SEC", 900), "seconds between cycle starts in continuous mode")
	saveJSON := fs.Bool("save-json", getEnvBool("COLLECTOR_SAVE_JSON", false), "additionally dump each cycle to --output-dir as JSON")
	outputDir := fs.String("output-dir", getEnv("COLLECTOR_OUTPUT_DIR", "./output"), "directory for --save-json dumps")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Demo:            *demo,
		SaveToDB:        *saveToDB,
		UseNewTables:    *useNewTables,
		IncludeCashInfo: *includeCash,
		Continuous:      *continuous,
		Interval:        time.Duration(*intervalSec) * time.Second,
		SaveJSON:        *saveJSON,
		OutputDir:       *outputDir,
		TotalATMs:       *totalATMs,

		VendorBaseURL:      getEnv("VENDOR_BASE_URL", "https://172.31.1.46"),
		VendorUsername:     os.Getenv("VENDOR_USERNAME"),
		VendorPassword:     os.Getenv("VENDOR_PASSWORD"),
		FallbackUsername:   os.Getenv("VENDOR_FALLBACK_USERNAME"),
		FallbackPassword:   os.Getenv("VENDOR_FALLBACK_PASSWORD"),
		VendorConnTimeout:  time.Duration(getEnvInt("VENDOR_CONNECT_TIMEOUT_SEC", 30)) * time.Second,
		VendorReadTimeout:  time.Duration(getEnvInt("VENDOR_READ_TIMEOUT_SEC", 60)) * time.Second,
		VendorMaxRetries:   getEnvInt("VENDOR_MAX_RETRIES", 2),
		InterTerminalPause: time.Duration(getEnvInt("VENDOR_INTER_TERMINAL_PAUSE_MS", 200)) * time.Millisecond,
		RegistryPath:       getEnv("TERMINAL_REGISTRY_PATH", "./terminal_registry.json"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "atm_monitor"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),

		LogFile:  os.Getenv("LOG_FILE"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// DSN renders the Postgres connection string from the discrete
// DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD coordinates.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
