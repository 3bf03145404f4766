package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultConfigFile is read when no other path is given.
	DefaultConfigFile = "config.json"

	defaultHTTPTimeoutSeconds = 30
	defaultHTTPMaxBodySize    = 10 * 1024 * 1024 // 10MB
	defaultConcurrency        = 1
	defaultRequestsPerSecond  = 5.0
)

// Environment variables read by Load.
const (
	EnvAPIKey            = "NEW_RELIC_API_KEY"
	EnvRegion            = "NEW_RELIC_REGION"
	EnvBackupDir         = "BACKUP_DIR"
	EnvConfigFile        = "CONFIG_FILE"
	EnvHTTPTimeout       = "HTTP_TIMEOUT"
	EnvHTTPMaxBodySize   = "HTTP_MAX_BODY_SIZE"
	EnvConcurrency       = "CONCURRENCY"
	EnvRequestsPerSecond = "REQUESTS_PER_SECOND"
)

// Region selects the New Relic data center, and with it the API endpoint.
type Region string

const (
	RegionUS Region = "US"
	RegionEU Region = "EU"
)

// ParseRegion accepts exactly "US" or "EU".
func ParseRegion(s string) (Region, error) {
	switch r := Region(s); r {
	case RegionUS, RegionEU:
		return r, nil
	case "":
		return "", fmt.Errorf("region is required (US or EU)")
	default:
		return "", fmt.Errorf("invalid region %q: must be US or EU", s)
	}
}

// Endpoint returns the NerdGraph URL for the region.
func (r Region) Endpoint() string {
	if r == RegionEU {
		return "https://api.eu.newrelic.com/graphql"
	}
	return "https://api.newrelic.com/graphql"
}

// UpdateRequest asks for every chart of one dashboard to refresh every
// RefreshRate milliseconds.
type UpdateRequest struct {
	GUID        string
	RefreshRate int
}

// Settings is the resolved configuration for one run. It is built once by
// Load and passed by value; nothing modifies it afterwards.
type Settings struct {
	APIKey            string          // Required, New Relic user API key
	Region            Region          // Required, US or EU
	ConfigFile        string          // Absolute path of the config file that was read
	BackupDir         string          // Absolute backup directory, defaults to the working directory
	BackupEnabled     bool            // False when --no-backup is given
	Debug             bool            // Debug logging
	Dashboards        []UpdateRequest // Required, non-empty, in config order
	HTTPTimeout       time.Duration   // Per-request timeout, defaults to 30 seconds
	HTTPMaxBodySize   int64           // Maximum accepted response body size, defaults to 10MB
	Concurrency       int             // Dashboards processed in parallel, defaults to 1
	RequestsPerSecond float64         // Client side API request rate, 0 disables the limit
}

// Overrides holds command-line flag values. Nil pointers mean "not given".
type Overrides struct {
	ConfigFile  string
	BackupDir   *string
	NoBackup    bool
	Debug       bool
	Concurrency *int
	HTTPTimeout *int // seconds
}

// Error is returned for any configuration problem. No dashboard is touched
// when Load fails.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Load resolves Settings with precedence
// CLI flags > environment variables > config file > defaults.
// A .env file in the working directory, if present, is loaded into the
// environment first.
func Load(overrides *Overrides) (Settings, error) {
	if overrides == nil {
		overrides = &Overrides{}
	}

	// If .env exists, try to load it
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return Settings{}, &Error{Err: fmt.Errorf("failed to determine working directory: %w", err)}
	}

	configFile := overrides.ConfigFile
	if configFile == "" {
		configFile = getEnv(EnvConfigFile, DefaultConfigFile)
	}
	configFile = resolvePath(cwd, configFile)

	fc, err := loadFile(configFile)
	if err != nil {
		return Settings{}, &Error{Err: err}
	}

	r := resolved{
		apiKey:            fc.APIKey,
		region:            fc.Region,
		backupDir:         fc.BackupDir,
		httpTimeout:       defaultHTTPTimeoutSeconds,
		httpMaxBodySize:   defaultHTTPMaxBodySize,
		concurrency:       defaultConcurrency,
		requestsPerSecond: defaultRequestsPerSecond,
	}
	if fc.HTTPTimeout != nil {
		r.httpTimeout = *fc.HTTPTimeout
	}
	if fc.Concurrency != nil {
		r.concurrency = *fc.Concurrency
	}
	if fc.RequestsPerSecond != nil {
		r.requestsPerSecond = *fc.RequestsPerSecond
	}

	applyEnv(&r)
	applyOverrides(&r, overrides)

	if r.backupDir == "" {
		r.backupDir = cwd
	}

	settings := Settings{
		APIKey:            r.apiKey,
		ConfigFile:        configFile,
		BackupDir:         resolvePath(cwd, expandEnvPlaceholders(r.backupDir)),
		BackupEnabled:     !overrides.NoBackup,
		Debug:             overrides.Debug,
		HTTPTimeout:       time.Duration(r.httpTimeout) * time.Second,
		HTTPMaxBodySize:   r.httpMaxBodySize,
		Concurrency:       r.concurrency,
		RequestsPerSecond: r.requestsPerSecond,
	}

	var errs []error
	if strings.TrimSpace(r.apiKey) == "" {
		errs = append(errs, fmt.Errorf("apiKey is required (config file or %s)", EnvAPIKey))
	}
	region, err := ParseRegion(r.region)
	if err != nil {
		errs = append(errs, err)
	}
	settings.Region = region

	dashboards, err := buildRequests(fc.Dashboards)
	if err != nil {
		errs = append(errs, err)
	}
	settings.Dashboards = dashboards

	if r.httpTimeout <= 0 {
		errs = append(errs, fmt.Errorf("httpTimeout must be a positive number of seconds, got %d", r.httpTimeout))
	}
	if r.httpMaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvHTTPMaxBodySize, r.httpMaxBodySize))
	}
	if r.concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", r.concurrency))
	}
	if r.requestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requestsPerSecond must not be negative, got %v", r.requestsPerSecond))
	}

	if len(errs) > 0 {
		return Settings{}, &Error{Err: errors.Join(errs...)}
	}
	return settings, nil
}

// resolved collects values while the layers are applied.
type resolved struct {
	apiKey            string
	region            string
	backupDir         string
	httpTimeout       int
	httpMaxBodySize   int64
	concurrency       int
	requestsPerSecond float64
}

func applyEnv(r *resolved) {
	r.apiKey = getEnv(EnvAPIKey, r.apiKey)
	r.region = getEnv(EnvRegion, r.region)
	r.backupDir = getEnv(EnvBackupDir, r.backupDir)
	r.httpTimeout = getEnvInt(EnvHTTPTimeout, r.httpTimeout)
	r.httpMaxBodySize = int64(getEnvInt(EnvHTTPMaxBodySize, int(r.httpMaxBodySize)))
	r.concurrency = getEnvInt(EnvConcurrency, r.concurrency)
	r.requestsPerSecond = getEnvFloat(EnvRequestsPerSecond, r.requestsPerSecond)
}

func applyOverrides(r *resolved, o *Overrides) {
	if o.BackupDir != nil && *o.BackupDir != "" {
		r.backupDir = *o.BackupDir
	}
	if o.Concurrency != nil {
		r.concurrency = *o.Concurrency
	}
	if o.HTTPTimeout != nil {
		r.httpTimeout = *o.HTTPTimeout
	}
}

// buildRequests validates every entry and reports all problems at once.
func buildRequests(entries []fileDashboard) ([]UpdateRequest, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("dashboards must list at least one dashboard")
	}

	var errs []error
	requests := make([]UpdateRequest, 0, len(entries))
	for i, e := range entries {
		guid := strings.TrimSpace(e.GUID)
		if guid == "" {
			errs = append(errs, fmt.Errorf("dashboards[%d]: guid is required", i))
		}
		if e.RefreshRate <= 0 {
			errs = append(errs, fmt.Errorf("dashboards[%d]: refreshRate must be a positive number of milliseconds, got %d", i, e.RefreshRate))
		}
		requests = append(requests, UpdateRequest{GUID: guid, RefreshRate: e.RefreshRate})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return requests, nil
}

func resolvePath(cwd, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cwd, p)
}

// get the env variable with a default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// getEnvInt returns an integer env var, defaulting when unset/empty or invalid.
func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return i
	}
	fmt.Fprintf(os.Stderr, "Warning: ignoring invalid integer %s=%q\n", key, v)
	return def
}

// getEnvFloat returns a float env var, defaulting when unset/empty or invalid.
func getEnvFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return f
	}
	fmt.Fprintf(os.Stderr, "Warning: ignoring invalid number %s=%q\n", key, v)
	return def
}
