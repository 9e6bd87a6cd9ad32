// Package config provides configuration loading and management for the customer sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bookwell/customer-sync/internal/telemetry"
)

// EnvPrefix is the prefix for all environment variables read by the service
const EnvPrefix = "CUSTSYNC"

const (
	// DefaultTimezone is the location used for run-window and run-guard decisions
	DefaultTimezone = "Europe/Stockholm"

	// DefaultWindowStart is the default opening time of the daily run window
	DefaultWindowStart = "06:00"

	// DefaultWindowEnd is the default closing time of the daily run window
	DefaultWindowEnd = "08:00"

	// DefaultLookback is the default customer-creation window fetched from the source system
	DefaultLookback = "24h"

	// DefaultRecordDelay is the default pause between board writes
	DefaultRecordDelay = "300ms"

	// DefaultRetryCooldown is the minimum spacing between attempts within one day
	DefaultRetryCooldown = "30m"

	// DefaultPollInterval is the default tick interval of the background coordinator
	DefaultPollInterval = "5m"

	// DefaultPageSize is the default page size for source system listings
	DefaultPageSize = 100

	// DefaultSourceTimeout is the default per-request timeout against the booking system
	DefaultSourceTimeout = "10s"

	// DefaultBoardTimeout is the default per-request timeout against the board platform
	DefaultBoardTimeout = "30s"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Source configures the booking system the customers are pulled from
	Source SourceConfig `yaml:"source"`

	// Board configures the work-management board the customers are pushed to
	Board BoardConfig `yaml:"board"`

	// Sync configures the run window, guard and pacing of the sync job
	Sync SyncConfig `yaml:"sync"`

	// Database holds the Postgres connection used for run state.
	// When omitted, run state falls back to a local JSON file.
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// State configures the file fallback for run state
	State *StateConfig `yaml:"state,omitempty"`

	// Telemetry configures OpenTelemetry tracing and metrics
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SourceConfig defines the booking system API settings
type SourceConfig struct {
	// BaseURL is the base API URL of the booking system (without path)
	BaseURL string `yaml:"baseURL"`

	// TokenFile is the path to a file containing the API token.
	// Falls back to the CUSTSYNC_SOURCE_TOKEN environment variable.
	TokenFile string `yaml:"tokenFile,omitempty"`

	// PageSize is the page size used when listing customers
	PageSize int `yaml:"pageSize,omitempty"`

	// Timeout is the per-request timeout (e.g. "10s")
	Timeout string `yaml:"timeout,omitempty"`
}

// BoardConfig defines the work-management board API settings
type BoardConfig struct {
	// Endpoint is the GraphQL endpoint of the board platform
	Endpoint string `yaml:"endpoint"`

	// TokenFile is the path to a file containing the API token.
	// Falls back to the CUSTSYNC_BOARD_TOKEN environment variable.
	TokenFile string `yaml:"tokenFile,omitempty"`

	// BoardID is the identifier of the target board
	BoardID string `yaml:"boardID"`

	// GroupID is the board group new items are created in (optional)
	GroupID string `yaml:"groupID,omitempty"`

	// EmailColumnID is the column holding the customer email.
	// This column is also what items are matched on.
	EmailColumnID string `yaml:"emailColumnID"`

	// PhoneColumnID is the column holding the customer phone number (optional)
	PhoneColumnID string `yaml:"phoneColumnID,omitempty"`

	// CustomerIDColumnID is the column holding the source system customer ID (optional)
	CustomerIDColumnID string `yaml:"customerIDColumnID,omitempty"`

	// CreatedAtColumnID is the column holding the customer creation date (optional)
	CreatedAtColumnID string `yaml:"createdAtColumnID,omitempty"`

	// Timeout is the per-request timeout (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`
}

// WindowConfig defines the daily run window in local wall-clock time
type WindowConfig struct {
	// Start is the opening time in "HH:MM" format
	Start string `yaml:"start"`

	// End is the closing time in "HH:MM" format. May be earlier than
	// Start, in which case the window spans midnight.
	End string `yaml:"end"`
}

// AutoConfig defines the optional background trigger loop
type AutoConfig struct {
	// Enabled turns the background coordinator loop on
	Enabled bool `yaml:"enabled"`

	// PollInterval is how often the coordinator re-evaluates the gate (e.g. "5m")
	PollInterval string `yaml:"pollInterval,omitempty"`
}

// SyncConfig defines run window, guard and pacing settings
type SyncConfig struct {
	// Timezone is the IANA location the window and the daily guard are
	// evaluated in. Defaults to Europe/Stockholm.
	Timezone string `yaml:"timezone,omitempty"`

	// Window is the daily time-of-day window runs are allowed in
	Window WindowConfig `yaml:"window"`

	// Lookback is how far back the customer-creation window reaches (e.g. "24h")
	Lookback string `yaml:"lookback,omitempty"`

	// RecordDelay is the fixed pause between per-customer board calls
	RecordDelay string `yaml:"recordDelay,omitempty"`

	// RetryCooldown is the minimum spacing between attempts within one day.
	// A failed run can be retried after the cooldown until a success is recorded.
	RetryCooldown string `yaml:"retryCooldown,omitempty"`

	// DryRun skips all board writes while still fetching and matching
	DryRun bool `yaml:"dryRun,omitempty"`

	// Auto configures the background trigger loop
	Auto AutoConfig `yaml:"auto,omitempty"`
}

// StateConfig defines the file fallback for run state
type StateConfig struct {
	// FilePath is where run state is persisted when no database is configured
	FilePath string `yaml:"filePath"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g. "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the CUSTSYNC_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable", EnvPrefix,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// GetToken returns the source system API token using file-then-env priority
func (s *SourceConfig) GetToken() (string, error) {
	return readToken(s.TokenFile, EnvPrefix+"_SOURCE_TOKEN", "source")
}

// GetPageSize returns the page size, using the default if not specified
func (s *SourceConfig) GetPageSize() int {
	if s.PageSize <= 0 {
		return DefaultPageSize
	}
	return s.PageSize
}

// GetTimeout returns the parsed per-request timeout for the booking system
func (s *SourceConfig) GetTimeout() time.Duration {
	return durationOrDefault(s.Timeout, DefaultSourceTimeout)
}

// GetToken returns the board platform API token using file-then-env priority
func (b *BoardConfig) GetToken() (string, error) {
	return readToken(b.TokenFile, EnvPrefix+"_BOARD_TOKEN", "board")
}

// GetTimeout returns the parsed per-request timeout for the board platform
func (b *BoardConfig) GetTimeout() time.Duration {
	return durationOrDefault(b.Timeout, DefaultBoardTimeout)
}

func readToken(tokenFile, envVar, system string) (string, error) {
	if tokenFile != "" {
		cleanPath := filepath.Clean(tokenFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s token from file %s: %w", system, tokenFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envToken := os.Getenv(envVar); envToken != "" {
		return envToken, nil
	}

	return "", fmt.Errorf("no %s token configured: set tokenFile or %s environment variable", system, envVar)
}

// GetTimezone returns the configured timezone, using the default if not specified
func (s *SyncConfig) GetTimezone() string {
	if s.Timezone == "" {
		return DefaultTimezone
	}
	return s.Timezone
}

// GetWindowStart returns the window opening time, using the default if not specified
func (s *SyncConfig) GetWindowStart() string {
	if s.Window.Start == "" {
		return DefaultWindowStart
	}
	return s.Window.Start
}

// GetWindowEnd returns the window closing time, using the default if not specified
func (s *SyncConfig) GetWindowEnd() string {
	if s.Window.End == "" {
		return DefaultWindowEnd
	}
	return s.Window.End
}

// GetLookback returns the parsed lookback duration
func (s *SyncConfig) GetLookback() time.Duration {
	return durationOrDefault(s.Lookback, DefaultLookback)
}

// GetRecordDelay returns the parsed per-record delay
func (s *SyncConfig) GetRecordDelay() time.Duration {
	return durationOrDefault(s.RecordDelay, DefaultRecordDelay)
}

// GetRetryCooldown returns the parsed retry cooldown
func (s *SyncConfig) GetRetryCooldown() time.Duration {
	return durationOrDefault(s.RetryCooldown, DefaultRetryCooldown)
}

// GetPollInterval returns the parsed coordinator poll interval
func (a *AutoConfig) GetPollInterval() time.Duration {
	return durationOrDefault(a.PollInterval, DefaultPollInterval)
}

// durationOrDefault parses value, falling back to def. Values are expected to
// have been validated already; def must always parse.
func durationOrDefault(value, def string) time.Duration {
	if value == "" {
		value = def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := c.validateSourceConfig(); err != nil {
		return err
	}
	if err := c.validateBoardConfig(); err != nil {
		return err
	}
	if err := c.validateSyncConfig(); err != nil {
		return err
	}

	if c.Database != nil {
		if err := c.validateDatabaseConfig(); err != nil {
			return err
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

func (c *Config) validateSourceConfig() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source: baseURL is required")
	}
	if _, err := url.ParseRequestURI(c.Source.BaseURL); err != nil {
		return fmt.Errorf("source: baseURL must be a valid URL: %w", err)
	}
	if c.Source.Timeout != "" {
		if _, err := time.ParseDuration(c.Source.Timeout); err != nil {
			return fmt.Errorf("source: timeout must be a valid duration (e.g. '10s'): %w", err)
		}
	}
	return nil
}

func (c *Config) validateBoardConfig() error {
	if c.Board.Endpoint == "" {
		return fmt.Errorf("board: endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.Board.Endpoint); err != nil {
		return fmt.Errorf("board: endpoint must be a valid URL: %w", err)
	}
	if c.Board.BoardID == "" {
		return fmt.Errorf("board: boardID is required")
	}
	if c.Board.EmailColumnID == "" {
		return fmt.Errorf("board: emailColumnID is required")
	}
	if c.Board.Timeout != "" {
		if _, err := time.ParseDuration(c.Board.Timeout); err != nil {
			return fmt.Errorf("board: timeout must be a valid duration (e.g. '30s'): %w", err)
		}
	}
	return nil
}

func (c *Config) validateSyncConfig() error {
	if _, err := time.LoadLocation(c.Sync.GetTimezone()); err != nil {
		return fmt.Errorf("sync: timezone must be a valid IANA location: %w", err)
	}

	for _, clock := range []struct{ name, value string }{
		{"window.start", c.Sync.GetWindowStart()},
		{"window.end", c.Sync.GetWindowEnd()},
	} {
		if _, err := time.Parse("15:04", clock.value); err != nil {
			return fmt.Errorf("sync: %s must be in HH:MM format: %w", clock.name, err)
		}
	}
	if c.Sync.GetWindowStart() == c.Sync.GetWindowEnd() {
		return fmt.Errorf("sync: window start and end must differ")
	}

	for _, dur := range []struct{ name, value string }{
		{"lookback", c.Sync.Lookback},
		{"recordDelay", c.Sync.RecordDelay},
		{"retryCooldown", c.Sync.RetryCooldown},
		{"auto.pollInterval", c.Sync.Auto.PollInterval},
	} {
		if dur.value == "" {
			continue
		}
		if _, err := time.ParseDuration(dur.value); err != nil {
			return fmt.Errorf("sync: %s must be a valid duration (e.g. '30m', '1h'): %w", dur.name, err)
		}
	}

	return nil
}

func (c *Config) validateDatabaseConfig() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database: host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database: port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database: user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database: database name is required")
	}
	if c.Database.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("database: connMaxLifetime must be a valid duration: %w", err)
		}
	}
	return nil
}

// GetStateFilePath returns the file path for run state, defaulting to ./data/state.json
func (c *Config) GetStateFilePath() string {
	if c.State != nil && c.State.FilePath != "" {
		return c.State.FilePath
	}
	return "./data/state.json"
}
