package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingConfig is returned by Validate when required settings are absent
// or invalid. It is distinct from any fetch failure.
var ErrMissingConfig = errors.New("missing or invalid configuration")

// Source names.
const (
	SourceNetSuite  = "netsuite"
	SourceWarehouse = "warehouse"
)

// NetSuite auth modes.
const (
	AuthTBA    = "tba"
	AuthOAuth2 = "oauth2"
)

// Config holds all configuration for the refresh job
type Config struct {
	Source    string          `yaml:"source"`
	NetSuite  NetSuiteConfig  `yaml:"netsuite"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	History   HistoryConfig   `yaml:"history"`
	Lock      LockConfig      `yaml:"lock"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// NetSuiteConfig holds SuiteQL REST API settings
type NetSuiteConfig struct {
	AccountID string `yaml:"account_id"`
	BaseURL   string `yaml:"base_url"`  // derived from account_id when empty
	AuthMode  string `yaml:"auth_mode"` // "tba" or "oauth2"

	// Token-based authentication (OAuth 1.0a)
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	TokenID        string `yaml:"token_id"`
	TokenSecret    string `yaml:"token_secret"`

	// OAuth 2.0 machine-to-machine (client credentials with JWT assertion)
	ClientID       string `yaml:"client_id"`
	CertificateID  string `yaml:"certificate_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	Scope          string `yaml:"scope"`

	Since          string  `yaml:"since"` // lower bound on trandate, YYYY-MM-DD
	Query          string  `yaml:"query"` // full SuiteQL override
	PageSize       int     `yaml:"page_size"`
	RatePerSecond  float64 `yaml:"rate_per_second"` // page request pacing, 0 = unpaced
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout duration
func (c NetSuiteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// URL returns the REST base URL for the account.
// Sandbox ids like "1234567_SB1" map to host "1234567-sb1".
func (c NetSuiteConfig) URL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	host := strings.ToLower(strings.ReplaceAll(c.AccountID, "_", "-"))
	return fmt.Sprintf("https://%s.suitetalk.api.netsuite.com", host)
}

// Realm returns the OAuth realm, the account id in upper case.
func (c NetSuiteConfig) Realm() string {
	return strings.ToUpper(c.AccountID)
}

// WarehouseConfig holds settings for reading replicated sales orders from a
// SQL warehouse instead of the SuiteQL API
type WarehouseConfig struct {
	Driver         string `yaml:"driver"` // "snowflake" or "postgres"
	DSN            string `yaml:"dsn"`
	Query          string `yaml:"query"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the query timeout duration
func (c WarehouseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnapshotConfig holds where the snapshot is written
type SnapshotConfig struct {
	Path string `yaml:"path"`

	// Optional S3 mirror
	S3Bucket   string `yaml:"s3_bucket"`
	S3Key      string `yaml:"s3_key"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
}

// GetAWSProfile returns the AWS profile, honoring AWS_PROFILE_OVERRIDE.
// In ECS/Lambda the task role is used, so no profile is returned.
func (c SnapshotConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// HistoryConfig holds the optional DynamoDB run history table.
// Regions and credentials are shared with the snapshot S3 mirror.
type HistoryConfig struct {
	Table   string `yaml:"table"`
	TTLDays int    `yaml:"ttl_days"`
}

// TTL returns how long history items live before DynamoDB expires them
func (c HistoryConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// LockConfig holds the optional run lock settings. Redis wins when both
// backends are configured; PostgresDSN selects a session advisory lock.
type LockConfig struct {
	RedisURL    string `yaml:"redis_url"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Key         string `yaml:"key"`
	TTLSeconds  int    `yaml:"ttl_seconds"`
}

// TTL returns the lock expiry
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// MetricsConfig holds Prometheus Pushgateway settings
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level    string `yaml:"level"`
	NoRedact bool   `yaml:"no_redact"`
}

// Load reads a YAML configuration file and applies defaults.
// An empty path yields a config made of defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source == "" {
		cfg.Source = SourceNetSuite
	}
	if cfg.NetSuite.AuthMode == "" {
		cfg.NetSuite.AuthMode = AuthTBA
	}
	if cfg.NetSuite.Scope == "" {
		cfg.NetSuite.Scope = "rest_webservices"
	}
	if cfg.NetSuite.Since == "" {
		cfg.NetSuite.Since = "2024-01-01"
	}
	if cfg.NetSuite.PageSize == 0 {
		cfg.NetSuite.PageSize = 1000
	}
	if cfg.NetSuite.TimeoutSeconds == 0 {
		cfg.NetSuite.TimeoutSeconds = 60
	}
	if cfg.Warehouse.TimeoutSeconds == 0 {
		cfg.Warehouse.TimeoutSeconds = 120
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "NetSuite_KPI_Data.json"
	}
	if cfg.Snapshot.S3Key == "" {
		cfg.Snapshot.S3Key = "kpi/NetSuite_KPI_Data.json"
	}
	if cfg.Snapshot.AWSRegion == "" {
		cfg.Snapshot.AWSRegion = "us-west-2"
	}
	if cfg.History.TTLDays == 0 {
		cfg.History.TTLDays = 90
	}
	if cfg.Lock.Key == "" {
		cfg.Lock.Key = "netsuite-kpi-refresh"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 900
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "netsuite_kpi_refresh"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
}

// LoadFromEnv loads configuration and overrides it with environment variables.
// envFile is loaded first when present; a missing .env is not an error.
func LoadFromEnv(path, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KPI_SOURCE"); v != "" {
		cfg.Source = v
	}

	// NetSuite credentials, same names as the GitHub Actions secrets
	if v := os.Getenv("NETSUITE_ACCOUNT_ID"); v != "" {
		cfg.NetSuite.AccountID = v
	}
	if v := os.Getenv("NETSUITE_BASE_URL"); v != "" {
		cfg.NetSuite.BaseURL = v
	}
	if v := os.Getenv("NETSUITE_AUTH_MODE"); v != "" {
		cfg.NetSuite.AuthMode = v
	}
	if v := os.Getenv("CONSUMER_KEY"); v != "" {
		cfg.NetSuite.ConsumerKey = v
	}
	if v := os.Getenv("CONSUMER_SECRET"); v != "" {
		cfg.NetSuite.ConsumerSecret = v
	}
	if v := os.Getenv("TOKEN_ID"); v != "" {
		cfg.NetSuite.TokenID = v
	}
	if v := os.Getenv("TOKEN_SECRET"); v != "" {
		cfg.NetSuite.TokenSecret = v
	}
	if v := os.Getenv("NETSUITE_CLIENT_ID"); v != "" {
		cfg.NetSuite.ClientID = v
	}
	if v := os.Getenv("NETSUITE_CERTIFICATE_ID"); v != "" {
		cfg.NetSuite.CertificateID = v
	}
	if v := os.Getenv("NETSUITE_PRIVATE_KEY_PATH"); v != "" {
		cfg.NetSuite.PrivateKeyPath = v
	}
	if v := os.Getenv("NETSUITE_SINCE"); v != "" {
		cfg.NetSuite.Since = v
	}
	if v := os.Getenv("NETSUITE_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: NETSUITE_PAGE_SIZE: %v", ErrMissingConfig, err)
		}
		cfg.NetSuite.PageSize = n
	}

	// Warehouse
	if v := os.Getenv("WAREHOUSE_DRIVER"); v != "" {
		cfg.Warehouse.Driver = v
	}
	if v := os.Getenv("WAREHOUSE_DSN"); v != "" {
		cfg.Warehouse.DSN = v
	}

	// Snapshot destinations
	if v := os.Getenv("KPI_SNAPSHOT_PATH"); v != "" {
		cfg.Snapshot.Path = v
	}
	if v := os.Getenv("KPI_S3_BUCKET"); v != "" {
		cfg.Snapshot.S3Bucket = v
	}
	if v := os.Getenv("KPI_S3_KEY"); v != "" {
		cfg.Snapshot.S3Key = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Snapshot.AWSRegion = v
	}

	if v := os.Getenv("KPI_HISTORY_TABLE"); v != "" {
		cfg.History.Table = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Lock.RedisURL = v
	}
	if v := os.Getenv("LOCK_POSTGRES_DSN"); v != "" {
		cfg.Lock.PostgresDSN = v
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks that every setting the selected source and destinations
// need is present. It runs once, before any network call.
func (c *Config) Validate() error {
	var missing []string

	switch c.Source {
	case SourceNetSuite:
		missing = append(missing, c.NetSuite.validate()...)
	case SourceWarehouse:
		missing = append(missing, c.Warehouse.validate()...)
	default:
		missing = append(missing, fmt.Sprintf("source %q (want %q or %q)", c.Source, SourceNetSuite, SourceWarehouse))
	}

	if strings.TrimSpace(c.Snapshot.Path) == "" {
		missing = append(missing, "snapshot.path")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (c NetSuiteConfig) validate() []string {
	var missing []string
	if c.AccountID == "" && c.BaseURL == "" {
		missing = append(missing, "NETSUITE_ACCOUNT_ID")
	}
	switch c.AuthMode {
	case AuthTBA:
		if c.AccountID == "" && c.BaseURL != "" {
			missing = append(missing, "NETSUITE_ACCOUNT_ID (oauth realm)")
		}
		if c.ConsumerKey == "" {
			missing = append(missing, "CONSUMER_KEY")
		}
		if c.ConsumerSecret == "" {
			missing = append(missing, "CONSUMER_SECRET")
		}
		if c.TokenID == "" {
			missing = append(missing, "TOKEN_ID")
		}
		if c.TokenSecret == "" {
			missing = append(missing, "TOKEN_SECRET")
		}
	case AuthOAuth2:
		if c.ClientID == "" {
			missing = append(missing, "NETSUITE_CLIENT_ID")
		}
		if c.CertificateID == "" {
			missing = append(missing, "NETSUITE_CERTIFICATE_ID")
		}
		if c.PrivateKeyPath == "" {
			missing = append(missing, "NETSUITE_PRIVATE_KEY_PATH")
		}
	default:
		missing = append(missing, fmt.Sprintf("netsuite.auth_mode %q", c.AuthMode))
	}
	if c.Query == "" && !isoDate.MatchString(c.Since) {
		missing = append(missing, fmt.Sprintf("netsuite.since %q (want YYYY-MM-DD)", c.Since))
	}
	if c.PageSize < 1 || c.PageSize > 1000 {
		missing = append(missing, fmt.Sprintf("netsuite.page_size %d (want 1-1000)", c.PageSize))
	}
	return missing
}

func (c WarehouseConfig) validate() []string {
	var missing []string
	switch c.Driver {
	case "snowflake", "postgres":
	case "":
		missing = append(missing, "WAREHOUSE_DRIVER")
	default:
		missing = append(missing, fmt.Sprintf("warehouse.driver %q", c.Driver))
	}
	if c.DSN == "" {
		missing = append(missing, "WAREHOUSE_DSN")
	}
	if strings.TrimSpace(c.Query) == "" {
		missing = append(missing, "warehouse.query")
	}
	return missing
}
