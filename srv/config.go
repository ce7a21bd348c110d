package srv

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/webframp/otalog/plaintext"
)

// Config holds all configurable settings for serving and generation.
type Config struct {
	// Server
	ListenAddr string
	Hostname   string

	// Catalog
	CatalogDir string

	// Plain-text negotiation
	PlainPrefix  string // dedicated always-plain route root
	ClientMarker string // substring of User-Agent that selects plain text
	DateStyle    plaintext.DateStyle

	// Static generation
	OutputDir       string
	BlobDriver      string // fs, s3 or memory
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PathStyle     bool
	LedgerPath      string // empty disables the publication ledger
	GenerateWorkers int

	// API Rate Limiting
	APIRateLimit    int           // requests per interval
	APIRateInterval time.Duration // interval for rate limit
	APIRateBurst    int           // max burst capacity
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8000",
		Hostname:   "localhost",
		CatalogDir: "ota",

		PlainPrefix:  DefaultPlainPrefix,
		ClientMarker: DefaultClientMarker,
		DateStyle:    plaintext.DatePlain,

		OutputDir:       "dist",
		BlobDriver:      "fs",
		S3Region:        "us-east-1",
		GenerateWorkers: 4,

		// API: 30 requests per minute, burst of 10
		APIRateLimit:    30,
		APIRateInterval: time.Minute,
		APIRateBurst:    10,
	}
}

// fileConfig mirrors Config for TOML decoding. Zero values leave the
// corresponding setting untouched.
type fileConfig struct {
	ListenAddr      string `toml:"listen_addr"`
	Hostname        string `toml:"hostname"`
	CatalogDir      string `toml:"catalog_dir"`
	PlainPrefix     string `toml:"plain_prefix"`
	ClientMarker    string `toml:"client_marker"`
	DateStyle       string `toml:"date_style"`
	OutputDir       string `toml:"output_dir"`
	LedgerPath      string `toml:"ledger_path"`
	GenerateWorkers int    `toml:"generate_workers"`
	Blob            struct {
		Driver    string `toml:"driver"`
		Bucket    string `toml:"s3_bucket"`
		Region    string `toml:"s3_region"`
		Endpoint  string `toml:"s3_endpoint"`
		PathStyle bool   `toml:"s3_path_style"`
	} `toml:"blob"`
	API struct {
		RateLimit    int    `toml:"rate_limit"`
		RateInterval string `toml:"rate_interval"`
		RateBurst    int    `toml:"rate_burst"`
	} `toml:"api"`
}

// LoadConfig builds a Config from defaults, then the TOML file at path (if
// path is non-empty), then environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := fc.apply(&cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.Hostname, fc.Hostname)
	setString(&cfg.CatalogDir, fc.CatalogDir)
	setString(&cfg.PlainPrefix, fc.PlainPrefix)
	setString(&cfg.ClientMarker, fc.ClientMarker)
	setDateStyle(&cfg.DateStyle, fc.DateStyle)
	setString(&cfg.OutputDir, fc.OutputDir)
	setString(&cfg.LedgerPath, fc.LedgerPath)
	if fc.GenerateWorkers > 0 {
		cfg.GenerateWorkers = fc.GenerateWorkers
	}
	setString(&cfg.BlobDriver, fc.Blob.Driver)
	setString(&cfg.S3Bucket, fc.Blob.Bucket)
	setString(&cfg.S3Region, fc.Blob.Region)
	setString(&cfg.S3Endpoint, fc.Blob.Endpoint)
	if fc.Blob.PathStyle {
		cfg.S3PathStyle = true
	}
	if fc.API.RateLimit > 0 {
		cfg.APIRateLimit = fc.API.RateLimit
	}
	if fc.API.RateInterval != "" {
		d, err := time.ParseDuration(fc.API.RateInterval)
		if err != nil || d <= 0 {
			return fmt.Errorf("api.rate_interval: invalid duration %q", fc.API.RateInterval)
		}
		cfg.APIRateInterval = d
	}
	if fc.API.RateBurst > 0 {
		cfg.APIRateBurst = fc.API.RateBurst
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setDateStyle keeps unknown values as-is so Validate can report them.
func setDateStyle(dst *plaintext.DateStyle, v string) {
	if v == "" {
		return
	}
	if style, ok := plaintext.ParseDateStyle(v); ok {
		*dst = style
		return
	}
	*dst = plaintext.DateStyle(v)
}

// ConfigFromEnv returns a Config populated from environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, os.Getenv("LISTEN_ADDR"))
	setString(&cfg.Hostname, os.Getenv("HOSTNAME"))
	setString(&cfg.CatalogDir, os.Getenv("CATALOG_DIR"))
	setString(&cfg.PlainPrefix, os.Getenv("PLAIN_PREFIX"))
	setString(&cfg.ClientMarker, os.Getenv("CLIENT_MARKER"))
	setDateStyle(&cfg.DateStyle, os.Getenv("DATE_STYLE"))
	setString(&cfg.OutputDir, os.Getenv("OUTPUT_DIR"))
	setString(&cfg.BlobDriver, os.Getenv("BLOB_DRIVER"))
	setString(&cfg.S3Bucket, os.Getenv("S3_BUCKET"))
	setString(&cfg.S3Region, os.Getenv("S3_REGION"))
	setString(&cfg.S3Endpoint, os.Getenv("S3_ENDPOINT"))
	if v := os.Getenv("S3_PATH_STYLE"); v != "" {
		cfg.S3PathStyle = strings.EqualFold(v, "true")
	}
	setString(&cfg.LedgerPath, os.Getenv("LEDGER_PATH"))

	if v := os.Getenv("GENERATE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GenerateWorkers = n
		}
	}

	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.APIRateLimit = n
		}
	}

	if v := os.Getenv("API_RATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.APIRateInterval = d
		}
	}

	if v := os.Getenv("API_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.APIRateBurst = n
		}
	}
}

// Validate reports settings that cannot be served.
func (c Config) Validate() error {
	if _, ok := plaintext.ParseDateStyle(string(c.DateStyle)); !ok {
		return fmt.Errorf("date style %q: want %q or %q", c.DateStyle, plaintext.DatePlain, plaintext.DateIndented)
	}
	if !strings.HasPrefix(c.PlainPrefix, "/") || strings.HasSuffix(c.PlainPrefix, "/") {
		return fmt.Errorf("plain prefix %q must start and not end with '/'", c.PlainPrefix)
	}
	if c.PlainPrefix == DevicePrefix {
		return fmt.Errorf("plain prefix must differ from %s", DevicePrefix)
	}
	if strings.TrimSpace(c.ClientMarker) == "" {
		return fmt.Errorf("client marker is required")
	}
	switch c.BlobDriver {
	case "fs", "memory":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 bucket required for s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
	return nil
}
