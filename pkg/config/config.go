// Package config provides configuration loading and validation for the
// component tagger.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidExtension = errors.New("extension must start with a dot")
	ErrInvalidCacheSize = errors.New("invalid cache max size")
	ErrInvalidBodySize  = errors.New("invalid server max body size")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// EnvPrefix prefixes environment overrides, e.g. COMPONENT_TAGGER_SERVER_PORT.
const EnvPrefix = "COMPONENT_TAGGER"

// FileName is the config file searched for when no path is given.
const FileName = ".component-tagger"

// Default configuration values.
const (
	defaultPort          = 5174
	defaultHost          = "127.0.0.1"
	defaultCacheEntries  = 512
	defaultCacheSize     = "64MB"
	defaultMaxBodySize   = "8MB"
	defaultDebounce      = 150 * time.Millisecond
	defaultSampleRatio   = 1.0
	defaultServiceName   = "component-tagger"
	defaultShutdownAfter = 5 * time.Second
)

// DefaultExtensions are the file extensions annotated unless configured otherwise.
var DefaultExtensions = []string{".jsx", ".tsx"}

// Config holds all configuration.
type Config struct {
	Root           string   `mapstructure:"root"`
	Exclude        []string `mapstructure:"exclude"`
	Extensions     []string `mapstructure:"extensions"      validate:"min=1,dive,required"`
	Grammar        string   `mapstructure:"grammar"         validate:"omitempty,oneof=tsx javascript typescript"`
	LegacyMarkers  bool     `mapstructure:"legacy_markers"`
	SkipVendored   bool     `mapstructure:"skip_vendored"`
	SourcesContent bool     `mapstructure:"sources_content"`
	Workers        int      `mapstructure:"workers"         validate:"gte=0,lte=256"`

	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// CacheConfig controls the transform result cache.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MaxEntries int    `mapstructure:"max_entries" validate:"gte=0"`
	MaxSize    string `mapstructure:"max_size"`
}

// MaxBytes parses MaxSize.
func (c CacheConfig) MaxBytes() (int64, error) {
	return parseSize(c.MaxSize, ErrInvalidCacheSize)
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"          validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"  validate:"gte=0"`
	MaxBodySize  string        `mapstructure:"max_body_size"`
	Port         int           `mapstructure:"port"          validate:"gte=1,lte=65535"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxBodyBytes parses MaxBodySize.
func (s ServerConfig) MaxBodyBytes() (int64, error) {
	return parseSize(s.MaxBodySize, ErrInvalidBodySize)
}

// WatchConfig holds watch mode configuration.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	ServiceName     string        `mapstructure:"service_name"     validate:"required"`
	Environment     string        `mapstructure:"environment"`
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool          `mapstructure:"otlp_insecure"`
	SampleRatio     float64       `mapstructure:"sample_ratio"     validate:"gte=0,lte=1"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// New returns a viper instance with defaults and environment overrides
// registered. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return v
}

// LoadConfig loads configuration from the given file, or from the default
// search path when configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	return Load(New(), configPath)
}

// Load reads the config file into v and decodes the result.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := v.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := Validate(&cfg)
	if validateErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, validateErr)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", "")
	v.SetDefault("exclude", []string{})
	v.SetDefault("extensions", DefaultExtensions)
	v.SetDefault("grammar", "")
	v.SetDefault("legacy_markers", false)
	v.SetDefault("skip_vendored", false)
	v.SetDefault("sources_content", true)
	v.SetDefault("workers", 0)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_entries", defaultCacheEntries)
	v.SetDefault("cache.max_size", defaultCacheSize)

	v.SetDefault("server.host", defaultHost)
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_body_size", defaultMaxBodySize)

	v.SetDefault("watch.debounce", defaultDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("telemetry.service_name", defaultServiceName)
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.sample_ratio", defaultSampleRatio)
	v.SetDefault("telemetry.shutdown_timeout", defaultShutdownAfter)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the values they cannot express.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err != nil {
		return err
	}

	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
		}
	}

	if cfg.Cache.Enabled {
		_, err = cfg.Cache.MaxBytes()
		if err != nil {
			return err
		}
	}

	_, err = cfg.Server.MaxBodyBytes()

	return err
}

func parseSize(s string, sentinel error) (int64, error) {
	if s == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", sentinel, s)
	}

	if n > uint64(1<<62) { //nolint:mnd // keeps the value within int64
		return 0, fmt.Errorf("%w: %q too large", sentinel, s)
	}

	return int64(n), nil
}
