// Package config loads iw_parser configuration from a YAML file and
// IWPARSER_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"iw_parser/internal/locale"
	"iw_parser/internal/logging"
	"iw_parser/internal/patterns"
	"iw_parser/internal/storage"
)

const (
	envPrefix         = "IWPARSER_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config is the complete runtime configuration.
type Config struct {
	Locale  locale.Config  `koanf:"locale"`
	Match   MatchConfig    `koanf:"match"`
	Log     logging.Config `koanf:"log"`
	Storage storage.Config `koanf:"storage"`
	NATS    NATSConfig     `koanf:"nats"`
	API     APIConfig      `koanf:"api"`
}

// MatchConfig bounds regex evaluation.
type MatchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// NATSConfig configures the ingest service.
type NATSConfig struct {
	URL           string `koanf:"url"`
	Subject       string `koanf:"subject"`
	Queue         string `koanf:"queue"`
	ResultSubject string `koanf:"result_subject"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Addr   string `koanf:"addr"`
	APIKey string `koanf:"api_key"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Locale:  locale.DefaultConfig(),
		Match:   MatchConfig{Timeout: patterns.DefaultMatchTimeout},
		Log:     logging.DefaultConfig(),
		Storage: storage.DefaultConfig(),
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Subject:       "screens.parse",
			Queue:         "iw_parser",
			ResultSubject: "screens.parsed",
		},
		API: APIConfig{Addr: ":8080"},
	}
}

// Load reads path (skipped when empty) and then applies IWPARSER_*
// environment overrides.
//
// Environment variables map onto keys by lowercasing and splitting on
// the first underscore after the prefix:
//
//	IWPARSER_MATCH_TIMEOUT       -> match.timeout
//	IWPARSER_STORAGE_SQLITE_PATH -> storage.sqlite_path
//	IWPARSER_LOCALE_TIMEZONE     -> locale.timezone
//
// IWPARSER_LOCALE_THOUSAND_SEPARATORS lists one separator per character.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}
		content, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return LoadBytes(content)
}

// LoadBytes is Load for YAML already in memory.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps IWPARSER_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// envValue maps the variable name with envKey. The separator list is
// given as one string with a character per separator.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if key == "locale.thousand_separators" {
		seps := make([]string, 0, len(value))
		for _, r := range value {
			seps = append(seps, string(r))
		}
		return key, seps
	}
	return key, value
}

// applyDefaults fills every unset field from Default. Lists are replaced
// as a whole, never merged element by element.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Locale.ThousandSeparators == nil {
		cfg.Locale.ThousandSeparators = def.Locale.ThousandSeparators
	}
	if cfg.Locale.Timezone == "" {
		cfg.Locale.Timezone = def.Locale.Timezone
	}
	if cfg.Match.Timeout == 0 {
		cfg.Match.Timeout = def.Match.Timeout
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}

	s, d := &cfg.Storage, def.Storage
	if s.SQLitePath == "" {
		s.SQLitePath = d.SQLitePath
	}
	if s.PostgresDSN == "" {
		s.PostgresDSN = d.PostgresDSN
	}
	if s.ClickHouseAddr == "" {
		s.ClickHouseAddr = d.ClickHouseAddr
	}
	if s.ClickHouseDatabase == "" {
		s.ClickHouseDatabase = d.ClickHouseDatabase
	}
	if s.ClickHouseUser == "" {
		s.ClickHouseUser = d.ClickHouseUser
	}

	n, dn := &cfg.NATS, def.NATS
	if n.URL == "" {
		n.URL = dn.URL
	}
	if n.Subject == "" {
		n.Subject = dn.Subject
	}
	if n.Queue == "" {
		n.Queue = dn.Queue
	}
	if n.ResultSubject == "" {
		n.ResultSubject = dn.ResultSubject
	}

	if cfg.API.Addr == "" {
		cfg.API.Addr = def.API.Addr
	}
}

// Validate checks the values that cannot be caught later with a clear
// message.
func (c *Config) Validate() error {
	if c.Match.Timeout < 0 {
		return fmt.Errorf("match.timeout must not be negative, got %s", c.Match.Timeout)
	}
	if _, err := locale.New(c.Locale); err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch c.Storage.Driver {
	case "", "sqlite", "postgres", "clickhouse":
	default:
		return fmt.Errorf("storage.driver %q: want sqlite, postgres or clickhouse", c.Storage.Driver)
	}
	return nil
}

// Library builds the locale and fragment library described by c.
func (c *Config) Library() (*patterns.Library, error) {
	loc, err := locale.New(c.Locale)
	if err != nil {
		return nil, err
	}
	return patterns.NewLibrary(loc, patterns.WithMatchTimeout(c.Match.Timeout)), nil
}
