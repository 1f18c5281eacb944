// Package config provides configuration management for summarize using
// Viper. Unlike the teacher's YAML dashboard config, the on-disk format is
// JSON at ~/.summarize/config.json (spec's configuration contract), since
// that's the format specified for a single-user CLI/daemon tool; Viper's
// file-format switch plus the existing mapstructure-tagged struct decode
// path carry over unchanged.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jmylchreest/summarize/internal/modelid"
)

// Default configuration values.
const (
	defaultCacheMaxMB         = 512
	defaultCacheTTLDays       = 30
	defaultMediaMaxMB         = 2048
	defaultMediaTTLDays       = 7
	defaultMediaVerify        = "size"
	defaultDaemonPort         = 8787
	defaultSlidesWorkers      = 4
	defaultSlidesSamples      = 12
	defaultSceneThreshold     = 0.4
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"
	defaultDBDriver           = "sqlite"
	defaultDBMaxOpenConns     = 6
	defaultDBMaxIdleConns     = 3
	defaultDBConnMaxLifetime  = time.Hour
	defaultDBConnMaxIdleTime  = 10 * time.Minute
	defaultDBLogLevel         = "warn"
)

// Config holds all configuration for the summarize CLI and daemon.
type Config struct {
	// Model is the default model preset id ("provider/name" or an alias
	// like "auto"/"free") used when --model is not supplied.
	Model string `mapstructure:"model"`
	// Models holds user-defined and built-in alias presets, keyed by name
	// ("auto", "free", or a user's own label), registered into
	// modelid.Registry at startup.
	Models map[string]modelid.Preset `mapstructure:"models"`
	// Language is the default --language value ("" means auto-detect).
	Language string `mapstructure:"language"`

	Anthropic ProviderConfig `mapstructure:"anthropic"`
	OpenAI    OpenAIConfig   `mapstructure:"openai"`

	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Slides   SlidesConfig   `mapstructure:"slides"`
	Binaries BinariesConfig `mapstructure:"binaries"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig selects and tunes the GORM connection backing the metadata
// store (runs, transcript/content/summary caches, pricing). Driver is one of
// sqlite, postgres, mysql; DSN defaults to Config.CachePath() for sqlite when
// unset, so most users never set this section at all.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"`
	// LogLevel controls GORM's own query logging: silent, error, warn, info.
	LogLevel string `mapstructure:"logLevel"`
}

// ProviderConfig holds a provider's base-URL override, used for
// self-hosted or proxy-compatible endpoints.
type ProviderConfig struct {
	BaseURL string `mapstructure:"baseUrl"`
}

// OpenAIConfig extends ProviderConfig with OpenAI's wire-shape toggle: a
// custom base URL on an OpenAI-compatible provider forces the
// chat-completions shape instead of the default responses shape.
type OpenAIConfig struct {
	BaseURL            string `mapstructure:"baseUrl"`
	UseChatCompletions bool   `mapstructure:"useChatCompletions"`
}

// CacheConfig holds the metadata cache (transcripts/content/summaries) plus
// its nested Media config for the file-backed blob cache.
type CacheConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	MaxMB   int              `mapstructure:"maxMb"`
	TTLDays int              `mapstructure:"ttlDays"`
	Path    string           `mapstructure:"path"`
	Media   MediaCacheConfig `mapstructure:"media"`
}

// MediaCacheConfig configures the file-backed LRU+TTL media cache.
type MediaCacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	MaxMB   int    `mapstructure:"maxMb"`
	TTLDays int    `mapstructure:"ttlDays"`
	Path    string `mapstructure:"path"`
	// Verify is the integrity-check mode applied on cache hit: size, hash,
	// or none.
	Verify string `mapstructure:"verify"`
}

// DaemonConfig holds the long-running HTTP daemon's own settings; its
// runtime-assigned port/token/install-timestamp are persisted separately in
// ~/.summarize/daemon.json, not here.
type DaemonConfig struct {
	Port int `mapstructure:"port"`
}

// SlidesConfig configures the slide-extraction pipeline's defaults.
type SlidesConfig struct {
	Workers        int     `mapstructure:"workers"`
	Samples        int     `mapstructure:"samples"`
	SceneThreshold float64 `mapstructure:"sceneThreshold"`
	OCR            bool    `mapstructure:"ocr"`
	YtDlpFormat    string  `mapstructure:"ytdlpFormat"`
	ExtractStream  bool    `mapstructure:"extractStream"`
}

// BinariesConfig holds resolved (or explicitly configured) paths to the
// external tools the slides pipeline shells out to. Empty means
// auto-detect on PATH.
type BinariesConfig struct {
	FFmpeg    string `mapstructure:"ffmpeg"`
	FFprobe   string `mapstructure:"ffprobe"`
	YtDlp     string `mapstructure:"ytdlp"`
	Tesseract string `mapstructure:"tesseract"`
}

// LoggingConfig holds structured-logging configuration, carried over from
// the teacher unchanged since logging is an ambient concern the spec's
// non-goals don't touch.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	// AddSource includes the calling file/line in each log record.
	AddSource bool `mapstructure:"addSource"`
	// TimeFormat overrides the timestamp layout; empty keeps slog's default.
	TimeFormat string `mapstructure:"timeFormat"`
}

// DefaultPath returns ~/.summarize/config.json, the default config file
// location, falling back to "./.summarize/config.json" if the home
// directory can't be resolved.
func DefaultPath() string {
	return filepath.Join(summarizeDir(), "config.json")
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Env vars are prefixed with SUMMARIZE_ and use underscores for nesting
// (e.g. SUMMARIZE_CACHE_MAXMB=1024), with a handful of individually bound,
// unprefixed vars for provider base URLs and external tool paths
// (OPENAI_BASE_URL, FFMPEG_PATH, ...). Provider API keys are not bound here.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath == "" {
		configPath = DefaultPath()
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("SUMMARIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindIndividualEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
		// Missing config file is fine; defaults + env vars still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// bindIndividualEnvVars binds the explicitly-named, unprefixed environment
// variables (provider base URLs, the chat-completions toggle, external tool
// paths and a few slides settings) so they surface through
// the same Config/Viper instance as everything else, even though they
// don't follow the SUMMARIZE_ nesting convention.
func bindIndividualEnvVars(v *viper.Viper) {
	binds := map[string]string{
		"anthropic.baseUrl":        "ANTHROPIC_BASE_URL",
		"openai.baseUrl":           "OPENAI_BASE_URL",
		"openai.useChatCompletions": "OPENAI_USE_CHAT_COMPLETIONS",
		"binaries.ffmpeg":          "FFMPEG_PATH",
		"binaries.ffprobe":         "FFPROBE_PATH",
		"binaries.ytdlp":           "YT_DLP_PATH",
		"binaries.tesseract":       "TESSERACT_PATH",
		"slides.workers":           "SUMMARIZE_SLIDES_WORKERS",
		"slides.samples":           "SUMMARIZE_SLIDES_SAMPLES",
		"slides.ytdlpFormat":       "SUMMARIZE_SLIDES_YTDLP_FORMAT",
		"slides.extractStream":     "SUMMARIZE_SLIDES_EXTRACT_STREAM",
	}
	for key, env := range binds {
		_ = v.BindEnv(key, env)
	}
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.maxMb", defaultCacheMaxMB)
	v.SetDefault("cache.ttlDays", defaultCacheTTLDays)
	v.SetDefault("cache.media.enabled", true)
	v.SetDefault("cache.media.maxMb", defaultMediaMaxMB)
	v.SetDefault("cache.media.ttlDays", defaultMediaTTLDays)
	v.SetDefault("cache.media.verify", defaultMediaVerify)

	// Database defaults; dsn is left empty here and resolved to
	// Config.CachePath() at use time, since it depends on the home directory.
	v.SetDefault("database.driver", defaultDBDriver)
	v.SetDefault("database.maxOpenConns", defaultDBMaxOpenConns)
	v.SetDefault("database.maxIdleConns", defaultDBMaxIdleConns)
	v.SetDefault("database.connMaxLifetime", defaultDBConnMaxLifetime)
	v.SetDefault("database.connMaxIdleTime", defaultDBConnMaxIdleTime)
	v.SetDefault("database.logLevel", defaultDBLogLevel)

	// Daemon defaults
	v.SetDefault("daemon.port", defaultDaemonPort)

	// Slides defaults
	v.SetDefault("slides.workers", defaultSlidesWorkers)
	v.SetDefault("slides.samples", defaultSlidesSamples)
	v.SetDefault("slides.sceneThreshold", defaultSceneThreshold)
	v.SetDefault("slides.ocr", false)

	// Logging defaults
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.format", defaultLogFormat)

	// Built-in model alias presets; "free"'s candidates start empty until
	// `refresh-free` populates rules[0].candidates.
	v.SetDefault("models", map[string]any{
		"auto": map[string]any{
			"mode": "auto",
			"rules": []map[string]any{
				{"candidates": []string{"anthropic/claude-3-5-sonnet-latest", "openai/gpt-5"}},
			},
		},
		"free": map[string]any{
			"mode": "auto",
			"rules": []map[string]any{
				{"candidates": []string{}},
			},
		},
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validVerify := map[string]bool{"size": true, "hash": true, "none": true}
	if !validVerify[c.Cache.Media.Verify] {
		return fmt.Errorf("cache.media.verify must be one of: size, hash, none")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	const maxPort = 65535
	if c.Daemon.Port < 1 || c.Daemon.Port > maxPort {
		return fmt.Errorf("daemon.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	validDBLogLevels := map[string]bool{"silent": true, "error": true, "warn": true, "info": true}
	if !validDBLogLevels[c.Database.LogLevel] {
		return fmt.Errorf("database.logLevel must be one of: silent, error, warn, info")
	}

	return nil
}

// DatabaseConfig resolves the database section into a ready-to-use
// config.DatabaseConfig, substituting CachePath() as the sqlite DSN when the
// user hasn't set one explicitly.
func (c *Config) DatabaseConfig() DatabaseConfig {
	dbCfg := c.Database
	if dbCfg.DSN == "" && dbCfg.Driver == "sqlite" {
		dbCfg.DSN = c.CachePath()
	}
	return dbCfg
}

// CachePath returns the metadata cache database path, defaulting to
// ~/.summarize/cache.sqlite when Cache.Path is unset.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(summarizeDir(), "cache.sqlite")
}

// MediaCachePath returns the media cache's root directory, defaulting to
// ~/.summarize/cache/media when Cache.Media.Path is unset.
func (c *Config) MediaCachePath() string {
	if c.Cache.Media.Path != "" {
		return c.Cache.Media.Path
	}
	return filepath.Join(summarizeDir(), "cache", "media")
}

// DaemonStatePath returns ~/.summarize/daemon.json, where the daemon
// persists its runtime-assigned port, bearer token, and install timestamp.
func DaemonStatePath() string {
	return filepath.Join(summarizeDir(), "daemon.json")
}

func summarizeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".summarize")
}
