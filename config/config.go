package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/imgscout/scrapers"
	"github.com/imgscout/thumbs"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "IMGSCOUT"

// Config holds all application configuration
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Thumbs  ThumbsConfig  `mapstructure:"thumbs"`
	Server  ServerConfig  `mapstructure:"server"`
	Update  UpdateConfig  `mapstructure:"update"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScraperConfig holds browser and search settings
type ScraperConfig struct {
	SearchURL    string        `mapstructure:"search_url"`
	Headless     bool          `mapstructure:"headless"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SettleBudget time.Duration `mapstructure:"settle_budget"`
	ScrollBudget time.Duration `mapstructure:"scroll_budget"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxSessions  int           `mapstructure:"max_sessions"`
}

// CatalogConfig holds the product database location
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ThumbsConfig holds image download settings
type ThumbsConfig struct {
	CachePath string        `mapstructure:"cache_path"` // empty keeps the cache in memory
	Timeout   time.Duration `mapstructure:"timeout"`
	Size      int           `mapstructure:"size"`
}

// ServerConfig holds gRPC settings
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// UpdateConfig holds self-update settings
type UpdateConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Owner    string        `mapstructure:"owner"`
	Repo     string        `mapstructure:"repo"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // empty logs to stderr
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	sc := scrapers.DefaultScraperConfig()
	fc := thumbs.DefaultFetcherConfig()
	dataDir := defaultDataPath()

	return &Config{
		Scraper: ScraperConfig{
			SearchURL:    sc.SearchURL,
			Headless:     sc.Headless,
			Timeout:      sc.Timeout,
			SettleBudget: sc.SettleBudget,
			ScrollBudget: sc.ScrollBudget,
			PollInterval: sc.PollInterval,
			MaxSessions:  sc.MaxSessions,
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(dataDir, "products.db"),
		},
		Thumbs: ThumbsConfig{
			CachePath: filepath.Join(dataDir, "thumbs.db"),
			Timeout:   fc.Timeout,
			Size:      thumbs.DefaultSize,
		},
		Server: ServerConfig{
			Port: "50051",
		},
		Update: UpdateConfig{
			Enabled:  false,
			Interval: time.Hour,
			Owner:    "imgscout",
			Repo:     "imgscout",
		},
		Logging: LoggingConfig{
			File:  filepath.Join(dataDir, "imgscout.log"),
			Level: "info",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "imgscout")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "imgscout")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "imgscout")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "imgscout")
	}
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"headless":    "scraper.headless",
	"search-url":  "scraper.search_url",
	"timeout":     "scraper.timeout",
	"db":          "catalog.path",
	"port":        "server.port",
	"auto-update": "update.enabled",
	"log-level":   "logging.level",
	"log-file":    "logging.file",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("config", "", "config file (default: config.yaml in the config directory or .)")
	fs.Bool("headless", d.Scraper.Headless, "run the browser in headless mode")
	fs.String("search-url", d.Scraper.SearchURL, "image search URL template, %s receives the query")
	fs.Duration("timeout", d.Scraper.Timeout, "upper bound for one search")
	fs.String("db", d.Catalog.Path, "catalog database file")
	fs.String("port", d.Server.Port, "gRPC server port")
	fs.Bool("auto-update", d.Update.Enabled, "check for new releases periodically")
	fs.String("log-level", d.Logging.Level, "log level: debug, info, warn, error")
	fs.String("log-file", d.Logging.File, "log file, empty for stderr")
}

// Load reads defaults, then the config file, then IMGSCOUT_* variables, then flags.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	configFile := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scraper.search_url", d.Scraper.SearchURL)
	v.SetDefault("scraper.headless", d.Scraper.Headless)
	v.SetDefault("scraper.timeout", d.Scraper.Timeout)
	v.SetDefault("scraper.settle_budget", d.Scraper.SettleBudget)
	v.SetDefault("scraper.scroll_budget", d.Scraper.ScrollBudget)
	v.SetDefault("scraper.poll_interval", d.Scraper.PollInterval)
	v.SetDefault("scraper.max_sessions", d.Scraper.MaxSessions)

	v.SetDefault("catalog.path", d.Catalog.Path)

	v.SetDefault("thumbs.cache_path", d.Thumbs.CachePath)
	v.SetDefault("thumbs.timeout", d.Thumbs.Timeout)
	v.SetDefault("thumbs.size", d.Thumbs.Size)

	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("update.enabled", d.Update.Enabled)
	v.SetDefault("update.interval", d.Update.Interval)
	v.SetDefault("update.owner", d.Update.Owner)
	v.SetDefault("update.repo", d.Update.Repo)

	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.level", d.Logging.Level)
}

// ScraperOptions converts the scraper section for the scrapers package.
func (c *Config) ScraperOptions() *scrapers.ScraperConfig {
	return &scrapers.ScraperConfig{
		SearchURL:    c.Scraper.SearchURL,
		Headless:     c.Scraper.Headless,
		Timeout:      c.Scraper.Timeout,
		SettleBudget: c.Scraper.SettleBudget,
		ScrollBudget: c.Scraper.ScrollBudget,
		PollInterval: c.Scraper.PollInterval,
		MaxSessions:  c.Scraper.MaxSessions,
	}
}

// FetcherOptions converts the thumbs section for the thumbs package.
func (c *Config) FetcherOptions() *thumbs.FetcherConfig {
	fc := thumbs.DefaultFetcherConfig()
	fc.Timeout = c.Thumbs.Timeout
	return fc
}

// Validate reports settings that would make the program misbehave.
func (c *Config) Validate() error {
	if strings.Count(c.Scraper.SearchURL, "%s") != 1 {
		return fmt.Errorf("scraper.search_url must contain exactly one %%s: %q", c.Scraper.SearchURL)
	}
	if c.Scraper.MaxSessions < 1 {
		return fmt.Errorf("scraper.max_sessions must be at least 1, got %d", c.Scraper.MaxSessions)
	}
	if c.Catalog.Path == "" {
		return errors.New("catalog.path must be set")
	}
	return nil
}
