// Package config loads and validates imgcrawl configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Server   ServerConfig   `mapstructure:"server"`
	Report   ReportConfig   `mapstructure:"report"`
	BgRemove BgRemoveConfig `mapstructure:"bgremove"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlerConfig governs one crawl session.
type CrawlerConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	OutputDir     string        `mapstructure:"output_dir"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MaxDepth      int           `mapstructure:"max_depth"`
	Concurrency   int           `mapstructure:"concurrency"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	UserAgent     string        `mapstructure:"user_agent"`
	HostRPS       float64       `mapstructure:"host_rps"`
}

// HTTPConfig configures outbound HTTP client behavior.
type HTTPConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// ServerConfig controls the optional status endpoint exposed while a
// crawl is running.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ReportConfig toggles the end-of-session markdown report.
type ReportConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BgRemoveConfig points at the external background-removal service and
// the directories the batch runner operates on.
type BgRemoveConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`
	Recursive bool   `mapstructure:"recursive"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DefaultUserAgent impersonates a desktop browser; some image CDNs
// refuse requests from obvious bot agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMGCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Required keys get an empty default so AutomaticEnv can surface
	// them through Unmarshal on env-only runs.
	v.SetDefault("crawler.base_url", "")
	v.SetDefault("bgremove.endpoint", "")
	v.SetDefault("crawler.output_dir", "downloaded_images")
	v.SetDefault("crawler.min_delay", "1s")
	v.SetDefault("crawler.max_delay", "3s")
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.user_agent", DefaultUserAgent)
	v.SetDefault("crawler.host_rps", 2.0)
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.insecure_skip_verify", false)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("report.enabled", true)
	v.SetDefault("bgremove.input_dir", "downloaded_images")
	v.SetDefault("bgremove.output_dir", "background_removed")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Invalid
// configuration fails the process before any crawling begins.
func (c Config) Validate() error {
	if c.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url is required")
	}
	u, err := url.Parse(c.Crawler.BaseURL)
	if err != nil {
		return fmt.Errorf("crawler.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("crawler.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("crawler.base_url has no host")
	}
	if c.Crawler.OutputDir == "" {
		return fmt.Errorf("crawler.output_dir is required")
	}
	if c.Crawler.MinDelay < 0 {
		return fmt.Errorf("crawler.min_delay must be >= 0")
	}
	if c.Crawler.MaxDelay < c.Crawler.MinDelay {
		return fmt.Errorf("crawler.max_delay must be >= crawler.min_delay")
	}
	if c.Crawler.MaxRetries < 1 {
		return fmt.Errorf("crawler.max_retries must be >= 1")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.Concurrency < 1 {
		return fmt.Errorf("crawler.concurrency must be >= 1")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}
