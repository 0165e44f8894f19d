package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "kaextract"

type Config struct {
	Client     ClientConfig     `mapstructure:"client"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Server     ServerConfig     `mapstructure:"server"`
	Network    NetworkConfig    `mapstructure:"network"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ClientConfig struct {
	Backend          string `mapstructure:"backend"`
	APIURL           string `mapstructure:"api_url"`
	DebounceMS       int    `mapstructure:"debounce_ms"`
	FetchTimeoutMS   int    `mapstructure:"fetch_timeout_ms"`
	OverallTimeoutMS int    `mapstructure:"overall_timeout_ms"`
	MaxRetries       int    `mapstructure:"max_retries"`
	RetryDelayMS     int    `mapstructure:"retry_delay_ms"`
	DemoDelayMS      int    `mapstructure:"demo_delay_ms"`
	CheckOnline      bool   `mapstructure:"check_online"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	MaxSize       int    `mapstructure:"max_size"`
	ExpiryMinutes int    `mapstructure:"expiry_minutes"`
	QuotaBytes    int    `mapstructure:"quota_bytes"`
}

type ServerConfig struct {
	Addr              string `mapstructure:"addr"`
	ResponseTimeoutMS int    `mapstructure:"response_timeout_ms"`
	UpstreamRetries   int    `mapstructure:"upstream_retries"`
	ShutdownTimeoutMS int    `mapstructure:"shutdown_timeout_ms"`
}

type NetworkConfig struct {
	Timeout         int    `mapstructure:"timeout"`
	UserAgent       string `mapstructure:"user_agent"`
	BrowserAgent    string `mapstructure:"browser_agent"`
	FollowRedirects bool   `mapstructure:"follow_redirects"`
	MaxRedirects    int    `mapstructure:"max_redirects"`
	CookieBrowser   string `mapstructure:"cookie_browser"`
}

type ExtractionConfig struct {
	FetchMode           string `mapstructure:"fetch_mode"`
	JSTimeout           int    `mapstructure:"js_timeout"`
	WaitForSelector     string `mapstructure:"wait_for_selector"`
	ReadabilityFallback bool   `mapstructure:"readability_fallback"`
	MaxDescription      int    `mapstructure:"max_description"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Backend:          "api",
			APIURL:           "http://localhost:3000",
			DebounceMS:       300,
			FetchTimeoutMS:   10000,
			OverallTimeoutMS: 30000,
			MaxRetries:       3,
			RetryDelayMS:     1000,
			DemoDelayMS:      1000,
			CheckOnline:      true,
		},
		Cache: CacheConfig{
			Backend:       "file",
			Path:          "",
			MaxSize:       50,
			ExpiryMinutes: 60,
			QuotaBytes:    5 << 20,
		},
		Server: ServerConfig{
			Addr:              ":3000",
			ResponseTimeoutMS: 25000,
			UpstreamRetries:   2,
			ShutdownTimeoutMS: 5000,
		},
		Network: NetworkConfig{
			Timeout:         15,
			UserAgent:       "",
			BrowserAgent:    "auto",
			FollowRedirects: true,
			MaxRedirects:    10,
			CookieBrowser:   "none",
		},
		Extraction: ExtractionConfig{
			FetchMode:           "static",
			JSTimeout:           15,
			WaitForSelector:     "",
			ReadabilityFallback: true,
			MaxDescription:      2000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c ClientConfig) Debounce() time.Duration       { return ms(c.DebounceMS) }
func (c ClientConfig) FetchTimeout() time.Duration   { return ms(c.FetchTimeoutMS) }
func (c ClientConfig) OverallTimeout() time.Duration { return ms(c.OverallTimeoutMS) }
func (c ClientConfig) RetryDelay() time.Duration     { return ms(c.RetryDelayMS) }
func (c ClientConfig) DemoDelay() time.Duration      { return ms(c.DemoDelayMS) }

func (c CacheConfig) Expiry() time.Duration { return time.Duration(c.ExpiryMinutes) * time.Minute }

func (s ServerConfig) ResponseTimeout() time.Duration { return ms(s.ResponseTimeoutMS) }
func (s ServerConfig) ShutdownTimeout() time.Duration { return ms(s.ShutdownTimeoutMS) }

func (n NetworkConfig) RequestTimeout() time.Duration {
	return time.Duration(n.Timeout) * time.Second
}

func (e ExtractionConfig) JSWait() time.Duration {
	return time.Duration(e.JSTimeout) * time.Second
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Validate rejects settings the orchestrator and cache cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Client.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("client.max_retries must be >= 1, got %d", c.Client.MaxRetries))
	}
	if c.Client.FetchTimeoutMS <= 0 || c.Client.OverallTimeoutMS <= 0 {
		errs = append(errs, errors.New("client timeouts must be positive"))
	}
	if c.Cache.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("cache.max_size must be >= 1, got %d", c.Cache.MaxSize))
	}
	if c.Cache.ExpiryMinutes <= 0 {
		errs = append(errs, errors.New("cache.expiry_minutes must be positive"))
	}
	switch c.Client.Backend {
	case "api", "local":
	default:
		errs = append(errs, fmt.Errorf("client.backend must be api or local, got %q", c.Client.Backend))
	}
	switch c.Cache.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be file, sqlite or memory, got %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}

// Dir returns the XDG config directory of the application.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error finding home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName), nil
}

// CacheDir is where the file and sqlite cache backends live unless
// cache.path is set.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("error finding cache directory: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

func Load(configFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		configDir, err := Dir()
		if err != nil {
			return cfg, err
		}
		v.AddConfigPath(configDir)
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("KAEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can override values
// that are absent from the file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]any{
		"client.backend":                  cfg.Client.Backend,
		"client.api_url":                  cfg.Client.APIURL,
		"client.debounce_ms":              cfg.Client.DebounceMS,
		"client.fetch_timeout_ms":         cfg.Client.FetchTimeoutMS,
		"client.overall_timeout_ms":       cfg.Client.OverallTimeoutMS,
		"client.max_retries":              cfg.Client.MaxRetries,
		"client.retry_delay_ms":           cfg.Client.RetryDelayMS,
		"client.demo_delay_ms":            cfg.Client.DemoDelayMS,
		"client.check_online":             cfg.Client.CheckOnline,
		"cache.backend":                   cfg.Cache.Backend,
		"cache.path":                      cfg.Cache.Path,
		"cache.max_size":                  cfg.Cache.MaxSize,
		"cache.expiry_minutes":            cfg.Cache.ExpiryMinutes,
		"cache.quota_bytes":               cfg.Cache.QuotaBytes,
		"server.addr":                     cfg.Server.Addr,
		"server.response_timeout_ms":      cfg.Server.ResponseTimeoutMS,
		"server.upstream_retries":         cfg.Server.UpstreamRetries,
		"server.shutdown_timeout_ms":      cfg.Server.ShutdownTimeoutMS,
		"network.timeout":                 cfg.Network.Timeout,
		"network.user_agent":              cfg.Network.UserAgent,
		"network.browser_agent":           cfg.Network.BrowserAgent,
		"network.follow_redirects":        cfg.Network.FollowRedirects,
		"network.max_redirects":           cfg.Network.MaxRedirects,
		"network.cookie_browser":          cfg.Network.CookieBrowser,
		"extraction.fetch_mode":           cfg.Extraction.FetchMode,
		"extraction.js_timeout":           cfg.Extraction.JSTimeout,
		"extraction.wait_for_selector":    cfg.Extraction.WaitForSelector,
		"extraction.readability_fallback": cfg.Extraction.ReadabilityFallback,
		"extraction.max_description":      cfg.Extraction.MaxDescription,
		"logging.level":                   cfg.Logging.Level,
		"logging.format":                  cfg.Logging.Format,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	exampleContent := `# kaextract configuration file

[client]
backend = "api"                     # api (talk to kaextract serve) or local (in-process)
api_url = "http://localhost:3000"
debounce_ms = 300
fetch_timeout_ms = 10000            # per attempt
overall_timeout_ms = 30000          # whole request including retries
max_retries = 3                     # attempts in total
retry_delay_ms = 1000               # base of the exponential backoff
demo_delay_ms = 1000
check_online = true

[cache]
backend = "file"                    # file, sqlite, memory
path = ""                           # empty = user cache dir
max_size = 50
expiry_minutes = 60
quota_bytes = 5242880

[server]
addr = ":3000"
response_timeout_ms = 25000
upstream_retries = 2
shutdown_timeout_ms = 5000

[network]
timeout = 15                        # seconds per upstream request
user_agent = ""                     # Custom user agent (empty = browser-like)
browser_agent = "auto"              # auto, chrome, firefox, safari
follow_redirects = true
max_redirects = 10
cookie_browser = "none"             # none, auto, chrome, firefox, safari

[extraction]
fetch_mode = "static"               # static, javascript, auto
js_timeout = 15                     # seconds to wait for JS rendering
wait_for_selector = ""              # empty = listing title
readability_fallback = true
max_description = 2000

[logging]
level = "info"                      # debug, info, warn, error
format = "text"                     # text, json
`

	return os.WriteFile(configPath, []byte(exampleContent), 0644)
}
