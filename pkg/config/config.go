package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the LinkedIn scraper
type Config struct {
	// LinkedIn account and request identity
	LinkedIn LinkedInConfig `yaml:"linkedin" json:"linkedin"`

	// Browser automation settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Scraper behavior
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Error log settings
	ErrorLog ErrorLogConfig `yaml:"error_log" json:"error_log"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LinkedInConfig holds LinkedIn-specific configuration
type LinkedInConfig struct {
	Email     string `yaml:"email" json:"email"`
	Password  string `yaml:"password" json:"password"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// BrowserConfig holds headless-browser configuration
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ChromePath        string        `yaml:"chrome_path" json:"chrome_path"`
	CookieFile        string        `yaml:"cookie_file" json:"cookie_file"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ChallengeTimeout  time.Duration `yaml:"challenge_timeout" json:"challenge_timeout"`
	DebugScreenshots  bool          `yaml:"debug_screenshots" json:"debug_screenshots"`
	ScreenshotDir     string        `yaml:"screenshot_dir" json:"screenshot_dir"`
}

// ScraperConfig holds scraper behavior configuration
type ScraperConfig struct {
	MaxProfilesPerRun int           `yaml:"max_profiles_per_run" json:"max_profiles_per_run"`
	MaxNavRetries     int           `yaml:"max_nav_retries" json:"max_nav_retries"`
	PageSettleDelay   time.Duration `yaml:"page_settle_delay" json:"page_settle_delay"`
	BatchWorkers      int           `yaml:"batch_workers" json:"batch_workers"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int     `yaml:"requests_per_minute" json:"requests_per_minute"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier"`
}

// ErrorLogConfig holds rotating error-log configuration
type ErrorLogConfig struct {
	Dir            string `yaml:"dir" json:"dir"`
	MaxSizeBytes   int64  `yaml:"max_size_bytes" json:"max_size_bytes"`
	MaxGenerations int    `yaml:"max_generations" json:"max_generations"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LinkedIn: LinkedInConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		},
		Browser: BrowserConfig{
			Headless:          true,
			CookieFile:        defaultCookiePath(),
			NavigationTimeout: 30 * time.Second,
			ChallengeTimeout:  3 * time.Minute,
			DebugScreenshots:  false,
			ScreenshotDir:     "./screenshots",
		},
		Scraper: ScraperConfig{
			MaxProfilesPerRun: 25,
			MaxNavRetries:     3,
			PageSettleDelay:   2 * time.Second,
			BatchWorkers:      2,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 10,
			BackoffMultiplier: 2.0,
		},
		ErrorLog: ErrorLogConfig{
			Dir:            "./logs",
			MaxSizeBytes:   5 * 1024 * 1024,
			MaxGenerations: 5,
		},
		Output: OutputConfig{
			BaseDirectory:     "./profiles",
			OverwriteExisting: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

func defaultCookiePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".liscraper-cookies.json"
	}
	return filepath.Join(home, ".config", "liscraper", "cookies.json")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if email := os.Getenv("LISCRAPER_EMAIL"); email != "" {
		c.LinkedIn.Email = email
	}
	if password := os.Getenv("LISCRAPER_PASSWORD"); password != "" {
		c.LinkedIn.Password = password
	}
	if userAgent := os.Getenv("LISCRAPER_USER_AGENT"); userAgent != "" {
		c.LinkedIn.UserAgent = userAgent
	}

	if headless := os.Getenv("LISCRAPER_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}
	if cookieFile := os.Getenv("LISCRAPER_COOKIE_FILE"); cookieFile != "" {
		c.Browser.CookieFile = cookieFile
	}
	if chromePath := os.Getenv("LISCRAPER_CHROME_PATH"); chromePath != "" {
		c.Browser.ChromePath = chromePath
	}

	if maxProfiles := os.Getenv("LISCRAPER_MAX_PROFILES"); maxProfiles != "" {
		var val int
		fmt.Sscanf(maxProfiles, "%d", &val)
		if val > 0 {
			c.Scraper.MaxProfilesPerRun = val
		}
	}

	if rpm := os.Getenv("LISCRAPER_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if outputDir := os.Getenv("LISCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if logLevel := os.Getenv("LISCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".liscraper.yaml",
		".liscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "liscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "liscraper", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".liscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.CookieFile == "" {
		errs = append(errs, errors.New("cookie file path is required"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}

	if c.Scraper.MaxProfilesPerRun <= 0 {
		errs = append(errs, errors.New("max profiles per run must be positive"))
	}
	if c.Scraper.MaxNavRetries < 0 {
		errs = append(errs, errors.New("max navigation retries cannot be negative"))
	}
	if c.Scraper.BatchWorkers <= 0 {
		errs = append(errs, errors.New("batch workers must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.ErrorLog.MaxSizeBytes <= 0 {
		errs = append(errs, errors.New("error log size cap must be positive"))
	}
	if c.ErrorLog.MaxGenerations <= 0 {
		errs = append(errs, errors.New("error log generations must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600 because the file may carry credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if email, ok := flags["email"].(string); ok && email != "" {
		c.LinkedIn.Email = email
	}
	if password, ok := flags["password"].(string); ok && password != "" {
		c.LinkedIn.Password = password
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if cookieFile, ok := flags["cookie-file"].(string); ok && cookieFile != "" {
		c.Browser.CookieFile = cookieFile
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if maxProfiles, ok := flags["max-profiles"].(int); ok && maxProfiles > 0 {
		c.Scraper.MaxProfilesPerRun = maxProfiles
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries >= 0 {
		c.Scraper.MaxNavRetries = maxRetries
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".liscraper.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
