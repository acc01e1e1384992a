package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for both pipelines
type Config struct {
	// Fact scraper settings
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`

	// Image fetcher settings
	Images ImagesConfig `yaml:"images" json:"images"`

	// Image search provider settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Run metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScraperConfig holds the fact scraper configuration
type ScraperConfig struct {
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	ListingPath      string        `yaml:"listing_path" json:"listing_path"`
	ItemClassPattern string        `yaml:"item_class_pattern" json:"item_class_pattern"`
	TypeLabel        string        `yaml:"type_label" json:"type_label"`
	FeatureLabel     string        `yaml:"feature_label" json:"feature_label"`
	OutputFile       string        `yaml:"output_file" json:"output_file"`
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"request_timeout"`
	UserAgent        string        `yaml:"user_agent" json:"user_agent"`
}

// ImagesConfig holds the image fetcher configuration
type ImagesConfig struct {
	InputFile       string        `yaml:"input_file" json:"input_file"`
	OutputDirectory string        `yaml:"output_directory" json:"output_directory"`
	QuerySuffix     string        `yaml:"query_suffix" json:"query_suffix"`
	Size            int           `yaml:"size" json:"size"`
	Format          string        `yaml:"format" json:"format"`
	JPEGQuality     int           `yaml:"jpeg_quality" json:"jpeg_quality"`
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RetryBackoff    string        `yaml:"retry_backoff" json:"retry_backoff"`
	MinWidth        int           `yaml:"min_width" json:"min_width"`
	MinHeight       int           `yaml:"min_height" json:"min_height"`
	AspectTolerance float64       `yaml:"aspect_tolerance" json:"aspect_tolerance"`
	SkipExisting    bool          `yaml:"skip_existing" json:"skip_existing"`
}

// SearchConfig holds image search provider configuration
type SearchConfig struct {
	Endpoint          string        `yaml:"endpoint" json:"endpoint"`
	APIKey            string        `yaml:"api_key" json:"api_key"`
	EngineID          string        `yaml:"engine_id" json:"engine_id"`
	SafeSearch        bool          `yaml:"safe_search" json:"safe_search"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// Textfile is a Prometheus textfile-collector path written at the end of a run.
	// Empty disables the export.
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the compiled-in defaults
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:          "https://a-z-animals.com",
			ListingPath:      "/animals/",
			ItemClassPattern: "az-phobia",
			TypeLabel:        "Class",
			FeatureLabel:     "Feature",
			OutputFile:       "animal_datas.json",
			RequestTimeout:   30 * time.Second,
			UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Images: ImagesConfig{
			InputFile:       "animal_datas.json",
			OutputDirectory: "image_resources",
			QuerySuffix:     "animal -toy -taxidermy -art -artwork -illustration -jewelry",
			Size:            256,
			Format:          "jpeg",
			JPEGQuality:     90,
			MaxAttempts:     3,
			RetryDelay:      time.Second,
			RetryBackoff:    "exponential",
			MinWidth:        400,
			MinHeight:       300,
			AspectTolerance: 0.1,
			SkipExisting:    false,
		},
		Search: SearchConfig{
			Endpoint:          "https://www.googleapis.com/customsearch/v1",
			SafeSearch:        true,
			RequestsPerMinute: 60,
			Timeout:           30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ANIMALFACTS_BASE_URL"); v != "" {
		c.Scraper.BaseURL = v
	}
	if v := os.Getenv("ANIMALFACTS_OUTPUT_FILE"); v != "" {
		c.Scraper.OutputFile = v
		c.Images.InputFile = v
	}
	if v := os.Getenv("ANIMALFACTS_IMAGE_DIR"); v != "" {
		c.Images.OutputDirectory = v
	}
	if v := os.Getenv("ANIMALFACTS_SEARCH_API_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv("ANIMALFACTS_SEARCH_ENGINE_ID"); v != "" {
		c.Search.EngineID = v
	}
	if v := os.Getenv("ANIMALFACTS_SEARCH_ENDPOINT"); v != "" {
		c.Search.Endpoint = v
	}
	if v := os.Getenv("ANIMALFACTS_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ANIMALFACTS_MAX_ATTEMPTS: %w", err)
		}
		c.Images.MaxAttempts = n
	}
	if v := os.Getenv("ANIMALFACTS_METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}
	if v := os.Getenv("ANIMALFACTS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
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
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".animalfacts.yaml",
		".animalfacts.yml",
		filepath.Join(home, ".config", "animalfacts", "config.yaml"),
		filepath.Join(home, ".config", "animalfacts", "config.yml"),
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

	if u, err := url.Parse(c.Scraper.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("scraper base URL must be an absolute URL"))
	}
	if _, err := regexp.Compile(c.Scraper.ItemClassPattern); err != nil || c.Scraper.ItemClassPattern == "" {
		errs = append(errs, errors.New("item class pattern must be a valid, non-empty regexp"))
	}
	if c.Scraper.TypeLabel == "" || c.Scraper.FeatureLabel == "" {
		errs = append(errs, errors.New("type and feature labels are required"))
	}
	if c.Scraper.OutputFile == "" {
		errs = append(errs, errors.New("scraper output file is required"))
	}
	if c.Scraper.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Images.InputFile == "" {
		errs = append(errs, errors.New("images input file is required"))
	}
	if c.Images.OutputDirectory == "" {
		errs = append(errs, errors.New("images output directory is required"))
	}
	if c.Images.Size <= 0 {
		errs = append(errs, errors.New("image size must be positive"))
	}
	validFormats := map[string]bool{"jpeg": true, "png": true, "source": true}
	if !validFormats[strings.ToLower(c.Images.Format)] {
		errs = append(errs, errors.New("image format must be one of jpeg, png, source"))
	}
	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		errs = append(errs, errors.New("jpeg quality must be between 1 and 100"))
	}
	if c.Images.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Images.MaxAttempts > 10 {
		errs = append(errs, errors.New("max attempts should not exceed 10"))
	}
	if c.Images.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	validBackoffs := map[string]bool{"constant": true, "linear": true, "exponential": true}
	if !validBackoffs[c.Images.RetryBackoff] {
		errs = append(errs, errors.New("retry backoff must be one of constant, linear, exponential"))
	}
	if c.Images.AspectTolerance < 0 {
		errs = append(errs, errors.New("aspect tolerance cannot be negative"))
	}

	if c.Search.Endpoint == "" {
		errs = append(errs, errors.New("search endpoint is required"))
	}
	if c.Search.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, errors.New("search timeout must be positive"))
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

// ValidateSearch checks the settings the image fetcher needs on top of Validate
func (c *Config) ValidateSearch() error {
	var errs []error
	if c.Search.APIKey == "" {
		errs = append(errs, errors.New("search API key is required (ANIMALFACTS_SEARCH_API_KEY)"))
	}
	if c.Search.EngineID == "" {
		errs = append(errs, errors.New("search engine ID is required (ANIMALFACTS_SEARCH_ENGINE_ID)"))
	}
	return errors.Join(errs...)
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

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Scraper.BaseURL = v
	}
	if v, ok := flags["output-file"].(string); ok && v != "" {
		c.Scraper.OutputFile = v
	}
	if v, ok := flags["input-file"].(string); ok && v != "" {
		c.Images.InputFile = v
	}
	if v, ok := flags["image-dir"].(string); ok && v != "" {
		c.Images.OutputDirectory = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Images.MaxAttempts = v
	}
	if v, ok := flags["skip-existing"].(bool); ok {
		c.Images.SkipExisting = v
	}
	if v, ok := flags["metrics-textfile"].(string); ok && v != "" {
		c.Metrics.Textfile = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".animalfacts.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
