// =============================================================================
// Sales Aggregator - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the pipeline
// configuration. A single YAML file describes:
//   1. Which source files to ingest, in which order
//   2. Where the flat output artifact is written
//   3. Which product is retained and how its prices are written
//   4. The price-change marker date handed to the chart renderer
//
// LOADING ORDER:
//   1. Read and parse YAML
//   2. Apply defaults for unset options
//   3. Validate
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingOutputFile     = errors.New("output_file is required")
	ErrMissingTargetProduct  = errors.New("target_product is required")
	ErrInvalidPriceChange    = errors.New("price_change_date must be a YYYY-MM-DD date")
	ErrNoCurrencySymbols     = errors.New("currency_symbols must not contain empty symbols")
	ErrInvalidConcurrency    = errors.New("max_concurrency must be at least 1")
	ErrInvalidErrorSamples   = errors.New("max_error_samples must be non-negative")
	ErrInvalidLogLevel       = errors.New("log_level must be one of: debug, info, warn, error")
	ErrInvalidDelimiter      = errors.New("csv_settings.delimiter must be a single character")
	ErrUnsupportedEncoding   = errors.New("csv_settings.encoding must be one of: UTF-8, ISO-8859-1, Windows-1252")
	ErrSourcePatternNoSource = errors.New("source_pattern requires source_dir")
)

// Defaults.
const (
	DefaultOutputFile      = "data/formatted_sales_data.csv"
	DefaultTargetProduct   = "pink morsel"
	DefaultPriceChangeDate = "2021-01-15"
	DefaultSourcePattern   = "*.csv"
	DefaultLogLevel        = "info"
	DefaultMaxConcurrency  = 1
	DefaultMaxErrorSamples = 10
	DefaultDelimiter       = ","
	DefaultEncoding        = "UTF-8"
)

// DefaultSources are the three daily sales exports the pipeline was built for.
var DefaultSources = []string{
	"data/daily_sales_data_0.csv",
	"data/daily_sales_data_1.csv",
	"data/daily_sales_data_2.csv",
}

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the pipeline configuration.
type MainConfig struct {
	// =========================================================================
	// SOURCE SETTINGS
	// =========================================================================

	// Sources is the ordered list of source files. Records keep this order.
	// A path that does not exist is skipped with a warning.
	Sources []string `yaml:"sources"`

	// SourceDir is an optional directory scanned for additional sources.
	// Matches are sorted and appended after Sources.
	SourceDir string `yaml:"source_dir"`

	// SourcePattern is the glob used inside SourceDir.
	// Default: "*.csv"
	SourcePattern string `yaml:"source_pattern"`

	// CSVSettings controls how delimited sources are read.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFile is where the flat sales,date,region artifact is written.
	// Default: "data/formatted_sales_data.csv"
	OutputFile string `yaml:"output_file"`

	// =========================================================================
	// PRODUCT SETTINGS
	// =========================================================================

	// TargetProduct is the only product retained. Compared case-folded.
	// Default: "pink morsel"
	TargetProduct string `yaml:"target_product"`

	// CurrencySymbols are the symbols allowed in front of a price.
	// Default: ["$"]
	CurrencySymbols []string `yaml:"currency_symbols"`

	// PriceChangeDate marks the price increase on the chart. The pipeline
	// does not interpret it.
	// Default: "2021-01-15"
	PriceChangeDate string `yaml:"price_change_date"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// MaxErrorSamples is how many skipped rows are kept for the summary.
	// Default: 10
	MaxErrorSamples int `yaml:"max_error_samples"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of source files read at once.
	// Set to 1 for sequential processing. Record order is the same either way.
	// Default: 1
	MaxConcurrency int `yaml:"max_concurrency"`

	// maxErrorSamplesSet distinguishes an explicit 0 from an unset value.
	maxErrorSamplesSet bool
}

// CSVSettings contains settings for reading delimited source files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the source files.
	// Supported: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// UnmarshalYAML records whether max_error_samples was given explicitly.
func (c *MainConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain MainConfig
	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "max_error_samples" {
			c.maxErrorSamplesSet = true
		}
	}

	return nil
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the configuration used when no config file exists.
func Default() *MainConfig {
	config := &MainConfig{
		Sources: append([]string(nil), DefaultSources...),
	}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed, or is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML.
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply default values.
	applyMainConfigDefaults(&config)

	// Validate the configuration.
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.SourcePattern == "" {
		config.SourcePattern = DefaultSourcePattern
	}
	if config.OutputFile == "" {
		config.OutputFile = DefaultOutputFile
	}
	if config.TargetProduct == "" {
		config.TargetProduct = DefaultTargetProduct
	}
	if len(config.CurrencySymbols) == 0 {
		config.CurrencySymbols = []string{"$"}
	}
	if config.PriceChangeDate == "" {
		config.PriceChangeDate = DefaultPriceChangeDate
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.MaxErrorSamples == 0 && !config.maxErrorSamplesSet {
		config.MaxErrorSamples = DefaultMaxErrorSamples
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = DefaultDelimiter
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = DefaultEncoding
	}
}

// Validate checks the configuration for values the pipeline cannot use.
func (c *MainConfig) Validate() error {
	if strings.TrimSpace(c.OutputFile) == "" {
		return ErrMissingOutputFile
	}
	if strings.TrimSpace(c.TargetProduct) == "" {
		return ErrMissingTargetProduct
	}
	if _, err := c.PriceChange(); err != nil {
		return ErrInvalidPriceChange
	}
	for _, symbol := range c.CurrencySymbols {
		if symbol == "" {
			return ErrNoCurrencySymbols
		}
	}
	if c.MaxConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.MaxErrorSamples < 0 {
		return ErrInvalidErrorSamples
	}
	if c.SourceDir == "" && c.SourcePattern != DefaultSourcePattern {
		return ErrSourcePatternNoSource
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	if _, err := c.CSVSettings.Comma(); err != nil {
		return err
	}
	if !IsSupportedEncoding(c.CSVSettings.Encoding) {
		return ErrUnsupportedEncoding
	}

	return nil
}

// PriceChange parses PriceChangeDate as a calendar date in UTC.
func (c *MainConfig) PriceChange() (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(c.PriceChangeDate))
}

// =============================================================================
// CSV SETTINGS HELPERS
// =============================================================================

// Comma resolves the configured delimiter to the rune encoding/csv expects.
func (s CSVSettings) Comma() (rune, error) {
	switch s.Delimiter {
	case "", ",":
		return ',', nil
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "|", "pipe", "PIPE":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}

	runes := []rune(s.Delimiter)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' {
		return 0, ErrInvalidDelimiter
	}
	return runes[0], nil
}

// IsSupportedEncoding reports whether name is an encoding source files may use.
func IsSupportedEncoding(name string) bool {
	switch NormalizeEncoding(name) {
	case "utf-8", "iso-8859-1", "windows-1252":
		return true
	}
	return false
}

// NormalizeEncoding maps encoding aliases to a canonical lower-case name.
func NormalizeEncoding(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return "utf-8"
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return "iso-8859-1"
	case "windows-1252", "cp1252":
		return "windows-1252"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}
