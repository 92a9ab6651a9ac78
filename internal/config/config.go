// Package config provides configuration management for the ETL pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the full pipeline configuration
type Config struct {
	Inputs  InputsConfig  `json:"inputs" yaml:"inputs"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	S3      S3Config      `json:"s3" yaml:"s3"`
	Quality QualityConfig `json:"quality" yaml:"quality"`

	// Schedule is a cron expression for repeated runs; empty means a
	// single run
	Schedule string `json:"schedule" yaml:"schedule"`
	// VerboseLogging enables debug-level log output
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"`
}

// InputsConfig locates the raw source files
type InputsConfig struct {
	ImmigrationDir  string `json:"immigration_dir" yaml:"immigration_dir"`   // directory of parquet part files
	TemperatureCSV  string `json:"temperature_csv" yaml:"temperature_csv"`   // comma-delimited, header
	DemographicsCSV string `json:"demographics_csv" yaml:"demographics_csv"` // semicolon-delimited, header
	AirportsCSV     string `json:"airports_csv" yaml:"airports_csv"`         // comma-delimited, header
	SASLabels       string `json:"sas_labels" yaml:"sas_labels"`             // I-94 label descriptions file
}

// OutputConfig controls where and how the star-schema tables are written
type OutputConfig struct {
	Dir         string `json:"dir" yaml:"dir"`
	Compression string `json:"compression" yaml:"compression"` // snappy, gzip, lz4, zstd, uncompressed
	BatchSize   int    `json:"batch_size" yaml:"batch_size"`
}

// S3Config enables staging inputs down from and outputs up to S3
type S3Config struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Region       string `json:"region" yaml:"region"`
	SourceBucket string `json:"source_bucket" yaml:"source_bucket"`
	SourcePrefix string `json:"source_prefix" yaml:"source_prefix"`
	DestBucket   string `json:"dest_bucket" yaml:"dest_bucket"`
	DestPrefix   string `json:"dest_prefix" yaml:"dest_prefix"`
}

// QualityConfig holds the thresholds of the data quality stage
type QualityConfig struct {
	// MinFactRows fails the run when the fact table has fewer rows
	MinFactRows int `json:"min_fact_rows" yaml:"min_fact_rows"`
	// MaxNullKeyRatio fails the run when the share of fact rows with a
	// null key for any single dimension exceeds this value (0.0-1.0)
	MaxNullKeyRatio float64 `json:"max_null_key_ratio" yaml:"max_null_key_ratio"`
}

// Default configuration values
const (
	DefaultCompression     = "snappy"
	DefaultBatchSize       = 1000
	DefaultMinFactRows     = 1
	DefaultMaxNullKeyRatio = 0.95
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Inputs: InputsConfig{
			ImmigrationDir:  "data/sas_data",
			TemperatureCSV:  "data/GlobalLandTemperaturesByCity.csv",
			DemographicsCSV: "data/us-cities-demographics.csv",
			AirportsCSV:     "data/airport-codes.csv",
			SASLabels:       "data/I94_SAS_Labels_Descriptions.SAS",
		},
		Output: OutputConfig{
			Dir:         "output",
			Compression: DefaultCompression,
			BatchSize:   DefaultBatchSize,
		},
		Quality: QualityConfig{
			MinFactRows:     DefaultMinFactRows,
			MaxNullKeyRatio: DefaultMaxNullKeyRatio,
		},
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Inputs.ImmigrationDir == "" {
		return fmt.Errorf("inputs.immigration_dir must be set")
	}
	if c.Inputs.TemperatureCSV == "" {
		return fmt.Errorf("inputs.temperature_csv must be set")
	}
	if c.Inputs.DemographicsCSV == "" {
		return fmt.Errorf("inputs.demographics_csv must be set")
	}
	if c.Inputs.AirportsCSV == "" {
		return fmt.Errorf("inputs.airports_csv must be set")
	}
	if c.Inputs.SASLabels == "" {
		return fmt.Errorf("inputs.sas_labels must be set")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}

	switch c.Output.Compression {
	case "snappy", "gzip", "lz4", "zstd", "uncompressed":
	default:
		return fmt.Errorf("output.compression %q is not supported", c.Output.Compression)
	}

	if c.Output.BatchSize <= 0 {
		return fmt.Errorf("output.batch_size must be positive, got %d", c.Output.BatchSize)
	}
	if c.Quality.MinFactRows < 0 {
		return fmt.Errorf("quality.min_fact_rows must be non-negative, got %d", c.Quality.MinFactRows)
	}
	if c.Quality.MaxNullKeyRatio < 0.0 || c.Quality.MaxNullKeyRatio > 1.0 {
		return fmt.Errorf("quality.max_null_key_ratio must be between 0 and 1, got %f",
			c.Quality.MaxNullKeyRatio)
	}

	if c.S3.Enabled {
		if c.S3.Region == "" {
			return fmt.Errorf("s3.region must be set when s3 staging is enabled")
		}
		if c.S3.SourceBucket == "" && c.S3.DestBucket == "" {
			return fmt.Errorf("s3 staging is enabled but no bucket is configured")
		}
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in
// for unset fields
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.Inputs.ImmigrationDir == "" {
		c.Inputs.ImmigrationDir = defaults.Inputs.ImmigrationDir
	}
	if c.Inputs.TemperatureCSV == "" {
		c.Inputs.TemperatureCSV = defaults.Inputs.TemperatureCSV
	}
	if c.Inputs.DemographicsCSV == "" {
		c.Inputs.DemographicsCSV = defaults.Inputs.DemographicsCSV
	}
	if c.Inputs.AirportsCSV == "" {
		c.Inputs.AirportsCSV = defaults.Inputs.AirportsCSV
	}
	if c.Inputs.SASLabels == "" {
		c.Inputs.SASLabels = defaults.Inputs.SASLabels
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaults.Output.Dir
	}
	if c.Output.Compression == "" {
		c.Output.Compression = defaults.Output.Compression
	}
	if c.Output.BatchSize == 0 {
		c.Output.BatchSize = defaults.Output.BatchSize
	}
	if c.Quality.MinFactRows == 0 {
		c.Quality.MinFactRows = defaults.Quality.MinFactRows
	}
	if c.Quality.MaxNullKeyRatio == 0.0 {
		c.Quality.MaxNullKeyRatio = defaults.Quality.MaxNullKeyRatio
	}

	return c
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// ApplyEnv overlays I94ETL_* environment variables onto the configuration
func (c Config) ApplyEnv() Config {
	if val := os.Getenv("I94ETL_IMMIGRATION_DIR"); val != "" {
		c.Inputs.ImmigrationDir = val
	}
	if val := os.Getenv("I94ETL_TEMPERATURE_CSV"); val != "" {
		c.Inputs.TemperatureCSV = val
	}
	if val := os.Getenv("I94ETL_DEMOGRAPHICS_CSV"); val != "" {
		c.Inputs.DemographicsCSV = val
	}
	if val := os.Getenv("I94ETL_AIRPORTS_CSV"); val != "" {
		c.Inputs.AirportsCSV = val
	}
	if val := os.Getenv("I94ETL_SAS_LABELS"); val != "" {
		c.Inputs.SASLabels = val
	}
	if val := os.Getenv("I94ETL_OUTPUT_DIR"); val != "" {
		c.Output.Dir = val
	}
	if val := os.Getenv("I94ETL_COMPRESSION"); val != "" {
		c.Output.Compression = val
	}
	if val := os.Getenv("I94ETL_S3_ENABLED"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			c.S3.Enabled = parsed
		}
	}
	if val := os.Getenv("I94ETL_S3_REGION"); val != "" {
		c.S3.Region = val
	}
	if val := os.Getenv("I94ETL_S3_SOURCE_BUCKET"); val != "" {
		c.S3.SourceBucket = val
	}
	if val := os.Getenv("I94ETL_S3_DEST_BUCKET"); val != "" {
		c.S3.DestBucket = val
	}
	if val := os.Getenv("I94ETL_MIN_FACT_ROWS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			c.Quality.MinFactRows = parsed
		}
	}
	if val := os.Getenv("I94ETL_MAX_NULL_KEY_RATIO"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			c.Quality.MaxNullKeyRatio = parsed
		}
	}
	if val := os.Getenv("I94ETL_SCHEDULE"); val != "" {
		c.Schedule = val
	}
	if val := os.Getenv("I94ETL_VERBOSE"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			c.VerboseLogging = parsed
		}
	}

	return c
}

// Load resolves the effective configuration: defaults, then the optional
// file, then environment overrides
func Load(filename string) (Config, error) {
	config := NewConfig()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		if err != nil {
			return Config{}, err
		}
		config = loaded
	}

	config = config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
