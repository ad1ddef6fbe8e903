package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotcommander/mbiscore/internal/project"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the mbiscore configuration
type Config struct {
	Root           string      `mapstructure:"root" json:"root,omitempty"`
	FollowSymlinks bool        `mapstructure:"followSymlinks" json:"followSymlinks"`
	Format         string      `mapstructure:"format" json:"format"`
	Output         string      `mapstructure:"output" json:"output,omitempty"`
	Export         string      `mapstructure:"export" json:"export,omitempty"`
	FailOn         string      `mapstructure:"failOn" json:"failOn"`
	Quiet          bool        `mapstructure:"quiet" json:"quiet"`
	Verbose        bool        `mapstructure:"verbose" json:"verbose"`
	NoColor        bool        `mapstructure:"noColor" json:"noColor"`
	Concurrency    int         `mapstructure:"concurrency" json:"concurrency"`
	Parallel       bool        `mapstructure:"parallel" json:"parallel"`
	Batch          BatchConfig `mapstructure:"batch" json:"batch"`
	Serve          ServeConfig `mapstructure:"serve" json:"serve"`
}

// BatchConfig controls tabular batch ingestion
type BatchConfig struct {
	IDColumns []string `mapstructure:"idColumns" json:"idColumns"`
	Sheet     string   `mapstructure:"sheet" json:"sheet,omitempty"`
}

// ServeConfig controls the HTTP API
type ServeConfig struct {
	Addr           string   `mapstructure:"addr" json:"addr"`
	AllowedOrigins []string `mapstructure:"allowedOrigins" json:"allowedOrigins"`
	MaxUploadMB    int      `mapstructure:"maxUploadMB" json:"maxUploadMB"`
}

// Fail-on levels
const (
	FailOnNone     = "none"
	FailOnRowError = "row-error"
	FailOnModerate = "moderate"
	FailOnHigh     = "high"
)

// ConfigFiles are the configuration file names looked up in the working directory and its parents
var ConfigFiles = []string{".mbiscorerc.json", ".mbiscorerc.yaml", ".mbiscorerc.yml"}

// EffectiveConcurrency is the number of goroutines batch scoring should use
func (c *Config) EffectiveConcurrency() int {
	if !c.Parallel {
		return 1
	}
	return c.Concurrency
}

// LoadConfig loads configuration from various sources
func LoadConfig(rootPath string) (*Config, error) {
	// Config and .env are taken from the nearest directory holding a config file
	dir, _, err := project.FindConfigDir(".", ConfigFiles)
	if err != nil {
		return nil, fmt.Errorf("error locating config: %w", err)
	}
	info := project.Detect(dir, ConfigFiles)

	// A .env file only seeds the environment; real env vars win
	if info.HasEnv {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil {
			return nil, fmt.Errorf("error loading .env: %w", err)
		}
	}

	viper.SetDefault("root", "")
	viper.SetDefault("format", "console")
	viper.SetDefault("failOn", FailOnNone)
	viper.SetDefault("followSymlinks", false)
	viper.SetDefault("quiet", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("noColor", false)
	viper.SetDefault("concurrency", 4)
	viper.SetDefault("parallel", true)
	viper.SetDefault("batch.idColumns", []string{"id", "identifier", "respondent", "instância"})
	viper.SetDefault("batch.sheet", "")
	viper.SetDefault("serve.addr", ":8080")
	viper.SetDefault("serve.allowedOrigins", []string{"http://localhost:3000"})
	viper.SetDefault("serve.maxUploadMB", 10)

	if info.ConfigFile != "" {
		viper.SetConfigFile(info.ConfigFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", info.ConfigFile, err)
		}
	}

	// Environment variables
	viper.SetEnvPrefix("MBISCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override root if provided
	if rootPath != "" {
		config.Root = rootPath
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Format != "console" && config.Format != "json" && config.Format != "markdown" {
		return fmt.Errorf("invalid format: %s. Must be 'console', 'json', or 'markdown'", config.Format)
	}

	switch config.FailOn {
	case FailOnNone, FailOnRowError, FailOnModerate, FailOnHigh:
	default:
		return fmt.Errorf("invalid fail-on level: %s. Must be 'none', 'row-error', 'moderate', or 'high'", config.FailOn)
	}

	if config.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	if config.Export != "" {
		switch filepath.Ext(config.Export) {
		case ".csv", ".xlsx":
		default:
			return fmt.Errorf("invalid export file: %s. Must end in .csv or .xlsx", config.Export)
		}
	}

	if config.Serve.MaxUploadMB < 1 {
		return fmt.Errorf("serve.maxUploadMB must be at least 1")
	}

	return nil
}

// SaveConfig saves the current configuration to a file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
