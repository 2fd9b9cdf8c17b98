// Package config provides unified configuration for the mnybridge tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration shared by the mnybridge binaries.
type Config struct {
	// Timezone interprets the wall-clock datetimes stored in database
	// files: an IANA zone name or a fixed offset like "-06:00". Required;
	// there is deliberately no default, because guessing a zone silently
	// shifts every date in the file.
	Timezone string `json:"timezone" yaml:"timezone"`

	// DataDir is the base directory for local state
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// BackupDir is where pre-write backups land
	BackupDir string `json:"backup_dir" yaml:"backup_dir"`

	// SecretsPath is the sealed password store
	SecretsPath string `json:"secrets_path" yaml:"secrets_path"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// StorageConfig selects where database images live.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration. The timezone stays empty
// on purpose; Validate rejects a config that never set it.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/mnybridge",
		Storage: StorageConfig{
			Type: "local",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/mnybridge"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.BackupDir == "" {
		c.BackupDir = filepath.Join(c.DataDir, "backups")
	}
	if c.SecretsPath == "" {
		c.SecretsPath = filepath.Join(c.DataDir, "secrets.bin")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Timezone == "" {
		return fmt.Errorf("timezone is required (IANA name or fixed offset like -06:00)")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	if off, ok := parseFixedOffset(tz); ok {
		return time.FixedZone(tz, off), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// parseFixedOffset reads "+HH:MM" / "-HH:MM" into seconds.
func parseFixedOffset(s string) (int, bool) {
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return 0, false
	}
	var h, m int
	if _, err := fmt.Sscanf(s[1:], "%02d:%02d", &h, &m); err != nil {
		return 0, false
	}
	if h > 14 || m > 59 {
		return 0, false
	}
	off := h*3600 + m*60
	if s[0] == '-' {
		off = -off
	}
	return off, true
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the MNYBRIDGE_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("MNYBRIDGE_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("MNYBRIDGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MNYBRIDGE_BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
	}
	if v := os.Getenv("MNYBRIDGE_SECRETS_PATH"); v != "" {
		cfg.SecretsPath = v
	}

	if v := os.Getenv("MNYBRIDGE_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("MNYBRIDGE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MNYBRIDGE_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("MNYBRIDGE_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("MNYBRIDGE_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("MNYBRIDGE_S3_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = v == "true" || v == "1"
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.BackupDir}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
