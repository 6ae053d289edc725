package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up in the
// current directory.
const DefaultConfigFile = ".datafetch.yaml"

// xdgConfigFile is the configuration file name inside XDGConfigDir.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the YAML configuration file.
// Zero values mean "keep the default".
type File struct {
	// Root is the directory lane paths are resolved against.
	Root string `yaml:"root,omitempty"`

	// Timeout is the per-request HTTP timeout, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// Proxy is an optional SOCKS5 proxy address ("host:port").
	Proxy string `yaml:"proxy,omitempty"`

	// DisableHistory turns off the run history database.
	DisableHistory bool `yaml:"disable_history,omitempty"`

	// HistoryDir overrides the history database directory.
	HistoryDir string `yaml:"history_dir,omitempty"`

	// Lanes are merged into the default lanes by kind.
	Lanes []Lane `yaml:"lanes,omitempty"`
}

// LoadConfigFile loads a configuration file from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .datafetch.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), xdgConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
