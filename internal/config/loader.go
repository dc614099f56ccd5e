package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".partsync"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file schema.
//
// Example:
//
//	listen: 127.0.0.1:5000
//	store: /srv/parts/partsync.db
//	vendors:
//	  zoro: "https://www.zoro.com/i/%s/"
type File struct {
	// Listen overrides the coordinator listen address.
	Listen string `yaml:"listen,omitempty"`

	// Store overrides the sqlite record store path.
	Store string `yaml:"store,omitempty"`

	// Vendors maps vendor keys to product URL templates, overriding or
	// extending the built-in set. Templates use %s for the part number.
	Vendors map[string]string `yaml:"vendors,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// handle this error based on whether the path was explicitly specified by
// the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if f.Vendors == nil {
		f.Vendors = make(map[string]string)
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. Look for .partsync in the current directory
//  3. Look for .partsync in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if
// not found.
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

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply folds loaded file settings into the config. Flag-provided values
// take precedence, so Apply only fills fields still at their defaults.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	c.File = f
	if f.Listen != "" && c.ListenAddr == DefaultListenAddr {
		c.ListenAddr = f.Listen
	}
	if f.Store != "" && c.StorePath == "" {
		c.StorePath = f.Store
	}
}
