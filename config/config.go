// Package config loads the YAML session configuration: codec buffer
// sizes, capability flags, logging level, and the server listen address.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

const DefaultBufferSize = 4096
const DefaultLogLevel = "info"
const DefaultListenAddress = ":3690"

// Config for an edit session (client or server side).
type Config struct {
	BufferSize    int    `yaml:"buffer_size"`    // Read/write buffer size in bytes
	LogLevel      string `yaml:"log_level"`      // logrus level name
	ListenAddress string `yaml:"listen_address"` // Server bind address
	// CaseInsensitive is parsed from case_insensitive but not read by the
	// editor or the repository: the in-memory backend always matches names
	// case-sensitively.
	CaseInsensitive bool `yaml:"case_insensitive"`
	// AllowTxnCopySource permits cp/copy-one/copy-tree sources that live
	// only in the in-progress transaction rather than a committed revision.
	AllowTxnCopySource bool `yaml:"allow_txn_copy_source"`

	ParsedLogLevel logrus.Level
}

// Unmarshal the config
func Unmarshal(config []byte) (*Config, error) {
	// Default values specified here
	cfg := &Config{
		BufferSize:    DefaultBufferSize,
		LogLevel:      DefaultLogLevel,
		ListenAddress: DefaultListenAddress,
	}
	err := yaml.Unmarshal(config, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters", err.Error())
	}
	err = cfg.validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile - loads config file
func LoadConfigFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	cfg, err := LoadConfigString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return cfg, nil
}

// LoadConfigString - loads a string
func LoadConfigString(content []byte) (*Config, error) {
	cfg, err := Unmarshal([]byte(content))
	return cfg, err
}

func (c *Config) validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse '%s' as a log level", c.LogLevel)
	}
	c.ParsedLogLevel = lvl
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address must not be empty")
	}
	return nil
}
