// Package config loads the YAML runtime configuration jamd and jam read
// at startup, following the same Unmarshal/LoadConfigFile/validate shape
// gitp4transfer's config package uses.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultBindAddr             = "0.0.0.0:5011"
	DefaultBlobDir              = "database"
	DefaultArchiveDir           = "archive"
	DefaultStructSwitches       = "zuemhgnd"
	DefaultCommitTimeoutSeconds = 60
)

// Config holds every setting jamd's server loop and jam's client loop
// read at startup. Server-only and client-only fields simply go unused
// on the other side, mirroring how gitp4transfer's Config carries both
// import and branch-mapping settings in one struct. CommitTimeoutSeconds
// is plain seconds rather than a time.Duration field: yaml.v2 has no
// built-in string->Duration conversion, and a raw int keeps the config
// file format unsurprising ("commit_timeout: 60").
type Config struct {
	BindAddr             string `yaml:"bind_addr"`
	BlobDir              string `yaml:"blob_dir"`
	ArchiveDir           string `yaml:"archive_dir"`
	EnableDiscovery      bool   `yaml:"enable_discovery"`
	WorkspaceName        string `yaml:"workspace_name"`
	DefaultStruct        string `yaml:"default_struct_switches"`
	CommitTimeoutSeconds int    `yaml:"commit_timeout"`
	TargetAddr           string `yaml:"target_addr"`
	LoginCode            string `yaml:"login_code"`
}

// CommitTimeout returns CommitTimeoutSeconds as a time.Duration.
func (c *Config) CommitTimeout() time.Duration {
	return time.Duration(c.CommitTimeoutSeconds) * time.Second
}

// Unmarshal parses config, filling in defaults for anything left blank.
func Unmarshal(data []byte) (*Config, error) {
	cfg := &Config{
		BindAddr:             DefaultBindAddr,
		BlobDir:              DefaultBlobDir,
		ArchiveDir:           DefaultArchiveDir,
		DefaultStruct:        DefaultStructSwitches,
		CommitTimeoutSeconds: DefaultCommitTimeoutSeconds,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters", err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads and parses filename, falling back to an
// all-defaults Config if the file does not exist -- jamd/jam should run
// out of the box without requiring a config file.
func LoadConfigFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Unmarshal(nil)
		}
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	cfg, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CommitTimeoutSeconds <= 0 {
		return fmt.Errorf("commit_timeout must be positive, got %d", c.CommitTimeoutSeconds)
	}
	if c.WorkspaceName == "" {
		c.WorkspaceName = "jamvcs"
	}
	return nil
}
