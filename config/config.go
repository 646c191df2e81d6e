package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon-level configuration: listen addresses, data paths and
// the protocol parameter block applied at genesis.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	NetworkName    string `toml:"NetworkName"`

	Global Global `toml:"global"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "kopio-local"
	}
	applyDefaults(&cfg.Global)

	if err := ValidateGlobal(cfg.Global); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:  ":8080",
		MetricsAddress: ":9090",
		DataDir:        "./kopio-data",
		NetworkName:    "kopio-local",
	}
	applyDefaults(&cfg.Global)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
