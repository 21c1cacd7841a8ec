package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	qhttp "tripcost/http"
	"tripcost/logging"
)

type Config struct {
	Http  qhttp.ServerConfig `yaml:"http"`
	Log   logging.Config     `yaml:"log"`
	Model struct {
		Path          string `yaml:"path"`
		WatchArtifact bool   `yaml:"watch_artifact"`
		EstimateCache int    `yaml:"estimate_cache"`
	} `yaml:"model"`
	Locale string `yaml:"locale"`
}

func defaultConfig() *Config {
	cfg := &Config{
		Http:   qhttp.DefaultServerConfig(),
		Log:    logging.Config{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28},
		Locale: "es",
	}
	cfg.Model.Path = "ml/cost_model.json"
	cfg.Model.WatchArtifact = true
	cfg.Model.EstimateCache = 1024
	return cfg
}

// loadConfig overlays the YAML file at path on the defaults. A missing file
// yields the defaults.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if config.Model.Path == "" {
		return nil, fmt.Errorf("model.path is required")
	}
	return config, nil
}
