package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"gradio/internal/common/fsutil"
	"gradio/pkg/gradio"
)

// Config holds the client settings read from a file.
// Zero values mean "unspecified" and are replaced by flags or client defaults.
type Config struct {
	Token             string `json:"token" yaml:"token" toml:"token"`
	Username          string `json:"username" yaml:"username" toml:"username"`
	Password          string `json:"password" yaml:"password" toml:"password"`
	OutputDir         string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	LogLevel          string `json:"log_level" yaml:"log_level" toml:"log_level"`
	RegistryURL       string `json:"registry_url" yaml:"registry_url" toml:"registry_url"`
	WakeInterval      string `json:"wake_interval" yaml:"wake_interval" toml:"wake_interval"`
	WakeMaxAttempts   int    `json:"wake_max_attempts" yaml:"wake_max_attempts" toml:"wake_max_attempts"`
	UploadConcurrency int    `json:"upload_concurrency" yaml:"upload_concurrency" toml:"upload_concurrency"`
	ValidateInputs    bool   `json:"validate_inputs" yaml:"validate_inputs" toml:"validate_inputs"`
	UserAgent         string `json:"user_agent" yaml:"user_agent" toml:"user_agent"`
	MetricsAddr       string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	if !fsutil.PathExists(p) {
		return cfg, fmt.Errorf("config file not found: %s", p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Options maps the file settings onto client options. Unset fields keep the
// client defaults.
func (c Config) Options() (gradio.Options, error) {
	opts := gradio.Options{
		HFToken:           c.Token,
		RegistryURL:       c.RegistryURL,
		WakeMaxAttempts:   c.WakeMaxAttempts,
		UploadConcurrency: c.UploadConcurrency,
		ValidateInputs:    c.ValidateInputs,
		UserAgent:         c.UserAgent,
	}
	if c.WakeInterval != "" {
		d, err := time.ParseDuration(c.WakeInterval)
		if err != nil {
			return gradio.Options{}, fmt.Errorf("wake_interval: %w", err)
		}
		opts.WakeInterval = d
	}
	if c.Username != "" {
		opts.Auth = &gradio.Credentials{Username: c.Username, Password: c.Password}
	}
	return opts, nil
}
