package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models siteledger.yml.
type Config struct {
	Venture struct {
		Name     string   `yaml:"name"`
		Projects []string `yaml:"projects"`
	} `yaml:"venture"`
	Server struct {
		Addr                string `yaml:"addr"`
		BasePath            string `yaml:"base_path"`
		JWTSecret           string `yaml:"jwt_secret"`
		AllowBootstrapLogin bool   `yaml:"allow_bootstrap_login"`
	} `yaml:"server"`
	Currency struct {
		Base  string             `yaml:"base"`
		Rates map[string]float64 `yaml:"rates"`
	} `yaml:"currency"`
	Inference struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"inference"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "siteledger.yml")
}

// Load reads and validates config from a workspace directory.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Venture.Name == "" {
		return fmt.Errorf("config.venture.name is required")
	}
	for _, p := range c.Venture.Projects {
		if p == "" {
			return fmt.Errorf("config.venture.projects contains empty project id")
		}
	}
	if c.Currency.Base == "" {
		return fmt.Errorf("config.currency.base is required")
	}
	for code, rate := range c.Currency.Rates {
		if code == "" {
			return fmt.Errorf("config.currency.rates contains empty code")
		}
		if rate <= 0 {
			return fmt.Errorf("config.currency.rates.%s must be positive", code)
		}
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultYAML), &cfg)
	return &cfg
}

const defaultYAML = `venture:
  name: siteledger
  projects:
    - villa-alpha
    - villa-breeze
    - guesthouse-cempaka

server:
  addr: :8787
  base_path: /v0
  jwt_secret: ""
  allow_bootstrap_login: false

currency:
  base: IDR
  rates:
    IDR: 1
    USD: 0.000063
    EUR: 0.000058

inference:
  base_url: ""
  api_key: ""
  model: qwen-vl-plus

log:
  level: info
`
