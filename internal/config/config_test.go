package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Venture.Name != "siteledger" {
		t.Fatalf("venture name = %q", cfg.Venture.Name)
	}
	if len(cfg.Venture.Projects) != 3 {
		t.Fatalf("projects = %v", cfg.Venture.Projects)
	}
	if cfg.Server.Addr != ":8787" || cfg.Server.BasePath != "/v0" {
		t.Fatalf("server defaults: %+v", cfg.Server)
	}
	if cfg.Currency.Base != "IDR" || cfg.Currency.Rates["USD"] != 0.000063 {
		t.Fatalf("currency defaults: %+v", cfg.Currency)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Venture.Name != "siteledger" {
		t.Fatalf("expected defaults, got %+v", cfg.Venture)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	body := "venture:\n  name: bali-build\n  projects: [villa-x]\nserver:\n  addr: :9000\n"
	if err := os.WriteFile(filepath.Join(dir, "siteledger.yml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Venture.Name != "bali-build" || cfg.Server.Addr != ":9000" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Untouched sections keep their defaults.
	if cfg.Currency.Base != "IDR" {
		t.Fatalf("currency default lost: %+v", cfg.Currency)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"empty venture name", "venture:\n  name: \"\"\n", "venture.name"},
		{"empty project id", "venture:\n  projects: [\"\"]\n", "projects"},
		{"empty currency base", "currency:\n  base: \"\"\n", "currency.base"},
		{"negative rate", "currency:\n  rates:\n    USD: -1\n", "must be positive"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := FromYAML([]byte(c.yaml))
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("err = %v, want %q", err, c.want)
			}
		})
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	if _, err := FromYAML([]byte("{not yaml")); err == nil {
		t.Fatalf("garbage yaml must fail")
	}
}
