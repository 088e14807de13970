package config

import (
	"os"
	"path/filepath"
	"testing"
)

func strptr(s string) *string { return &s }

func validConfig() *Config {
	return &Config{
		Frequencies:          []int{100, 100, 143, 143},
		MultipoleRangesFile:  strptr("binning.fits"),
		XSpectraPrefix:       strptr("data/spectra"),
		XSpectraErrorsPrefix: strptr("data/errors"),
		CovMatrixPrefix:      strptr("data/invkll"),
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, "hillipop.json", `{
		"frequencies": [100, 100, 143, 143],
		"ee": true,
		"multipole_ranges_file": "binning.fits",
		"xspectra_prefix": "data/spectra",
		"xspectra_errors_prefix": "data/errors",
		"covmatrix_prefix": "data/invkll",
		"chain_steps": 500
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Frequencies) != 4 {
		t.Errorf("Frequencies = %v, want 4 entries", cfg.Frequencies)
	}
	if !cfg.GetTT() {
		t.Error("TT should default to enabled")
	}
	if !cfg.GetEE() {
		t.Error("EE was set in the file")
	}
	if cfg.GetTE() || cfg.GetET() {
		t.Error("TE/ET should default to disabled")
	}
	if got := cfg.GetChainSteps(); got != 500 {
		t.Errorf("GetChainSteps = %d, want 500", got)
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := writeConfig(t, "hillipop.yaml", `{}`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, "bad.json", `{"frequencies": [100,`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"too few maps", func(c *Config) { c.Frequencies = []int{143} }},
		{"negative frequency", func(c *Config) { c.Frequencies = []int{143, -1} }},
		{"no mode enabled", func(c *Config) { f := false; c.TT = &f }},
		{"missing ranges file", func(c *Config) { c.MultipoleRangesFile = nil }},
		{"empty spectra prefix", func(c *Config) { c.XSpectraPrefix = strptr("") }},
		{"missing errors prefix", func(c *Config) { c.XSpectraErrorsPrefix = nil }},
		{"missing covariance prefix", func(c *Config) { c.CovMatrixPrefix = nil }},
		{"zero chain steps", func(c *Config) { n := 0; c.ChainSteps = &n }},
		{"negative burn-in", func(c *Config) { n := -1; c.ChainBurnIn = &n }},
		{"zero proposal scale", func(c *Config) { s := 0.0; c.ProposalScale = &s }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetChainSteps(); got != 10000 {
		t.Errorf("GetChainSteps = %d, want 10000", got)
	}
	if got := cfg.GetChainBurnIn(); got != 1000 {
		t.Errorf("GetChainBurnIn = %d, want 1000", got)
	}
	if got := cfg.GetProposalScale(); got != 1.0 {
		t.Errorf("GetProposalScale = %g, want 1", got)
	}
	if got := cfg.GetSampleBatch(); got != 100 {
		t.Errorf("GetSampleBatch = %d, want 100", got)
	}
	if got := cfg.GetChainSeed(); got != 0 {
		t.Errorf("GetChainSeed = %d, want 0", got)
	}
}
