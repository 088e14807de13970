// Package config loads the likelihood configuration. The schema uses
// pointer fields so partial JSON files are safe: anything omitted falls
// back to the documented default through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration for the likelihood and chain runner.
type Config struct {
	// Frequencies lists the frequency in GHz of each split map. The
	// number of maps, cross-spectra and cross-frequencies all derive
	// from this list.
	Frequencies []int `json:"frequencies,omitempty"`

	// Mode switches
	TT *bool `json:"tt,omitempty"`
	EE *bool `json:"ee,omitempty"`
	TE *bool `json:"te,omitempty"`
	ET *bool `json:"et,omitempty"`

	// Data products
	MultipoleRangesFile  *string `json:"multipole_ranges_file,omitempty"`
	XSpectraPrefix       *string `json:"xspectra_prefix,omitempty"`        // "<prefix>_<m1>_<m2>.fits"
	XSpectraErrorsPrefix *string `json:"xspectra_errors_prefix,omitempty"` // same layout as spectra
	CovMatrixPrefix      *string `json:"covmatrix_prefix,omitempty"`       // "<prefix>_<modes>.fits"

	// Foreground templates (optional; components are enabled when set)
	DustTemplate   *string `json:"dust_template,omitempty"` // "<base>_<mode>.fits"
	SZTemplate     *string `json:"sz_template,omitempty"`
	CIBTemplate    *string `json:"cib_template,omitempty"`
	KSZTemplate    *string `json:"ksz_template,omitempty"`
	SZxCIBTemplate *string `json:"szxcib_template,omitempty"`

	// TheoryFile points at a JSON file of CMB spectra (Cl in K^2) used
	// by the chain runner; the /api/likelihood endpoint carries its own.
	TheoryFile *string `json:"theory_file,omitempty"`

	// Chain settings
	ChainSteps    *int     `json:"chain_steps,omitempty"`
	ChainBurnIn   *int     `json:"chain_burn_in,omitempty"`
	ProposalScale *float64 `json:"proposal_scale,omitempty"`
	SampleBatch   *int     `json:"sample_batch,omitempty"`
	ChainSeed     *int64   `json:"chain_seed,omitempty"`
}

// Load reads and validates a Config from a JSON file. The file must have a
// .json extension and stay under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration can build a likelihood.
func (c *Config) Validate() error {
	if len(c.Frequencies) < 2 {
		return fmt.Errorf("need at least 2 maps, got %d frequencies", len(c.Frequencies))
	}
	for i, f := range c.Frequencies {
		if f <= 0 {
			return fmt.Errorf("frequency %d must be positive, got %d GHz", i, f)
		}
	}
	if !c.GetTT() && !c.GetEE() && !c.GetTE() && !c.GetET() {
		return fmt.Errorf("no spectral mode enabled")
	}
	for name, v := range map[string]*string{
		"multipole_ranges_file":  c.MultipoleRangesFile,
		"xspectra_prefix":        c.XSpectraPrefix,
		"xspectra_errors_prefix": c.XSpectraErrorsPrefix,
		"covmatrix_prefix":       c.CovMatrixPrefix,
	} {
		if v == nil || *v == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if c.ChainSteps != nil && *c.ChainSteps < 1 {
		return fmt.Errorf("chain_steps must be positive, got %d", *c.ChainSteps)
	}
	if c.ChainBurnIn != nil && *c.ChainBurnIn < 0 {
		return fmt.Errorf("chain_burn_in must be non-negative, got %d", *c.ChainBurnIn)
	}
	if c.ProposalScale != nil && *c.ProposalScale <= 0 {
		return fmt.Errorf("proposal_scale must be positive, got %f", *c.ProposalScale)
	}
	return nil
}

// GetTT returns the TT switch; TT is on by default.
func (c *Config) GetTT() bool {
	if c.TT == nil {
		return true
	}
	return *c.TT
}

// GetEE returns the EE switch.
func (c *Config) GetEE() bool {
	if c.EE == nil {
		return false
	}
	return *c.EE
}

// GetTE returns the TE switch.
func (c *Config) GetTE() bool {
	if c.TE == nil {
		return false
	}
	return *c.TE
}

// GetET returns the ET switch.
func (c *Config) GetET() bool {
	if c.ET == nil {
		return false
	}
	return *c.ET
}

// GetChainSteps returns the number of chain steps or the default.
func (c *Config) GetChainSteps() int {
	if c.ChainSteps == nil {
		return 10000
	}
	return *c.ChainSteps
}

// GetChainBurnIn returns the burn-in length or the default.
func (c *Config) GetChainBurnIn() int {
	if c.ChainBurnIn == nil {
		return 1000
	}
	return *c.ChainBurnIn
}

// GetProposalScale returns the global proposal scale factor or the default.
func (c *Config) GetProposalScale() float64 {
	if c.ProposalScale == nil {
		return 1.0
	}
	return *c.ProposalScale
}

// GetSampleBatch returns the sample persistence batch size or the default.
func (c *Config) GetSampleBatch() int {
	if c.SampleBatch == nil {
		return 100
	}
	return *c.SampleBatch
}

// GetChainSeed returns the chain seed; zero means derive one from the clock.
func (c *Config) GetChainSeed() int64 {
	if c.ChainSeed == nil {
		return 0
	}
	return *c.ChainSeed
}
