package strategy

import (
	"fmt"
	"sort"
)

// Variant names
const (
	VariantFixedCrossover    = "fixedCrossover"
	VariantRiskSizedTrailing = "riskSizedTrailing"
	VariantMeanReversionTP   = "meanReversionTP"
	VariantAdaptiveRegime    = "adaptiveRegime"
)

// Config selects a variant and carries its parameters. Only the block of the
// selected variant is read; a nil block means defaults.
type Config struct {
	Variant       string               `json:"variant" yaml:"variant" validate:"required,oneof=fixedCrossover riskSizedTrailing meanReversionTP adaptiveRegime"`
	Crossover     *CrossoverParams     `json:"crossover,omitempty" yaml:"crossover,omitempty" validate:"omitempty"`
	Trailing      *TrailingParams      `json:"trailing,omitempty" yaml:"trailing,omitempty" validate:"omitempty"`
	MeanReversion *MeanReversionParams `json:"meanReversion,omitempty" yaml:"meanReversion,omitempty" validate:"omitempty"`
	Adaptive      *AdaptiveParams      `json:"adaptive,omitempty" yaml:"adaptive,omitempty" validate:"omitempty"`
}

// DefaultConfig returns the variant with its default parameters filled in
func DefaultConfig(variant string) (Config, error) {
	cfg := Config{Variant: variant}
	if err := cfg.ApplyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills the selected variant's block when it is missing
func (c *Config) ApplyDefaults() error {
	switch c.Variant {
	case VariantFixedCrossover:
		if c.Crossover == nil {
			p := DefaultCrossoverParams()
			c.Crossover = &p
		}
	case VariantRiskSizedTrailing:
		if c.Trailing == nil {
			p := DefaultTrailingParams()
			c.Trailing = &p
		}
	case VariantMeanReversionTP:
		if c.MeanReversion == nil {
			p := DefaultMeanReversionParams()
			c.MeanReversion = &p
		}
	case VariantAdaptiveRegime:
		if c.Adaptive == nil {
			p := DefaultAdaptiveParams()
			c.Adaptive = &p
		}
	default:
		return fmt.Errorf("unknown strategy variant %q (known: %v)", c.Variant, Variants())
	}
	return nil
}

// New builds the policy described by the config
func New(cfg Config) (Policy, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}

	switch cfg.Variant {
	case VariantFixedCrossover:
		return NewFixedCrossover(*cfg.Crossover), nil
	case VariantRiskSizedTrailing:
		return NewRiskSizedTrailing(*cfg.Trailing), nil
	case VariantMeanReversionTP:
		return NewMeanReversionTP(*cfg.MeanReversion), nil
	default:
		return NewAdaptiveRegime(*cfg.Adaptive), nil
	}
}

// Variants lists the known variant names
func Variants() []string {
	names := []string{
		VariantFixedCrossover,
		VariantRiskSizedTrailing,
		VariantMeanReversionTP,
		VariantAdaptiveRegime,
	}
	sort.Strings(names)
	return names
}
