package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manager implements ConfigManager for run and sweep files
type Manager struct {
	validator Validator
}

// NewManager creates a configuration manager with the struct tag validator
func NewManager() *Manager {
	return &Manager{
		validator: NewValidator(),
	}
}

// LoadRun loads a run file, applies defaults and validates it
func (m *Manager) LoadRun(path string) (*RunConfig, error) {
	cfg := &RunConfig{}
	if err := m.loadFromFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadSweep loads a sweep file, applies defaults and validates it
func (m *Manager) LoadSweep(path string) (*SweepConfig, error) {
	cfg := &SweepConfig{}
	if err := m.loadFromFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load sweep file: %w", err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates a configuration using the validator
func (m *Manager) ValidateConfig(cfg interface{}) error {
	return m.validator.Validate(cfg)
}

// SaveConfig writes cfg as YAML for .yaml/.yml paths and as indented JSON otherwise
func (m *Manager) SaveConfig(cfg interface{}, path string) error {
	var (
		out []byte
		err error
	)
	if isYAML(path) {
		out, err = yaml.Marshal(cfg)
	} else {
		out, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// loadFromFile decodes a YAML or JSON file into cfg, rejecting unknown keys
func (m *Manager) loadFromFile(path string, cfg interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	return decode(raw, isYAML(path), cfg)
}

func decode(raw []byte, asYAML bool, cfg interface{}) error {
	if asYAML {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("could not parse YAML: %w", err)
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("could not parse JSON: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
