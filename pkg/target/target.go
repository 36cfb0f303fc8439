// Package target describes the code-generation target the selector runs for.
//
// Design: a small, serializable description. Loaded from YAML by tools,
// constructed with Default in tests.
package target

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCodeModel is returned for code models the backend does not know
var ErrUnknownCodeModel = errors.New("target: unknown code model")

// CodeModel bounds the distance between code and the data it addresses
type CodeModel string

const (
	CodeModelTiny   CodeModel = "tiny"
	CodeModelSmall  CodeModel = "small"
	CodeModelKernel CodeModel = "kernel"
	CodeModelMedium CodeModel = "medium"
	CodeModelLarge  CodeModel = "large"
)

// Valid reports whether m names a known code model
func (m CodeModel) Valid() bool {
	switch m {
	case CodeModelTiny, CodeModelSmall, CodeModelKernel, CodeModelMedium, CodeModelLarge:
		return true
	}
	return false
}

// Config holds target configuration
type Config struct {
	Name        string    `yaml:"name" mapstructure:"name"`
	CodeModel   CodeModel `yaml:"code_model" mapstructure:"code_model"`
	OptLevel    int       `yaml:"opt_level" mapstructure:"opt_level"`
	PointerBits int       `yaml:"pointer_bits" mapstructure:"pointer_bits"`
}

// Default returns the AArch64 ELF configuration with the small code model
func Default() Config {
	return Config{
		Name:        "aarch64-linux-gnu",
		CodeModel:   CodeModelSmall,
		OptLevel:    2,
		PointerBits: 64,
	}
}

// Validate checks the configuration for values the backend cannot honour
func (c Config) Validate() error {
	if !c.CodeModel.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCodeModel, c.CodeModel)
	}
	if c.OptLevel < 0 || c.OptLevel > 3 {
		return fmt.Errorf("target: optimization level %d out of range 0-3", c.OptLevel)
	}
	if c.PointerBits != 64 {
		return fmt.Errorf("target: unsupported pointer width %d", c.PointerBits)
	}
	return nil
}

// Load reads a YAML configuration; missing fields keep their defaults
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing target config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
