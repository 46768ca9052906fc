package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements Provider for YAML parameter files
type YAMLProvider struct {
	filename string
	set      *Set
}

// NewYAMLProvider creates a new YAML parameter provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadParameters loads the complete parameter set from the YAML file
func (y *YAMLProvider) LoadParameters() (*Set, error) {
	raw, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	var set Set
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file: %w", err)
	}

	y.set = &set
	return y.set, nil
}

// IsReadOnly always returns true for YAML providers
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML providers
func (y *YAMLProvider) Close() error {
	return nil
}
