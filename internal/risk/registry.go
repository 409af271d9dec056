package risk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Kushall-07/Ai-tower/patterns"
)

// KeywordFile is the top-level YAML structure for a risk keyword config file.
type KeywordFile struct {
	Categories []CategoryConfig `yaml:"categories"`
}

// CategoryConfig maps one risk category to its keyword list.
type CategoryConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
}

// ParseKeywordFile parses keyword YAML bytes into a KeywordFile.
func ParseKeywordFile(data []byte) (*KeywordFile, error) {
	var kf KeywordFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parsing keyword YAML: %w", err)
	}
	return &kf, nil
}

// LoadKeywordFile reads and parses a keyword YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing operator config as a no-op.
func LoadKeywordFile(path string) (*KeywordFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading keyword file %s: %w", path, err)
	}
	return ParseKeywordFile(data)
}

// DefaultCategories returns the embedded default keyword categories.
func DefaultCategories() ([]CategoryConfig, error) {
	kf, err := ParseKeywordFile(patterns.RiskKeywordsYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded keyword defaults: %w", err)
	}
	return kf.Categories, nil
}

// MergeCategories layers operator overrides on top of the defaults.
// Later layers override earlier ones by matching on the category Name;
// new categories are appended, so adding a category never requires a
// code change.
func MergeCategories(layers ...[]CategoryConfig) []CategoryConfig {
	index := make(map[string]int)
	var merged []CategoryConfig

	for _, layer := range layers {
		for _, cc := range layer {
			if idx, exists := index[cc.Name]; exists {
				merged[idx] = cc
			} else {
				index[cc.Name] = len(merged)
				merged = append(merged, cc)
			}
		}
	}

	return merged
}
