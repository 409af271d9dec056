// Package risk turns free text into risk category flags and an ordered
// severity level. Detection is deliberately keyword-based: deterministic
// substring matching over configurable category lists, never NLP, so the
// same input always produces the same audit trail.
package risk

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	towerotel "github.com/Kushall-07/Ai-tower/internal/otel"
)

var tracer = towerotel.Tracer("github.com/Kushall-07/Ai-tower/internal/risk")

// Classifier detects risk categories in text using configurable keyword lists.
type Classifier struct {
	categories []compiledCategory
}

type compiledCategory struct {
	name     Flag
	keywords []string // lower case
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*classifierConfig)

type classifierConfig struct {
	keywordFile string
	extra       []CategoryConfig
}

// WithKeywordFile loads operator category overrides from a YAML file.
// If the file does not exist, it is silently skipped.
func WithKeywordFile(path string) ClassifierOption {
	return func(c *classifierConfig) { c.keywordFile = path }
}

// WithCategories appends in-memory category definitions on top of the
// defaults and any operator file. Mainly used by tests.
func WithCategories(categories []CategoryConfig) ClassifierOption {
	return func(c *classifierConfig) { c.extra = categories }
}

// NewClassifier creates a risk classifier. Without options it uses the
// embedded default categories; options layer operator overrides on top.
func NewClassifier(opts ...ClassifierOption) (*Classifier, error) {
	var cfg classifierConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultCategories()
	if err != nil {
		return nil, err
	}

	var fileCategories []CategoryConfig
	if cfg.keywordFile != "" {
		kf, err := LoadKeywordFile(cfg.keywordFile)
		if err != nil {
			return nil, fmt.Errorf("loading keyword file: %w", err)
		}
		if kf != nil {
			fileCategories = kf.Categories
		}
	}

	merged := MergeCategories(defaults, fileCategories, cfg.extra)

	compiled := make([]compiledCategory, 0, len(merged))
	for _, cc := range merged {
		if cc.Name == "" || len(cc.Keywords) == 0 {
			continue
		}
		keywords := make([]string, 0, len(cc.Keywords))
		for _, k := range cc.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		compiled = append(compiled, compiledCategory{
			name:     Flag(cc.Name),
			keywords: keywords,
		})
	}

	return &Classifier{categories: compiled}, nil
}

// MustNewClassifier creates a classifier from the embedded defaults and
// panics on error. The embedded YAML is validated by tests, so a failure
// here means a broken build.
func MustNewClassifier() *Classifier {
	c, err := NewClassifier()
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the set of risk flags present in text. A category's flag
// is set when any of its keywords is a substring of the lower-cased input.
// Empty input yields an empty set. Classify is pure and never fails.
func (c *Classifier) Classify(ctx context.Context, text string) FlagSet {
	_, span := tracer.Start(ctx, "risk.classify")
	defer span.End()

	flags := make(FlagSet)
	if text == "" {
		return flags
	}

	lowered := strings.ToLower(text)
	for _, cat := range c.categories {
		for _, kw := range cat.keywords {
			if strings.Contains(lowered, kw) {
				flags[cat.name] = struct{}{}
				break
			}
		}
	}

	span.SetAttributes(attribute.StringSlice("risk.flags", flags.Strings()))
	return flags
}
