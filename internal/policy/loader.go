package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	towerotel "github.com/Kushall-07/Ai-tower/internal/otel"
)

var tracer = towerotel.Tracer("github.com/Kushall-07/Ai-tower/internal/policy")

// ResolvePathUnderBase resolves path relative to baseDir and returns an
// absolute path that is guaranteed to be under baseDir. Prevents path
// traversal when path is user-controlled.
func ResolvePathUnderBase(baseDir, path string) (string, error) {
	dirAbs, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return "", fmt.Errorf("policy base directory: %w", err)
	}
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(dirAbs, path)
	}
	full = filepath.Clean(full)
	pathAbs, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("policy path: %w", err)
	}
	rel, err := filepath.Rel(dirAbs, pathAbs)
	if err != nil {
		return "", fmt.Errorf("policy path outside base directory")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("policy path outside base directory")
	}
	return pathAbs, nil
}

// Load reads and validates a tower.policy.yaml file. A missing file is not
// an error: the built-in default policy applies, so a fresh install gates
// conservatively without any setup.
func Load(ctx context.Context, path string) (*Policy, error) {
	_, span := tracer.Start(ctx, "policy.load")
	defer span.End()
	span.SetAttributes(attribute.String("policy.path", path))

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	return Parse(content)
}

// Parse validates and unmarshals policy YAML bytes. Toggles absent from the
// file default to enabled; an empty risky-type list falls back to the
// built-in set.
func Parse(content []byte) (*Policy, error) {
	if err := ValidateSchema(content); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	pol := Default()
	if err := yaml.Unmarshal(content, pol); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(pol.Actions.RiskyTypes) == 0 {
		pol.Actions.RiskyTypes = append([]string(nil), DefaultRiskyTypes...)
	}

	pol.ComputeHash(content)
	return pol, nil
}
