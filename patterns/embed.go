// Package patterns provides embedded default risk keyword definitions.
// The YAML file in this directory maps risk categories to keyword lists;
// operators can extend or override it via a global keywords file.
package patterns

import _ "embed"

//go:embed risk_keywords.yaml
var riskKeywordsYAML []byte

// RiskKeywordsYAML returns the embedded default risk keyword definitions.
func RiskKeywordsYAML() []byte { return riskKeywordsYAML }
