package policy

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// schemaV1 is the JSON Schema for tower.policy.yaml.
const schemaV1 = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "tower.policy.yaml Configuration",
  "description": "AI Tower gating policy configuration",
  "type": "object",
  "required": ["policy"],
  "additionalProperties": true,
  "properties": {
    "policy": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "block_destructive_actions": {"type": "boolean"},
        "require_approval_for_security_sensitive": {"type": "boolean"},
        "require_approval_for_sensitive_data": {"type": "boolean"},
        "require_approval_for_high_risk": {"type": "boolean"}
      }
    },
    "actions": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "risky_types": {
          "type": "array",
          "items": {"type": "string", "minLength": 1, "pattern": "^[a-z0-9_.-]+$"}
        }
      }
    }
  }
}`

// ValidateSchema validates policy YAML bytes against the JSON schema.
func ValidateSchema(yamlBytes []byte) error {
	// Convert YAML to a generic map, then marshal to JSON
	var raw interface{}
	if err := yaml.Unmarshal(yamlBytes, &raw); err != nil {
		return fmt.Errorf("parsing YAML for schema validation: %w", err)
	}

	normalized := normalizeYAML(raw)

	jsonBytes, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaV1)
	documentLoader := gojsonschema.NewBytesLoader(jsonBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for _, verr := range result.Errors() {
			errMsg += fmt.Sprintf("- %s\n", verr)
		}
		return fmt.Errorf("schema validation errors:\n%s", errMsg)
	}

	return nil
}

// normalizeYAML converts map[interface{}]interface{} (which yaml.v3 can
// produce for nested maps) into map[string]interface{} so the document can
// be marshalled to JSON.
func normalizeYAML(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
