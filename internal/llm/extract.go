package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ProposedAction is an action suggestion parsed out of a model response.
type ProposedAction struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// ExtractActions scans a model response for an embedded JSON array of
// {type, payload} objects and returns any well-formed entries. Model output
// is rarely strict JSON, so the candidate block is run through jsonrepair
// first. Extraction is best-effort: anything unparseable yields an empty
// slice, never an error.
func ExtractActions(content string) []ProposedAction {
	block := jsonBlock(content)
	if block == "" {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(block)
	if err != nil {
		return nil
	}

	var raw []ProposedAction
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return nil
	}

	actions := make([]ProposedAction, 0, len(raw))
	for _, a := range raw {
		if strings.TrimSpace(a.Type) == "" {
			continue
		}
		if a.Payload == nil {
			a.Payload = map[string]interface{}{}
		}
		actions = append(actions, a)
	}
	return actions
}

// jsonBlock returns the outermost [...] span in content, or "" if none.
func jsonBlock(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
