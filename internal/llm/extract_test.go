package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractActions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []ProposedAction
	}{
		{
			name:    "plain array",
			content: `[{"type":"email_send","payload":{"to":"ops"}}]`,
			want: []ProposedAction{
				{Type: "email_send", Payload: map[string]interface{}{"to": "ops"}},
			},
		},
		{
			name:    "array embedded in prose",
			content: `Here is my plan: [{"type":"report_generate","payload":{}}] Let me know.`,
			want: []ProposedAction{
				{Type: "report_generate", Payload: map[string]interface{}{}},
			},
		},
		{
			name:    "trailing comma is repaired",
			content: `[{"type":"data_query","payload":{"table":"orders"},}]`,
			want: []ProposedAction{
				{Type: "data_query", Payload: map[string]interface{}{"table": "orders"}},
			},
		},
		{
			name:    "single quotes are repaired",
			content: `[{'type': 'email_send', 'payload': {'to': 'ops'}}]`,
			want: []ProposedAction{
				{Type: "email_send", Payload: map[string]interface{}{"to": "ops"}},
			},
		},
		{
			name:    "entries without a type are dropped",
			content: `[{"payload":{"x":1}},{"type":"email_send","payload":{}}]`,
			want: []ProposedAction{
				{Type: "email_send", Payload: map[string]interface{}{}},
			},
		},
		{
			name:    "missing payload becomes empty map",
			content: `[{"type":"email_send"}]`,
			want: []ProposedAction{
				{Type: "email_send", Payload: map[string]interface{}{}},
			},
		},
		{
			name:    "no array present",
			content: "I could not come up with any actions.",
			want:    nil,
		},
		{
			name:    "empty input",
			content: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractActions(tt.content)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, len(tt.want))
			assert.Equal(t, tt.want, got)
		})
	}
}
