package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAPIKeys(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want map[string]string
	}{
		{
			name: "empty",
			env:  "",
			want: map[string]string{},
		},
		{
			name: "single key without caller",
			env:  "secret-one",
			want: map[string]string{"secret-one": "default"},
		},
		{
			name: "key with caller",
			env:  "secret-one:alice",
			want: map[string]string{"secret-one": "alice"},
		},
		{
			name: "multiple keys with whitespace",
			env:  " secret-one:alice , secret-two ,",
			want: map[string]string{"secret-one": "alice", "secret-two": "default"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAPIKeys(tt.env))
		})
	}
}
