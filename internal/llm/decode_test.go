package llm_test

import (
	"testing"

	"eventimporter/internal/llm"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"title":"A"}`, "A", false},
		{"fenced", "```json\n{\"title\":\"B\"}\n```", "B", false},
		{"fence no language", "```\n{\"title\":\"C\"}\n```", "C", false},
		{"prose wrapped", `Here is the event: {"title":"D"} as requested.`, "D", false},
		{"empty", "   ", "", true},
		{"no json", "sorry, I cannot help with that", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out payload
			err := llm.DecodeJSON(tt.content, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if out.Title != tt.want {
				t.Fatalf("title = %q, want %q", out.Title, tt.want)
			}
		})
	}
}
