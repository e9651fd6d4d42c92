package providers

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare object", `{"ok":true}`, `{"ok":true}`},
		{"fenced", "```json\n{\"ok\":true}\n```", `{"ok":true}`},
		{"fence without tag", "```\n[1,2]\n```", `[1,2]`},
		{"prose around", "Here is your story:\n{\"title\":\"Moon\",\"beats\":[]}\nEnjoy!", `{"beats":[],"title":"Moon"}`},
		{"braces in prose before value", "Use {curly} wisely. {\"a\":1}", `{"a":1}`},
		{"trailing value ignored", `{"a":1} {"b":2}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.content)
			if err != nil {
				t.Fatalf("extractJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("extractJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractJSON_NoValue(t *testing.T) {
	for _, content := range []string{"   ", "no json here", `"just a string"`, "42"} {
		if _, err := extractJSON(content); !errors.Is(err, ErrNoJSON) {
			t.Errorf("extractJSON(%q) error = %v, want ErrNoJSON", content, err)
		}
	}
}

func TestCheckSchema(t *testing.T) {
	wrapped := json.RawMessage(`{
		"name":"story",
		"schema":{
			"type":"object",
			"properties":{"beats":{"type":"array","minItems":2}},
			"required":["beats"]
		}
	}`)
	bare := json.RawMessage(`{"type":"object","required":["prompt"]}`)

	if err := checkSchema(wrapped, json.RawMessage(`{"beats":[1,2]}`)); err != nil {
		t.Errorf("wrapped valid: %v", err)
	}
	if err := checkSchema(wrapped, json.RawMessage(`{"beats":[1]}`)); err == nil {
		t.Error("wrapped invalid: expected error")
	}
	if err := checkSchema(bare, json.RawMessage(`{"prompt":"x"}`)); err != nil {
		t.Errorf("bare valid: %v", err)
	}
	if err := checkSchema(bare, json.RawMessage(`{}`)); err == nil {
		t.Error("bare invalid: expected error")
	}
	if err := checkSchema(nil, json.RawMessage(`{"anything":true}`)); err != nil {
		t.Errorf("no schema: %v", err)
	}
	if _, err := compileSchema(json.RawMessage(`{"type":"nonsense"}`)); err == nil {
		t.Error("expected compile error for invalid schema")
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Prompt string `json:"prompt"`
	}
	t.Run("prefers parsed JSON", func(t *testing.T) {
		res := &TextResult{Content: "ignored", ParsedJSON: json.RawMessage(`{"prompt":"a fox"}`)}
		if err := DecodeJSON(res, &out); err != nil {
			t.Fatalf("DecodeJSON: %v", err)
		}
		if out.Prompt != "a fox" {
			t.Errorf("expected 'a fox', got %q", out.Prompt)
		}
	})
	t.Run("falls back to content", func(t *testing.T) {
		res := &TextResult{Content: "```json\n{\"prompt\":\"a bear\"}\n```"}
		if err := DecodeJSON(res, &out); err != nil {
			t.Fatalf("DecodeJSON: %v", err)
		}
		if out.Prompt != "a bear" {
			t.Errorf("expected 'a bear', got %q", out.Prompt)
		}
	})
	t.Run("nil result", func(t *testing.T) {
		if err := DecodeJSON(nil, &out); err == nil {
			t.Error("expected error")
		}
	})
}
