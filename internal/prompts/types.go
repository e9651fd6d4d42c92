// Package prompts provides prompt management with embedded defaults and
// file-based overrides.
//
// Embedded .tmpl files in the prompt subpackages are the source of truth for
// defaults. An operator can drop a file named <key>.tmpl into the overrides
// directory (usually <home>/prompts) to replace a default without rebuilding.
//
// Resolution order:
//  1. Override file (if it exists)
//  2. Embedded default
package prompts

import (
	"time"
)

// Override is an operator-supplied replacement for an embedded prompt.
type Override struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"` // SHA256 of Text, logged with each generation
}

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   `json:"key"` // Hierarchical key: story.system
	Text        string   `json:"text"`
	Description string   `json:"description"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash"`
}
