package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoJSON is returned when model output contains no decodable JSON value.
var ErrNoJSON = errors.New("no JSON value in model output")

// extractJSON finds the first JSON object or array in model output and
// returns it re-encoded with sorted keys. Fenced blocks and surrounding
// prose are tolerated; anything after the value is ignored.
func extractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty model output: %w", ErrNoJSON)
	}
	if body, ok := fencedBlock(content); ok {
		if v, err := decodeFirst(body); err == nil {
			return v, nil
		}
	}
	for i, r := range content {
		if r != '{' && r != '[' {
			continue
		}
		if v, err := decodeFirst(content[i:]); err == nil {
			return v, nil
		}
	}
	return nil, ErrNoJSON
}

// fencedBlock returns the body of the first ``` block, without its
// language tag.
func fencedBlock(content string) (string, bool) {
	start := strings.Index(content, "```")
	if start < 0 {
		return "", false
	}
	rest := content[start+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return "", false
	}
	rest = rest[nl+1:]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

func decodeFirst(s string) (json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]any, []any:
	default:
		return nil, ErrNoJSON
	}
	return json.Marshal(v)
}

// schemas caches compiled validators keyed by the raw schema text.
var schemas sync.Map

// checkSchema validates doc against schema. Schemas may be bare or wrapped
// as {"name": ..., "schema": {...}}. A nil schema accepts anything.
func checkSchema(schema, doc json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("decode output for validation: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)
	if s, ok := schemas.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	var wrapper struct {
		Schema json.RawMessage `json:"schema"`
	}
	body := schema
	if json.Unmarshal(schema, &wrapper) == nil && len(wrapper.Schema) > 0 {
		body = wrapper.Schema
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("output.json", bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile("output.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schemas.Store(key, compiled)
	return compiled, nil
}

// DecodeJSON unmarshals a chain result's parsed JSON into out.
func DecodeJSON(result *TextResult, out any) error {
	if result == nil {
		return fmt.Errorf("nil text result")
	}
	raw := result.ParsedJSON
	if len(raw) == 0 {
		parsed, err := extractJSON(result.Content)
		if err != nil {
			return err
		}
		raw = parsed
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s output: %w", result.Provider, err)
	}
	return nil
}
