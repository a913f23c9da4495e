// Package ai turns a structured prompt into JSON picks. The generated text
// is never trusted: it must parse and satisfy a declared Schema.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSchemaMismatch means the generated text was not JSON of the declared
// shape.
var ErrSchemaMismatch = errors.New("generated output does not match schema")

// Prompt is what the generator is asked to complete. Payload is serialized
// as JSON into the user message.
type Prompt struct {
	System      string      `json:"system"`
	Instruction string      `json:"instruction"`
	Payload     interface{} `json:"payload"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
}

// Generator returns the raw text of a completion.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) ([]byte, error)
}

// Kind is the JSON type expected for a field.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindArray  Kind = "array"
	KindObject Kind = "object"
	KindBool   Kind = "boolean"
)

type Field struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema declares the top-level fields a completion must carry.
type Schema struct {
	Name   string
	Fields []Field
}

// PicksSchema is the shape requested from the generator for tournament picks.
var PicksSchema = Schema{
	Name: "tournament_picks",
	Fields: []Field{
		{Name: "event", Kind: KindString, Required: true},
		{Name: "picks", Kind: KindArray, Required: true},
		{Name: "matchups", Kind: KindArray},
		{Name: "summary", Kind: KindString},
	},
}

// Validate extracts the JSON object from text and checks it against the
// schema. It returns the compacted object.
func (s Schema) Validate(text []byte) (json.RawMessage, error) {
	obj := ExtractJSON(text)
	if obj == nil {
		return nil, fmt.Errorf("%w: %s: no JSON object found", ErrSchemaMismatch, s.Name)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, s.Name, err)
	}

	for _, f := range s.Fields {
		raw, ok := fields[f.Name]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if f.Required {
				return nil, fmt.Errorf("%w: %s: missing field %q", ErrSchemaMismatch, s.Name, f.Name)
			}
			continue
		}
		if got := kindOf(raw); got != f.Kind {
			return nil, fmt.Errorf("%w: %s: field %q is %s, want %s", ErrSchemaMismatch, s.Name, f.Name, got, f.Kind)
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, obj); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, s.Name, err)
	}
	return buf.Bytes(), nil
}

// ExtractJSON returns the outermost {...} span of text, which tolerates code
// fences and prose around the object. It returns nil when there is none.
func ExtractJSON(text []byte) []byte {
	start := bytes.IndexByte(text, '{')
	end := bytes.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil
	}
	return text[start : end+1]
}

func kindOf(raw json.RawMessage) Kind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		return KindString
	case '[':
		return KindArray
	case '{':
		return KindObject
	case 't', 'f':
		return KindBool
	case 'n':
		return "null"
	default:
		return KindNumber
	}
}
