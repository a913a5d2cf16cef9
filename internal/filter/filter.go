// Package filter runs jq expressions over decoded API responses.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// NormalizeExpression undoes shell escaping that breaks jq operators.
// Zsh escapes ! to \! even in single quotes, which turns != into \!=.
func NormalizeExpression(expr string) string {
	return strings.ReplaceAll(expr, `\!`, `!`)
}

// Apply runs expression against data. An empty expression returns data
// unchanged. A single result is returned bare; several come back as a slice.
//
// When a root-array query such as .[] fails on a response envelope, it is
// retried against the envelope's data array, so `.[] | .name` works on
// {"success": true, "data": [...]}.
func Apply(data any, expression string) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return data, nil
	}

	expression = NormalizeExpression(expression)
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	results, err := run(code, data)
	if err != nil {
		if inner, ok := envelopeData(data, expression); ok {
			if retry, retryErr := run(code, inner); retryErr == nil {
				return collapse(retry), nil
			}
		}
		return nil, err
	}
	return collapse(results), nil
}

// ApplyJSON decodes raw JSON and applies expression.
func ApplyJSON(raw []byte, expression string) (any, error) {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return Apply(data, expression)
}

// Normalize converts v into the generic JSON shapes gojq accepts
// (map[string]any, []any, float64 and so on).
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, map[string]any, []any:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func run(code *gojq.Code, data any) ([]any, error) {
	iter := code.Run(data)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func collapse(results []any) any {
	if len(results) == 1 {
		return results[0]
	}
	return results
}

func envelopeData(data any, expression string) (any, bool) {
	expr := strings.TrimSpace(expression)
	if !strings.HasPrefix(expr, ".[]") && !strings.HasPrefix(expr, "[.[]") {
		return nil, false
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	inner, ok := m["data"].([]any)
	return inner, ok
}
