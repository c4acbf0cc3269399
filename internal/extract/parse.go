// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes a surrounding markdown code fence. Models in JSON
// mode still occasionally wrap output in ```json ... ```.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// decodeObject parses one LLM response into a loose JSON object.
func decodeObject(raw string) (map[string]any, error) {
	cleaned := stripFences(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		// Some models emit a bare array for single-entity prompts. Wrap it
		// under the conventional key so callers see a uniform shape.
		var arr []any
		if arrErr := json.Unmarshal([]byte(cleaned), &arr); arrErr == nil {
			return map[string]any{"items": arr}, nil
		}
		return nil, fmt.Errorf("parsing LLM JSON: %w", err)
	}
	return obj, nil
}

// objectList pulls a list of loose records from the response under any of
// the given keys, tolerating a single bare object.
func objectList(obj map[string]any, keys ...string) []map[string]any {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			var out []map[string]any
			for _, e := range t {
				if m, ok := e.(map[string]any); ok {
					out = append(out, m)
				}
			}
			return out
		case map[string]any:
			return []map[string]any{t}
		}
	}
	return nil
}

// childObject pulls a nested object under any of the given keys.
func childObject(obj map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if m, ok := obj[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}
