package narrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses a raw backend payload into T. Payloads may be bare JSON,
// YAML, or either wrapped in a markdown code fence. Decoding failures wrap
// ErrMalformedResponse.
func Decode[T any](raw string) (*T, error) {
	body := StripFences(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedResponse)
	}

	var out T
	if err := json.Unmarshal([]byte(body), &out); err == nil {
		return &out, nil
	}

	// JSON is a subset of YAML, so this also catches lenient JSON such as
	// unquoted keys or trailing prose after a fenced block was stripped.
	out = *new(T)
	var generic any
	if err := yaml.Unmarshal([]byte(body), &generic); err == nil {
		if m, ok := stringKeys(generic).(map[string]any); ok {
			data, err := json.Marshal(m)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			if err := json.Unmarshal(data, &out); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			return &out, nil
		}
	}

	// Last resort: the outermost JSON object embedded in surrounding prose
	out = *new(T)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(body[start:end+1]), &out); err == nil {
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: payload is neither JSON nor a YAML mapping", ErrMalformedResponse)
}

// StripFences removes a surrounding markdown code fence, with or without a
// language tag, and trims whitespace.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	rest := s[open+3:]
	// drop the language tag line (```json, ```yaml)
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if !strings.ContainsAny(tag, "{[:") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// stringKeys converts the map[any]any values yaml produces for non-string
// keys into map[string]any so the result can be re-encoded as JSON.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = stringKeys(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}
