package tool

import (
	"fmt"
	"strings"
)

// ValidationError reports a tool argument the model got wrong. It is returned
// to the model as the tool output so it can correct the call.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument '%s': %s", e.Field, e.Message)
}

// ValidateParameters checks model supplied arguments against a tool's
// parameter schema. Required fields must be present and required strings
// non-blank; known fields must match their declared type. Unknown fields
// are ignored.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	properties, _ := schema["properties"].(map[string]any)

	for _, name := range requiredFields(schema) {
		v, ok := params[name]
		if !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return &ValidationError{Field: name, Value: v, Message: "must not be blank"}
		}
	}

	for name, v := range params {
		prop, _ := properties[name].(map[string]any)
		if prop == nil {
			continue
		}

		want, _ := prop["type"].(string)
		if !hasType(v, want) {
			return &ValidationError{Field: name, Value: v, Message: fmt.Sprintf("expected type %s, got %T", want, v)}
		}
	}

	return nil
}

func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// hasType reports whether a JSON-decoded value matches a JSON schema type.
// Null matches every type.
func hasType(v any, want string) bool {
	if v == nil {
		return true
	}

	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "integer":
		f, ok := v.(float64)
		if ok {
			return f == float64(int64(f))
		}
		_, ok = v.(int)
		return ok
	case "number":
		switch v.(type) {
		case float64, int:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}
