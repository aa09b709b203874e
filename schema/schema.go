package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hupe1980/researchflow/core"
	"github.com/invopop/jsonschema"
)

// Validator is implemented by every response DTO; it checks invariants the
// JSON schema cannot express (parallel array alignment).
type Validator interface {
	Validate() error
}

// Contract couples a schema name with its generated JSON schema and a
// factory for the DTO it decodes into.
type Contract struct {
	Name   string
	Schema map[string]any
	newDTO func() Validator
}

// Decode validates raw against the closed schema and returns the decoded,
// alignment-checked DTO (a pointer to the registered type).
func (c Contract) Decode(raw []byte) (any, error) {
	payload := stripCodeFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, &core.SchemaValidationError{Schema: c.Name, Message: "payload is not a JSON object"}
	}

	if err := validateObject(c.Name, c.Schema, fields); err != nil {
		return nil, err
	}

	dto := c.newDTO()
	if err := json.Unmarshal(payload, dto); err != nil {
		return nil, &core.SchemaValidationError{Schema: c.Name, Message: err.Error()}
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	return dto, nil
}

var (
	mu        sync.RWMutex
	contracts = map[string]Contract{}
)

// Register generates the schema for T and registers it under name. It panics
// on duplicate names because registration happens during package init.
func Register[T any, PT interface {
	*T
	Validator
}](name string) Contract {
	c := Contract{
		Name:   name,
		Schema: Generate[T](),
		newDTO: func() Validator { return PT(new(T)) },
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := contracts[name]; exists {
		panic(fmt.Sprintf("schema: duplicate contract %q", name))
	}
	contracts[name] = c
	return c
}

// Lookup returns the contract registered under name.
func Lookup(name string) (Contract, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := contracts[name]
	return c, ok
}

// Names lists all registered contract names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(contracts))
	for n := range contracts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Generate reflects a closed JSON schema for T.
func Generate[T any]() map[string]any {
	reflector := &jsonschema.Reflector{
		// Inline everything: strict response formats reject $ref indirections.
		DoNotReference: true,
		ExpandedStruct: true,
	}

	data, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		panic(fmt.Sprintf("schema: marshal %T: %v", *new(T), err))
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		panic(fmt.Sprintf("schema: unmarshal %T: %v", *new(T), err))
	}

	delete(result, "$schema")
	delete(result, "$id")
	result["additionalProperties"] = false

	return result
}

// stripCodeFence removes a surrounding ```json fence some providers emit.
func stripCodeFence(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = bytes.TrimPrefix(s, []byte("```"))
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
	return bytes.TrimSpace(s)
}

// validateObject checks a decoded object against a closed schema: no
// additional properties, every required property present, JSON types and
// numeric / cardinality bounds respected.
func validateObject(name string, schema map[string]any, fields map[string]json.RawMessage) error {
	properties, _ := schema["properties"].(map[string]any)

	for key := range fields {
		if _, ok := properties[key]; !ok {
			return &core.SchemaValidationError{Schema: name, Field: key, Message: "additional property not permitted"}
		}
	}

	for _, req := range requiredFields(schema) {
		if _, ok := fields[req]; !ok {
			return &core.SchemaValidationError{Schema: name, Field: req, Message: "required field is missing"}
		}
	}

	// Deterministic error reporting.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop, _ := properties[key].(map[string]any)
		var value any
		if err := json.Unmarshal(fields[key], &value); err != nil {
			return &core.SchemaValidationError{Schema: name, Field: key, Message: err.Error()}
		}
		if msg := checkValue(prop, value); msg != "" {
			return &core.SchemaValidationError{Schema: name, Field: key, Message: msg}
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

// checkValue returns a non-empty message when value violates prop.
func checkValue(prop map[string]any, value any) string {
	expectedType, _ := prop["type"].(string)
	if !isValidType(value, expectedType) {
		return fmt.Sprintf("expected type %s, got %s", expectedType, jsonTypeName(value))
	}

	switch v := value.(type) {
	case float64:
		if lo, ok := prop["minimum"].(float64); ok && v < lo {
			return fmt.Sprintf("value %v below minimum %v", v, lo)
		}
		if hi, ok := prop["maximum"].(float64); ok && v > hi {
			return fmt.Sprintf("value %v above maximum %v", v, hi)
		}
	case []any:
		if hi, ok := prop["maxItems"].(float64); ok && float64(len(v)) > hi {
			return fmt.Sprintf("%d items exceed maxItems %v", len(v), hi)
		}
		if lo, ok := prop["minItems"].(float64); ok && float64(len(v)) < lo {
			return fmt.Sprintf("%d items below minItems %v", len(v), lo)
		}
		items, _ := prop["items"].(map[string]any)
		for i, item := range v {
			if msg := checkValue(items, item); msg != "" {
				return fmt.Sprintf("item %d: %s", i, msg)
			}
		}
	}

	return ""
}

// isValidType checks if a value is valid according to the expected JSON schema type.
// Unlike lenient tool argument checks, null is never accepted.
func isValidType(value any, expectedType string) bool {
	if value == nil {
		return false
	}

	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		v, ok := value.(float64)
		return ok && v == math.Trunc(v)
	case "number":
		_, ok := value.(float64)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// Field names one side of a parallel-array relation.
type Field struct {
	Name string
	Len  int
}

// Aligned returns an AlignmentError unless every field has the same length.
func Aligned(schemaName string, fields ...Field) error {
	if len(fields) < 2 {
		return nil
	}
	for _, f := range fields[1:] {
		if f.Len != fields[0].Len {
			names := make([]string, len(fields))
			lengths := make([]int, len(fields))
			for i, ff := range fields {
				names[i] = ff.Name
				lengths[i] = ff.Len
			}
			return &core.AlignmentError{Schema: schemaName, Fields: names, Lengths: lengths}
		}
	}
	return nil
}
