package mcpserver

import (
	"encoding/json"
	"fmt"

	"pagebuilder/internal/domain"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// propsArg reads a props patch passed either as a JSON object or as a
// JSON-encoded string.
func propsArg(args map[string]any, key string) (domain.Props, error) {
	switch v := args[key].(type) {
	case map[string]any:
		return domain.Props(v), nil
	case string:
		var p domain.Props
		if err := parseJSON(v, &p); err != nil {
			return nil, fmt.Errorf("%s: invalid JSON: %w", key, err)
		}
		return p, nil
	case nil:
		return nil, fmt.Errorf("%s is required", key)
	default:
		return nil, fmt.Errorf("%s must be an object", key)
	}
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// schemaJSON encodes a plugin's input schema, falling back to an empty
// object schema.
func schemaJSON(schema map[string]any) json.RawMessage {
	if len(schema) == 0 {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return data
}
