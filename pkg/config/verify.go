package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates a JSON schema for the Config struct.
// Only fields tagged with jsonschema:"required" are required, nested types are inlined.
func GenerateSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{RequiredFromJSONSchemaTags: true, DoNotReference: true, ExpandedStruct: true}
	return r.Reflect(&Config{})
}

// VerifyAgainstSchema checks the config against required fields of the generated schema
func VerifyAgainstSchema(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return verifyObject(GenerateSchema(), doc, "")
}

// verifyObject walks schema properties, checks required ones are set
// and descends into nested objects and arrays of objects
func verifyObject(schema *jsonschema.Schema, doc map[string]any, path string) error {
	for _, name := range schema.Required {
		if isZero(doc[name]) {
			return fmt.Errorf("%s%s is required", path, name)
		}
	}

	if schema.Properties == nil {
		return nil
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		switch v := doc[pair.Key].(type) {
		case map[string]any:
			if err := verifyObject(pair.Value, v, path+pair.Key+"."); err != nil {
				return err
			}
		case []any:
			if pair.Value.Items == nil {
				continue
			}
			for i, elem := range v {
				obj, ok := elem.(map[string]any)
				if !ok {
					continue
				}
				if err := verifyObject(pair.Value.Items, obj, fmt.Sprintf("%s%s[%d].", path, pair.Key, i)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func isZero(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case float64:
		return val == 0
	case bool:
		return false
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}
