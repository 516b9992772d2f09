// Package schema implements the Claude tool-schema cleaning rule shared by
// the OpenAI and Anthropic transformers: JSON-schema keys that the upstream
// Claude models reject are stripped recursively before the schema is sent
// as a functionDeclaration's `parameters`.
package schema

// removedKeys are dropped everywhere in the schema tree, including nested
// $ref targets — a deliberate, lossy simplification (see design notes).
var removedKeys = map[string]bool{
	"$schema":          true,
	"additionalProperties": true,
	"strict":           true,
	"default":          true,
	"title":            true,
	"$id":              true,
	"$ref":             true,
}

// CleanClaudeSchema recursively removes removedKeys from a decoded JSON
// schema. It is idempotent: CleanClaudeSchema(CleanClaudeSchema(s)) equals
// CleanClaudeSchema(s), and none of removedKeys survives anywhere in the
// output.
func CleanClaudeSchema(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if removedKeys[k] {
				continue
			}
			out[k] = CleanClaudeSchema(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = CleanClaudeSchema(val)
		}
		return out
	default:
		return v
	}
}
