package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCleanClaudeSchema_RemovesKeysAtEveryDepth(t *testing.T) {
	in := decode(t, `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title": "root",
		"type": "object",
		"properties": {
			"a": {"type": "string", "default": "x", "$ref": "#/defs/a"},
			"b": {"type": "object", "additionalProperties": false, "properties": {"c": {"strict": true, "type": "number"}}}
		}
	}`)

	out := CleanClaudeSchema(in)
	raw, _ := json.Marshal(out)
	for _, key := range []string{"$schema", "title", "default", "$ref", "additionalProperties", "strict"} {
		if strings.Contains(string(raw), key) {
			t.Fatalf("expected %q to be removed, got %s", key, raw)
		}
	}
}

func TestCleanClaudeSchema_Idempotent(t *testing.T) {
	in := decode(t, `{"$schema":"s","type":"object","properties":{"a":{"default":1}}}`)
	once := CleanClaudeSchema(in)
	twice := CleanClaudeSchema(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected idempotence: once=%v twice=%v", once, twice)
	}
}
