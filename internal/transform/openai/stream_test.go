package openai

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type bufSink struct {
	bytes.Buffer
	flushed bool
}

func (s *bufSink) Flush() { s.flushed = true }

func TestStream_ToolCallAssembly(t *testing.T) {
	transformer := New(&Request{Model: "gemini-3-flash"})
	sink := &bufSink{}

	chunks := []string{
		`{"candidates":[{"content":{"parts":[{"text":"Hi"}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"functionCall":{"name":"lookup","args":{"q":"x"}}}]}}]}`,
		`{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":3,"totalTokenCount":8}}`,
	}
	for _, c := range chunks {
		if err := transformer.HandleChunk([]byte(c), sink); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	records := splitRecords(sink.String())
	if len(records) != 4 {
		t.Fatalf("expected 4 records (3 chunks + [DONE]), got %d: %v", len(records), records)
	}

	var first Chunk
	mustDecode(t, records[0], &first)
	if first.Choices[0].Delta.Role != "assistant" || *first.Choices[0].Delta.Content != "Hi" {
		t.Fatalf("unexpected first chunk: %+v", first.Choices[0].Delta)
	}

	var second Chunk
	mustDecode(t, records[1], &second)
	tc := second.Choices[0].Delta.ToolCalls[0]
	if tc.Function.Name != "lookup" || tc.Function.Arguments != `{"q":"x"}` || tc.Type != "function" || *tc.Index != 0 {
		t.Fatalf("unexpected tool call delta: %+v", tc)
	}

	var third Chunk
	mustDecode(t, records[2], &third)
	if *third.Choices[0].FinishReason != "tool_calls" {
		t.Fatalf("expected finish_reason tool_calls, got %v", *third.Choices[0].FinishReason)
	}
	if third.Usage == nil || third.Usage.TotalTokens != 8 {
		t.Fatalf("expected usage block, got %+v", third.Usage)
	}

	if records[3] != "[DONE]" {
		t.Fatalf("expected trailing [DONE] sentinel, got %q", records[3])
	}
	if sink.flushed {
		t.Fatalf("HandleChunk must not flush the sink itself, that's the Dispatcher's job")
	}
}

func TestStream_FinalizeSynthesizesClosingChunkWhenNoUsageSeen(t *testing.T) {
	transformer := New(&Request{Model: "gemini-3-flash"})
	sink := &bufSink{}

	if err := transformer.HandleChunk([]byte(`{"candidates":[{"content":{"parts":[{"text":"partial"}]}}]}`), sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := transformer.Finalize(sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := splitRecords(sink.String())
	if records[len(records)-1] != "[DONE]" {
		t.Fatalf("expected trailing [DONE], got %v", records)
	}
	var last Chunk
	mustDecode(t, records[len(records)-2], &last)
	if *last.Choices[0].FinishReason != "stop" {
		t.Fatalf("expected synthesized stop finish reason, got %v", *last.Choices[0].FinishReason)
	}
}

func splitRecords(s string) []string {
	var out []string
	for _, block := range strings.Split(s, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(block, "data: "))
	}
	return out
}

func mustDecode(t *testing.T, s string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
}
