package openai

import (
	"encoding/json"
	"fmt"

	"github.com/aurora-relay/gateway/internal/dispatch"
	"github.com/aurora-relay/gateway/internal/transform/upstream"
)

// accumulator is the per-stream state described in spec §3: text/reasoning
// buffers, partial tool calls by index, and the last observed finish
// reason. It is not safe for concurrent use; one accumulator per stream.
type accumulator struct {
	firstEmission bool
	toolIdx       int
	sawToolCall   bool
	lastFinish    string
	completed     bool
}

func newAccumulator() *accumulator {
	return &accumulator{firstEmission: true}
}

// HandleChunk consumes one upstream SSE payload and writes zero or one
// OpenAI-framed `data: ...\n\n` record per upstream chunk.
func (t *Transformer) HandleChunk(payload []byte, sink dispatch.Sink) error {
	var up geminiResponse
	if err := json.Unmarshal(payload, &up); err != nil {
		return err
	}

	choice := Choice{Index: 0, Delta: &RMsg{}}
	if t.acc.firstEmission {
		choice.Delta.Role = "assistant"
		t.acc.firstEmission = false
	}

	if len(up.Candidates) > 0 {
		cand := up.Candidates[0]
		var content, reasoning string
		for _, p := range cand.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				idx := t.acc.toolIdx
				t.acc.toolIdx++
				t.acc.sawToolCall = true
				args, _ := json.Marshal(p.FunctionCall.Args)
				id := p.FunctionCall.ID
				if id == "" {
					id = upstream.ToolCallID()
				}
				choice.Delta.ToolCalls = append(choice.Delta.ToolCalls, ToolCall{
					Index: &idx,
					ID:    id,
					Type:  "function",
					Function: ToolCallFunction{
						Name:      p.FunctionCall.Name,
						Arguments: string(args),
					},
				})
			case p.Thought:
				reasoning += p.Text
			default:
				content += p.Text
			}
		}
		if content != "" {
			choice.Delta.Content = &content
		}
		if reasoning != "" {
			choice.Delta.ReasoningContent = &reasoning
		}
		if cand.FinishReason != "" {
			t.acc.lastFinish = cand.FinishReason
		}
	}

	if deltaHasContent(choice.Delta) {
		if err := writeChunk(sink, t, choice, nil); err != nil {
			return err
		}
	}

	if up.UsageMetadata != nil && up.UsageMetadata.CandidatesTokenCount > 0 {
		t.acc.completed = true
		finish := t.finalFinishReason()
		usage := &Usage{
			PromptTokens:     up.UsageMetadata.PromptTokenCount,
			CompletionTokens: up.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      up.UsageMetadata.TotalTokenCount,
		}
		if err := writeChunk(sink, t, Choice{Index: 0, Delta: &RMsg{}, FinishReason: &finish}, usage); err != nil {
			return err
		}
		return writeDone(sink)
	}
	return nil
}

// Finalize synthesizes the closing chunk when the upstream stream ended
// without ever emitting a usage-bearing chunk.
func (t *Transformer) Finalize(sink dispatch.Sink) error {
	if t.acc.completed {
		return nil
	}
	finish := t.finalFinishReason()
	if err := writeChunk(sink, t, Choice{Index: 0, Delta: &RMsg{}, FinishReason: &finish}, nil); err != nil {
		return err
	}
	return writeDone(sink)
}

func (t *Transformer) finalFinishReason() string {
	switch {
	case t.acc.sawToolCall:
		return "tool_calls"
	case t.acc.lastFinish == "MAX_TOKENS":
		return "length"
	case t.acc.lastFinish == "SAFETY" || t.acc.lastFinish == "RECITATION":
		return "content_filter"
	default:
		return "stop"
	}
}

// deltaHasContent reports whether a delta carries anything worth sending to
// the client on its own; a chunk whose only content is finishReason/usage
// bookkeeping should not produce an extra blank record.
func deltaHasContent(delta *RMsg) bool {
	return delta.Role != "" || delta.Content != nil || delta.ReasoningContent != nil || len(delta.ToolCalls) > 0
}

func writeChunk(sink dispatch.Sink, t *Transformer, choice Choice, usage *Usage) error {
	chunk := Chunk{
		ID:      upstream.RequestID(),
		Object:  "chat.completion.chunk",
		Model:   t.Model(),
		Choices: []Choice{choice},
		Usage:   usage,
	}
	raw, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(sink, "data: %s\n\n", raw)
	return err
}

func writeDone(sink dispatch.Sink) error {
	_, err := fmt.Fprint(sink, "data: [DONE]\n\n")
	return err
}
