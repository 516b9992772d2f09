package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/aurora-relay/gateway/internal/dispatch"
)

// accumulator tracks the open content-block lifecycle for one Anthropic
// SSE stream: which block index (if any) is currently open for thinking
// and for text, the next free index, and the running finish state.
type accumulator struct {
	started         bool
	nextIndex       int
	openThinkingIdx *int
	openTextIdx     *int
	sawToolUse      bool
	lastFinish      string
	completed       bool
	outputTokens    int
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

type sseEvent struct {
	name string
	data interface{}
}

func (e sseEvent) write(sink dispatch.Sink) error {
	raw, err := json.Marshal(e.data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(sink, "event: %s\ndata: %s\n\n", e.name, raw)
	return err
}

// HandleChunk consumes one upstream SSE payload and writes zero or more
// Anthropic-framed named events.
func (t *Transformer) HandleChunk(payload []byte, sink dispatch.Sink) error {
	var up geminiResponse
	if err := json.Unmarshal(payload, &up); err != nil {
		return err
	}

	if !t.acc.started {
		t.acc.started = true
		if err := (sseEvent{"message_start", map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"id":      "",
				"type":    "message",
				"role":    "assistant",
				"model":   t.Model(),
				"content": []interface{}{},
				"usage":   Usage{},
			},
		}}).write(sink); err != nil {
			return err
		}
	}

	if len(up.Candidates) > 0 {
		cand := up.Candidates[0]
		for _, p := range cand.Content.Parts {
			if err := t.handlePart(p, sink); err != nil {
				return err
			}
		}
		if cand.FinishReason != "" {
			t.acc.lastFinish = cand.FinishReason
		}
	}

	if up.UsageMetadata != nil && up.UsageMetadata.CandidatesTokenCount > 0 {
		t.acc.outputTokens = up.UsageMetadata.CandidatesTokenCount
		t.acc.completed = true
		return t.closeOut(sink)
	}
	return nil
}

func (t *Transformer) handlePart(p geminiPart, sink dispatch.Sink) error {
	switch {
	case p.FunctionCall != nil:
		idx := t.acc.nextIndex
		t.acc.nextIndex++
		t.acc.sawToolUse = true
		if err := (sseEvent{"content_block_start", map[string]interface{}{
			"type":  "content_block_start",
			"index": idx,
			"content_block": map[string]interface{}{
				"type": "tool_use",
				"id":   p.FunctionCall.ID,
				"name": p.FunctionCall.Name,
			},
		}}).write(sink); err != nil {
			return err
		}
		args, _ := json.Marshal(p.FunctionCall.Args)
		if err := (sseEvent{"content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": idx,
			"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": string(args)},
		}}).write(sink); err != nil {
			return err
		}
		return (sseEvent{"content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": idx}}).write(sink)

	case p.Thought:
		idx, opened, err := t.ensureBlockOpen(&t.acc.openThinkingIdx, "thinking", sink)
		if err != nil {
			return err
		}
		_ = opened
		return (sseEvent{"content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": idx,
			"delta": map[string]interface{}{"type": "thinking_delta", "thinking": p.Text},
		}}).write(sink)

	default:
		idx, opened, err := t.ensureBlockOpen(&t.acc.openTextIdx, "text", sink)
		if err != nil {
			return err
		}
		_ = opened
		return (sseEvent{"content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": idx,
			"delta": map[string]interface{}{"type": "text_delta", "text": p.Text},
		}}).write(sink)
	}
}

func (t *Transformer) ensureBlockOpen(slot **int, blockType string, sink dispatch.Sink) (int, bool, error) {
	if *slot != nil {
		return **slot, false, nil
	}
	idx := t.acc.nextIndex
	t.acc.nextIndex++
	*slot = &idx
	err := (sseEvent{"content_block_start", map[string]interface{}{
		"type":          "content_block_start",
		"index":         idx,
		"content_block": map[string]interface{}{"type": blockType},
	}}).write(sink)
	return idx, true, err
}

// Finalize synthesizes the closing sequence when the upstream stream ended
// without ever emitting a usage-bearing chunk.
func (t *Transformer) Finalize(sink dispatch.Sink) error {
	if t.acc.completed {
		return nil
	}
	return t.closeOut(sink)
}

func (t *Transformer) closeOut(sink dispatch.Sink) error {
	for _, idx := range []*int{t.acc.openThinkingIdx, t.acc.openTextIdx} {
		if idx == nil {
			continue
		}
		if err := (sseEvent{"content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": *idx}}).write(sink); err != nil {
			return err
		}
	}

	stopReason := mapStopReason(t.acc.lastFinish)
	if t.acc.sawToolUse {
		stopReason = "tool_use"
	}
	if err := (sseEvent{"message_delta", map[string]interface{}{
		"type":  "message_delta",
		"delta": map[string]interface{}{"stop_reason": stopReason},
		"usage": map[string]interface{}{"output_tokens": t.acc.outputTokens},
	}}).write(sink); err != nil {
		return err
	}
	return (sseEvent{"message_stop", map[string]interface{}{"type": "message_stop"}}).write(sink)
}
