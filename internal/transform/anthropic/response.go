package anthropic

import (
	"encoding/json"

	"github.com/aurora-relay/gateway/internal/transform/upstream"
)

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *geminiUsage `json:"usageMetadata"`
}

type geminiPart struct {
	Text         string          `json:"text"`
	Thought      bool            `json:"thought"`
	FunctionCall *geminiFuncCall `json:"functionCall"`
}

type geminiFuncCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// FromUpstream translates one upstream generateContent response into an
// Anthropic-format unary messages response.
func (t *Transformer) FromUpstream(body []byte) (interface{}, error) {
	var up geminiResponse
	if err := json.Unmarshal(body, &up); err != nil {
		return nil, err
	}

	resp := &Response{
		ID:    upstream.RequestID(),
		Type:  "message",
		Role:  "assistant",
		Model: t.Model(),
	}

	sawToolUse := false
	stopReason := "end_turn"

	if len(up.Candidates) > 0 {
		cand := up.Candidates[0]
		for _, p := range cand.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				sawToolUse = true
				input, _ := json.Marshal(p.FunctionCall.Args)
				resp.Content = append(resp.Content, ContentBlock{
					Type:  "tool_use",
					ID:    p.FunctionCall.ID,
					Name:  p.FunctionCall.Name,
					Input: input,
				})
			case p.Thought:
				resp.Content = append(resp.Content, ContentBlock{Type: "thinking", Thinking: p.Text})
			default:
				resp.Content = append(resp.Content, ContentBlock{Type: "text", Text: p.Text})
			}
		}
		stopReason = mapStopReason(cand.FinishReason)
	}
	if sawToolUse {
		stopReason = "tool_use"
	}
	resp.StopReason = stopReason

	if up.UsageMetadata != nil {
		resp.Usage = Usage{
			InputTokens:  up.UsageMetadata.PromptTokenCount,
			OutputTokens: up.UsageMetadata.CandidatesTokenCount,
		}
	}
	return resp, nil
}

func mapStopReason(upstreamReason string) string {
	switch upstreamReason {
	case "MAX_TOKENS":
		return "max_tokens"
	default:
		return "end_turn"
	}
}
