package openai

import (
	"encoding/json"
	"time"

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
// OpenAI-format unary chat-completions response.
func (t *Transformer) FromUpstream(body []byte) (interface{}, error) {
	var up geminiResponse
	if err := json.Unmarshal(body, &up); err != nil {
		return nil, err
	}

	resp := &Response{
		ID:      upstream.RequestID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   t.Model(),
	}

	var content, reasoning string
	var toolCalls []ToolCall
	finish := "stop"

	if len(up.Candidates) > 0 {
		cand := up.Candidates[0]
		for _, p := range cand.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				idx := len(toolCalls)
				args, _ := json.Marshal(p.FunctionCall.Args)
				id := p.FunctionCall.ID
				if id == "" {
					id = upstream.ToolCallID()
				}
				toolCalls = append(toolCalls, ToolCall{
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
		finish = upstream.FinishReason(cand.FinishReason)
	}
	if len(toolCalls) > 0 {
		finish = "tool_calls"
	}

	msg := &RMsg{Role: "assistant"}
	if content != "" {
		msg.Content = &content
	}
	if reasoning != "" {
		msg.ReasoningContent = &reasoning
	}
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}

	resp.Choices = []Choice{{Index: 0, Message: msg, FinishReason: &finish}}
	if up.UsageMetadata != nil {
		resp.Usage = &Usage{
			PromptTokens:     up.UsageMetadata.PromptTokenCount,
			CompletionTokens: up.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      up.UsageMetadata.TotalTokenCount,
		}
	}
	return resp, nil
}
