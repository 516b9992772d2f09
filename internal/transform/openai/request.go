package openai

import (
	"encoding/json"
	"fmt"

	"github.com/aurora-relay/gateway/internal/transform/schema"
	"github.com/aurora-relay/gateway/internal/transform/upstream"
)

// ToUpstreamPayload translates an OpenAI chat-completions request into the
// upstream Cloud Code generateContent body, addressed at the given project.
func ToUpstreamPayload(req *Request, project string) ([]byte, error) {
	contents := make([]map[string]interface{}, 0, len(req.Messages))
	var systemInstruction map[string]interface{}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			systemInstruction = map[string]interface{}{
				"role":  "user",
				"parts": []interface{}{map[string]interface{}{"text": textOf(msg.Content)}},
			}
		case "user":
			contents = append(contents, map[string]interface{}{
				"role":  "user",
				"parts": userParts(msg.Content),
			})
		case "assistant":
			contents = append(contents, map[string]interface{}{
				"role":  "model",
				"parts": assistantParts(msg),
			})
		case "tool":
			contents = append(contents, map[string]interface{}{
				"role":  "user",
				"parts": []interface{}{toolResultPart(msg)},
			})
		}
	}

	genConfig := map[string]interface{}{}
	if req.Temperature != nil {
		genConfig["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		genConfig["topP"] = *req.TopP
	}
	switch {
	case req.MaxTokens != nil:
		genConfig["maxOutputTokens"] = *req.MaxTokens
	case upstream.IsClaudeModel(req.Model):
		genConfig["maxOutputTokens"] = upstream.DefaultClaudeMaxTokens
	}
	if len(req.Stop) > 0 {
		genConfig["stopSequences"] = req.Stop
	}

	applyThinking(genConfig, req.Model, req.ReasoningEffort)

	inner := map[string]interface{}{
		"contents":         contents,
		"generationConfig": genConfig,
		"safetySettings":   upstream.DefaultSafetySettings(),
	}
	if systemInstruction != nil {
		inner["systemInstruction"] = systemInstruction
	}
	if len(req.Tools) > 0 {
		inner["tools"] = []interface{}{map[string]interface{}{"functionDeclarations": functionDeclarations(req.Tools, req.Model)}}
		if tc := toolConfig(req.ToolChoice); tc != nil {
			inner["toolConfig"] = tc
		}
	}
	inner["sessionId"] = upstream.SessionID()

	payload := map[string]interface{}{
		"model":     req.Model,
		"project":   project,
		"userAgent": upstream.UserAgent,
		"requestId": upstream.RequestID(),
		"request":   inner,
	}
	return json.Marshal(payload)
}

func textOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		out := ""
		for _, p := range parts {
			if p.Type == "text" {
				out += p.Text
			}
		}
		return out
	}
	return ""
}

func userParts(raw json.RawMessage) []interface{} {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []interface{}{map[string]interface{}{"text": s}}
	}
	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return []interface{}{map[string]interface{}{"text": string(raw)}}
	}
	out := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, map[string]interface{}{"text": p.Text})
		case "image_url":
			if p.ImageURL == nil {
				continue
			}
			img := upstream.ParseDataURL(p.ImageURL.URL)
			out = append(out, map[string]interface{}{
				"inlineData": map[string]interface{}{"mimeType": img.MimeType, "data": img.Data},
			})
		}
	}
	return out
}

func assistantParts(msg Message) []interface{} {
	var out []interface{}
	if text := textOf(msg.Content); text != "" {
		out = append(out, map[string]interface{}{"text": text})
	}
	for _, tc := range msg.ToolCalls {
		var args map[string]interface{}
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		out = append(out, map[string]interface{}{
			"functionCall": map[string]interface{}{
				"id":   tc.ID,
				"name": tc.Function.Name,
				"args": args,
			},
		})
	}
	return out
}

func toolResultPart(msg Message) map[string]interface{} {
	var content interface{}
	if err := json.Unmarshal(msg.Content, &content); err != nil {
		content = map[string]interface{}{"output": string(msg.Content)}
	}
	return map[string]interface{}{
		"functionResponse": map[string]interface{}{
			"id":       msg.ToolCallID,
			"name":     msg.ToolCallID,
			"response": content,
		},
	}
}

func functionDeclarations(tools []Tool, model string) []interface{} {
	out := make([]interface{}, 0, len(tools))
	for _, t := range tools {
		decl := map[string]interface{}{
			"name":        t.Function.Name,
			"description": t.Function.Description,
		}
		var params interface{}
		if len(t.Function.Parameters) > 0 {
			_ = json.Unmarshal(t.Function.Parameters, &params)
		}
		if upstream.IsClaudeModel(model) {
			decl["parameters"] = schema.CleanClaudeSchema(params)
		} else {
			decl["parametersJsonSchema"] = params
		}
		out = append(out, decl)
	}
	return out
}

func toolConfig(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "auto":
			return fnCallingConfig("AUTO", nil)
		case "none":
			return fnCallingConfig("NONE", nil)
		case "required":
			return fnCallingConfig("ANY", nil)
		}
		return nil
	}
	var named struct {
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &named); err == nil && named.Function.Name != "" {
		return fnCallingConfig("ANY", []string{named.Function.Name})
	}
	return nil
}

func fnCallingConfig(mode string, allowed []string) map[string]interface{} {
	cfg := map[string]interface{}{"mode": mode}
	if len(allowed) > 0 {
		cfg["allowedFunctionNames"] = allowed
	}
	return map[string]interface{}{"functionCallingConfig": cfg}
}

func applyThinking(genConfig map[string]interface{}, model, reasoningEffort string) {
	switch {
	case upstream.IsGemini3Model(model):
		level := "high"
		if reasoningEffort == "low" {
			level = "low"
		}
		genConfig["thinkingConfig"] = map[string]interface{}{
			"thinkingLevel":   level,
			"includeThoughts": true,
		}
	case upstream.IsOpusModel(model):
		budget := -1
		if reasoningEffort != "" {
			budget = upstream.ThinkingBudget(reasoningEffort)
		}
		genConfig["thinkingConfig"] = map[string]interface{}{
			"thinkingBudget":  budget,
			"includeThoughts": true,
		}
	case upstream.IsClaudeModel(model), upstream.IsGemini25Model(model):
		if reasoningEffort == "" {
			return
		}
		genConfig["thinkingConfig"] = map[string]interface{}{
			"thinkingBudget":  upstream.ThinkingBudget(reasoningEffort),
			"includeThoughts": true,
		}
	}
}

// ToUpstream implements dispatch.UnaryTransformer/StreamTransformer's
// ToUpstream method for a bound Request.
func (t *Transformer) ToUpstream(project string) ([]byte, error) {
	if t.req == nil {
		return nil, fmt.Errorf("openai: nil request")
	}
	return ToUpstreamPayload(t.req, project)
}
