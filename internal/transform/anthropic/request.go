package anthropic

import (
	"encoding/json"

	"github.com/aurora-relay/gateway/internal/transform/schema"
	"github.com/aurora-relay/gateway/internal/transform/upstream"
)

// ToUpstreamPayload translates an Anthropic messages request into the
// upstream Cloud Code generateContent body, addressed at the given project.
func ToUpstreamPayload(req *Request, project string) ([]byte, error) {
	contents := make([]map[string]interface{}, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, map[string]interface{}{
			"role":  role,
			"parts": blockParts(msg.Content, role),
		})
	}

	genConfig := map[string]interface{}{
		"maxOutputTokens": req.MaxTokens,
	}
	if req.Thinking != nil && req.Thinking.Type == "enabled" {
		budget := req.Thinking.BudgetTokens
		if budget == 0 {
			budget = 16384
		}
		genConfig["thinkingConfig"] = map[string]interface{}{
			"thinkingBudget":  budget,
			"includeThoughts": true,
		}
	}

	inner := map[string]interface{}{
		"contents":         contents,
		"generationConfig": genConfig,
		"safetySettings":   upstream.DefaultSafetySettings(),
	}
	if sys := systemText(req.System); sys != "" {
		inner["systemInstruction"] = map[string]interface{}{
			"role":  "user",
			"parts": []interface{}{map[string]interface{}{"text": sys}},
		}
	}
	if len(req.Tools) > 0 {
		inner["tools"] = []interface{}{map[string]interface{}{"functionDeclarations": functionDeclarations(req.Tools, req.Model)}}
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

func systemText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err == nil {
		out := ""
		for _, b := range blocks {
			out += b.Text
		}
		return out
	}
	return ""
}

func blockParts(raw json.RawMessage, role string) []interface{} {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []interface{}{map[string]interface{}{"text": s}}
	}
	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return []interface{}{map[string]interface{}{"text": string(raw)}}
	}

	out := make([]interface{}, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, map[string]interface{}{"text": b.Text})
		case "image":
			if b.Source == nil || b.Source.Type != "base64" {
				continue
			}
			out = append(out, map[string]interface{}{
				"inlineData": map[string]interface{}{"mimeType": b.Source.MediaType, "data": b.Source.Data},
			})
		case "tool_result":
			var content interface{}
			if err := json.Unmarshal(b.Content, &content); err != nil {
				content = map[string]interface{}{"output": string(b.Content)}
			}
			out = append(out, map[string]interface{}{
				"functionResponse": map[string]interface{}{
					"name":     "tool_result",
					"id":       b.ToolUseID,
					"response": map[string]interface{}{"result": content},
				},
			})
		case "tool_use":
			var args map[string]interface{}
			_ = json.Unmarshal(b.Input, &args)
			out = append(out, map[string]interface{}{
				"functionCall": map[string]interface{}{
					"id":   b.ID,
					"name": b.Name,
					"args": args,
				},
			})
		}
	}
	return out
}

func functionDeclarations(tools []Tool, model string) []interface{} {
	out := make([]interface{}, 0, len(tools))
	for _, t := range tools {
		decl := map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
		}
		var params interface{}
		if len(t.InputSchema) > 0 {
			_ = json.Unmarshal(t.InputSchema, &params)
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

// ToUpstream implements dispatch.UnaryTransformer/StreamTransformer's
// ToUpstream method for a bound Request.
func (t *Transformer) ToUpstream(project string) ([]byte, error) {
	return ToUpstreamPayload(t.req, project)
}
