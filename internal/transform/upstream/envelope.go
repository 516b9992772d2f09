// Package upstream holds the pieces of the C10/C11 upstream request
// envelope shared between both client dialects: the metadata block, the
// thinking-budget mapping, and the generation-config passthrough.
package upstream

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/aurora-relay/gateway/internal/catalog"
)

// UserAgent identifies the proxy to the upstream Cloud Code API.
const UserAgent = "antigravity/1.11.9 windows/amd64"

// DefaultClaudeMaxTokens is applied when an OpenAI-dialect request targets
// a Claude model without an explicit max_tokens.
const DefaultClaudeMaxTokens = 8192

// ClientMetadata is sent on every generateContent-family call.
var ClientMetadata = map[string]string{
	"ideType":    "IDE_UNSPECIFIED",
	"platform":   "PLATFORM_UNSPECIFIED",
	"pluginType": "GEMINI",
}

// DefaultSafetySettings is the safety-settings table applied to every
// upstream request, loaded from the catalog's embedded config.
func DefaultSafetySettings() []map[string]string {
	return catalog.SafetySettings()
}

// RequestID mints a fresh request id, agent-<uuid>.
func RequestID() string {
	return "agent-" + uuid.NewString()
}

// SessionID mints a negative-prefixed 18-digit decimal session id.
func SessionID() string {
	max := new(big.Int)
	max.SetString("999999999999999999", 10)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		n = big.NewInt(0)
	}
	return fmt.Sprintf("-%018d", n.Int64())
}

// ToolCallID mints a client-facing call_<24-hex> tool-call id when the
// upstream did not provide one.
func ToolCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// ThinkingBudget maps a reasoning_effort value to a thinkingBudget token
// count for Claude and Gemini-2.5 models.
func ThinkingBudget(effort string) int {
	switch effort {
	case "low":
		return 8192
	case "medium":
		return 16384
	case "high":
		return 32768
	default:
		return 16384
	}
}

// IsClaudeModel reports whether a model name refers to a Claude upstream
// variant, which uses a different tool-schema shape and thinking rules.
func IsClaudeModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "claude")
}

// IsGemini3Model reports whether a model is a "Gemini-3" thinking-level
// family member, which uses thinkingLevel instead of thinkingBudget.
func IsGemini3Model(model string) bool {
	return strings.Contains(model, "gemini-3")
}

// IsGemini25Model reports whether a model is a "Gemini-2.5" family member.
func IsGemini25Model(model string) bool {
	return strings.Contains(model, "gemini-2.5")
}

// IsOpusModel reports whether a model is a Claude Opus variant, which
// forces thinking on even without an explicit reasoning_effort.
func IsOpusModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "opus")
}

// FinishReason maps an upstream finishReason to a dialect-neutral bucket:
// "stop", "length", or "content_filter". Dialect layers translate further.
func FinishReason(upstream string) string {
	switch upstream {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	default:
		return "stop"
	}
}
