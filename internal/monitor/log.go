package monitor

// RequestLog is one row of the audit log: a snapshot of a proxied request
// and how it was dispatched, not a substitute for account state.
type RequestLog struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Timestamp    int64  `gorm:"index" json:"timestamp"`
	Dialect      string `gorm:"index" json:"dialect"` // "openai" or "anthropic"
	Path         string `json:"path"`
	Status       int    `json:"status"`
	DurationMS   int64  `json:"duration_ms"`
	Model        string `gorm:"index" json:"model,omitempty"`
	AccountEmail string `json:"account_email,omitempty"`
	Streaming    bool   `json:"streaming"`
	Error        string `json:"error,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Stats holds aggregated request counters.
type Stats struct {
	TotalRequests int64 `json:"total_requests"`
	SuccessCount  int64 `json:"success_count"`
	ErrorCount    int64 `json:"error_count"`
}
