package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aurora-relay/gateway/internal/apierrors"
)

func err401() *apierrors.Error {
	return apierrors.New("AuthenticationFailed", http.StatusUnauthorized, "invalid API key")
}

// writeError renders err as the dialect-specific error body and status.
func writeError(w http.ResponseWriter, dialect string, err error) {
	apiErr := apierrors.AsError(err)
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	if apiErr.Kind == apierrors.KindRateLimitExhausted && apiErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
	}
	w.WriteHeader(status)

	switch dialect {
	case "anthropic":
		json.NewEncoder(w).Encode(apierrors.ToAnthropicBody(apiErr))
	default:
		json.NewEncoder(w).Encode(apierrors.ToOpenAIBody(apiErr))
	}
}
