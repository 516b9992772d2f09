package transport

import (
	"bytes"
	"context"
	"net/http"
)

func newRequest(ctx context.Context, url string, body []byte) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
}
