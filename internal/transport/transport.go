// Package transport implements the Upstream Transport (C8): a multi-base-URL
// HTTP client that injects a fresh bearer token, retries once on 401 after a
// forced refresh, propagates 429 without base-URL failover, and rotates
// base URLs on network error or 5xx.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aurora-relay/gateway/internal/apierrors"
	"github.com/aurora-relay/gateway/internal/dispatch"
)

// BaseURLs mirrors the teacher's Antigravity endpoint fallback chain:
// daily (primary) → prod → sandbox-daily (last resort).
var BaseURLs = []string{
	"https://daily-cloudcode-pa.googleapis.com/v1internal",
	"https://cloudcode-pa.googleapis.com/v1internal",
	"https://daily-cloudcode-pa.sandbox.googleapis.com/v1internal",
}

// UserAgent mirrors Antigravity's client identity; the upstream rejects
// requests from unrecognized agents.
const UserAgent = "antigravity/1.11.9 windows/amd64"

const unaryTimeout = 120 * time.Second

// TokenSource resolves and, if necessary, refreshes an account's bearer
// token. ForceRefresh bypasses the expiry check for the 401-retry path.
type TokenSource interface {
	EnsureFresh(ctx context.Context, accountID string) (string, error)
	ForceRefresh(ctx context.Context, accountID string) (string, error)
}

// Transport is the Upstream Transport (C8).
type Transport struct {
	httpClient *http.Client
	baseURLs   []string
	cursor     uint64
	tokens     TokenSource
}

// New creates a Transport with the default Antigravity base-URL chain.
func New(tokens TokenSource) *Transport {
	return &Transport{
		httpClient: &http.Client{Timeout: unaryTimeout},
		baseURLs:   BaseURLs,
		tokens:     tokens,
	}
}

// WithBaseURLs overrides the base-URL chain, primarily for tests.
func (t *Transport) WithBaseURLs(urls []string) *Transport {
	t.baseURLs = urls
	return t
}

func (t *Transport) nextCursor() int {
	return int(atomic.AddUint64(&t.cursor, 1)-1) % len(t.baseURLs)
}

// PostJSON performs a unary request against :generateContent-style paths,
// returning the raw upstream response body on success.
func (t *Transport) PostJSON(ctx context.Context, accountID, path string, body []byte) ([]byte, error) {
	resp, err := t.doWithFailover(ctx, accountID, path, body, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// StreamResponse adapts *http.Response to dispatch.Response, so the
// Dispatcher does not need to import net/http directly.
type StreamResponse struct {
	resp *http.Response
}

// Body returns the underlying response body; the caller must close it.
func (s *StreamResponse) Body() io.ReadCloser { return s.resp.Body }

// PostStream performs a streaming request against :streamGenerateContent
// paths and returns the live response with headers already received; the
// caller owns the returned body and must close it.
func (t *Transport) PostStream(ctx context.Context, accountID, path string, body []byte) (*StreamResponse, error) {
	resp, err := t.doWithFailover(ctx, accountID, path, body, true)
	if err != nil {
		return nil, err
	}
	return &StreamResponse{resp: resp}, nil
}

func (t *Transport) doWithFailover(ctx context.Context, accountID, path string, body []byte, streaming bool) (*http.Response, error) {
	token, err := t.tokens.EnsureFresh(ctx, accountID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindAuthRefreshFailed, 401, "token refresh failed", err)
	}

	start := t.nextCursor()
	var lastErr error
	for i := 0; i < len(t.baseURLs); i++ {
		idx := (start + i) % len(t.baseURLs)
		base := t.baseURLs[idx]

		resp, err := t.attempt(ctx, base, path, body, token, streaming)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return nil, apierrors.New(apierrors.KindRateLimited, 429, "upstream rate limited this account")

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			token, err = t.tokens.ForceRefresh(ctx, accountID)
			if err != nil {
				return nil, apierrors.Wrap(apierrors.KindAuthRefreshFailed, 401, "token refresh failed after 401", err)
			}
			resp, err = t.attempt(ctx, base, path, body, token, streaming)
			if err != nil {
				lastErr = err
				continue
			}
			if resp.StatusCode == http.StatusUnauthorized {
				resp.Body.Close()
				return nil, apierrors.New(apierrors.KindAuthRefreshFailed, 401, "upstream still unauthorized after refresh")
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				lastErr = fmt.Errorf("upstream %s returned %d", base, resp.StatusCode)
				continue
			}
			if resp.StatusCode >= 400 {
				retryBody, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				return nil, apierrors.New(apierrors.KindUpstreamError, resp.StatusCode, fmt.Sprintf("upstream %s returned %d: %s", base, resp.StatusCode, retryBody))
			}
			return resp, nil

		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream %s returned %d", base, resp.StatusCode)
			continue

		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, apierrors.New(apierrors.KindUpstreamError, resp.StatusCode, fmt.Sprintf("upstream %s returned %d: %s", base, resp.StatusCode, body))

		default:
			return resp, nil
		}
	}
	return nil, apierrors.BadGateway(lastErr)
}

// DispatchAdapter narrows *Transport to dispatch.Transport: PostStream's
// concrete *StreamResponse return doesn't satisfy dispatch.Transport's
// interface-typed return directly, so this wraps it.
type DispatchAdapter struct {
	*Transport
}

// PostStream implements dispatch.Transport.
func (a DispatchAdapter) PostStream(ctx context.Context, accountID, path string, body []byte) (dispatch.Response, error) {
	resp, err := a.Transport.PostStream(ctx, accountID, path, body)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Transport) attempt(ctx context.Context, base, path string, body []byte, token string, streaming bool) (*http.Response, error) {
	req, err := newRequest(ctx, base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
		req.Host = req.URL.Host
	}

	client := t.httpClient
	if streaming {
		// Unbounded body read; only the round trip to headers is bounded by
		// the client's transport-level dial/handshake timeouts.
		unbounded := *t.httpClient
		unbounded.Timeout = 0
		client = &unbounded
	}
	return client.Do(req)
}
