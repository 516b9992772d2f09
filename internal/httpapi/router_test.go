package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aurora-relay/gateway/internal/accounts"
	"github.com/aurora-relay/gateway/internal/dispatch"
	"github.com/aurora-relay/gateway/internal/quota"
)

type fakePool struct {
	snaps []accounts.Snapshot
}

func (f *fakePool) List() []accounts.Snapshot         { return f.snaps }
func (f *fakePool) ReadyAccounts() []accounts.Snapshot { return f.snaps }
func (f *fakePool) MarkSuccess(id string)              {}
func (f *fakePool) MarkCooldown(id string)             {}
func (f *fakePool) Len() int                           { return len(f.snaps) }
func (f *fakePool) EarliestCooldownEnd() (time.Time, bool) { return time.Time{}, false }

type fakeSelector struct {
	snap accounts.Snapshot
	ok   bool
}

func (f fakeSelector) Pick(model string) (accounts.Snapshot, bool) { return f.snap, f.ok }

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, accountID string) string { return "proj-1" }

type fakeTransport struct {
	respBody []byte
}

func (f fakeTransport) PostJSON(ctx context.Context, accountID, path string, body []byte) ([]byte, error) {
	return f.respBody, nil
}

func (f fakeTransport) PostStream(ctx context.Context, accountID, path string, body []byte) (dispatch.Response, error) {
	return nil, nil
}

type fakeQuotaAuth struct{}

func (fakeQuotaAuth) AuthHeader(ctx context.Context, accountID string) (string, string, error) {
	return "tok", "proj", nil
}

func newTestAPI(t *testing.T, snaps []accounts.Snapshot, sel fakeSelector, upstreamBody string) *API {
	t.Helper()
	pool := &fakePool{snaps: snaps}
	d := dispatch.New(pool, sel, fakeResolver{}, fakeTransport{respBody: []byte(upstreamBody)}, 3)
	return &API{
		Dispatcher:   d,
		Store:        pool,
		QuotaTracker: quota.New("http://unused.invalid", fakeQuotaAuth{}),
	}
}

func TestChatCompletions_UnarySuccess(t *testing.T) {
	snap := accounts.Snapshot{ID: "account-1", Status: accounts.StatusReady}
	api := newTestAPI(t, []accounts.Snapshot{snap}, fakeSelector{snap: snap, ok: true},
		`{"candidates":[{"content":{"parts":[{"text":"hi there"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":2,"totalTokenCount":3}}`)

	router := NewRouter(api)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gemini-3-flash","messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["object"] != "chat.completion" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestChatCompletions_NoReadyAccountsReturns429(t *testing.T) {
	api := newTestAPI(t, nil, fakeSelector{ok: false}, "")

	router := NewRouter(api)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gemini-3-flash","messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestChatCompletions_RejectsBadAPIKey(t *testing.T) {
	snap := accounts.Snapshot{ID: "account-1", Status: accounts.StatusReady}
	api := newTestAPI(t, []accounts.Snapshot{snap}, fakeSelector{snap: snap, ok: true}, `{}`)
	api.APIKey = "secret"

	router := NewRouter(api)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"m"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a key, got %d", rec.Code)
	}
}

func TestMessages_UnarySuccess(t *testing.T) {
	snap := accounts.Snapshot{ID: "account-1", Status: accounts.StatusReady}
	api := newTestAPI(t, []accounts.Snapshot{snap}, fakeSelector{snap: snap, ok: true},
		`{"candidates":[{"content":{"parts":[{"text":"hi"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":1}}`)

	router := NewRouter(api)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{"model":"antigravity-claude-sonnet-4-5","max_tokens":100,"messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["type"] != "message" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestModels_ReturnsStaticCatalog(t *testing.T) {
	api := newTestAPI(t, nil, fakeSelector{}, "")

	router := NewRouter(api)
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `"object":"list"`) {
		t.Fatalf("expected list envelope, got %s", body)
	}
}

func TestAdminAccounts_RequiresPasswordWhenConfigured(t *testing.T) {
	api := newTestAPI(t, nil, fakeSelector{}, "")
	api.AdminPass = "hunter2"

	router := NewRouter(api)
	req := httptest.NewRequest(http.MethodGet, "/admin/accounts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin auth, got %d", rec.Code)
	}
}
