package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aurora-relay/gateway/internal/apierrors"
)

type fakeTokens struct {
	token string
}

func (f *fakeTokens) EnsureFresh(ctx context.Context, accountID string) (string, error) {
	return f.token, nil
}

func (f *fakeTokens) ForceRefresh(ctx context.Context, accountID string) (string, error) {
	f.token = "refreshed-" + f.token
	return f.token, nil
}

func TestPostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer good" {
			t.Fatalf("unexpected auth header: %s", req.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := New(&fakeTokens{token: "good"}).WithBaseURLs([]string{srv.URL})
	body, err := tr.PostJSON(context.Background(), "account-1", ":generateContent", []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestPostJSON_RateLimitDoesNotFailover(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := New(&fakeTokens{token: "good"}).WithBaseURLs([]string{srv.URL, srv.URL})
	_, err := tr.PostJSON(context.Background(), "account-1", ":generateContent", []byte(`{}`))
	apiErr, ok := err.(*apierrors.Error)
	if !ok || apiErr.Kind != apierrors.KindRateLimited {
		t.Fatalf("expected RateLimited error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt on 429 (no base-URL failover), got %d", calls)
	}
}

func TestPostJSON_401RetriesOnceWithRefreshedToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		auth := req.Header.Get("Authorization")
		if n == 1 {
			if auth != "Bearer good" {
				t.Fatalf("unexpected first auth header: %s", auth)
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if auth != "Bearer refreshed-good" {
			t.Fatalf("expected refreshed token on retry, got %s", auth)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := New(&fakeTokens{token: "good"}).WithBaseURLs([]string{srv.URL})
	body, err := tr.PostJSON(context.Background(), "account-1", ":generateContent", []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls (original + retry), got %d", calls)
	}
}

func TestPostJSON_FailoverOn5xxAndNetworkError(t *testing.T) {
	var calls int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer good.Close()

	tr := New(&fakeTokens{token: "good"}).WithBaseURLs([]string{bad.URL, good.URL})
	body, err := tr.PostJSON(context.Background(), "account-1", ":generateContent", []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if calls != 2 {
		t.Fatalf("expected failover to try the second base URL, got %d calls", calls)
	}
}

func TestPostJSON_AllBaseURLsFailReturnsBadGateway(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	tr := New(&fakeTokens{token: "good"}).WithBaseURLs([]string{bad.URL, bad.URL})
	_, err := tr.PostJSON(context.Background(), "account-1", ":generateContent", []byte(`{}`))
	apiErr, ok := err.(*apierrors.Error)
	if !ok || apiErr.Kind != apierrors.KindUpstreamBadGateway {
		t.Fatalf("expected UpstreamBadGateway, got %v", err)
	}
}
