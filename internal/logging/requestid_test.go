package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewID(t *testing.T) {
	id := NewID()
	if len(id) != 8 {
		t.Errorf("NewID() length = %d, want 8", len(id))
	}

	id2 := NewID()
	if id == id2 {
		t.Errorf("NewID() generated duplicate ids: %s", id)
	}
}

func TestIDFrom_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := IDFrom(ctx); got != "" {
		t.Errorf("IDFrom(empty context) = %q, want empty string", got)
	}

	id := "test1234"
	ctx = WithID(ctx, id)
	if got := IDFrom(ctx); got != id {
		t.Errorf("IDFrom() = %q, want %q", got, id)
	}
}

func TestMiddleware_AttachesIDAndEchoesHeader(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	header := rec.Header().Get("X-Request-Id")
	if header == "" || header != seen {
		t.Fatalf("expected response header to match context id, header=%q seen=%q", header, seen)
	}
}
