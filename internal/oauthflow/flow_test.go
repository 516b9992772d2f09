package oauthflow

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aurora-relay/gateway/internal/accounts"
)

type fakeStore struct {
	added []accounts.Credential
}

func (f *fakeStore) Add(cred accounts.Credential) accounts.AddResult {
	f.added = append(f.added, cred)
	return accounts.AddResult{ID: "account-1", Rank: 1, IsNew: true}
}

func TestHandleLogin_RedirectsToGoogleWithState(t *testing.T) {
	flow := New(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	rec := httptest.NewRecorder()

	flow.HandleLogin(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Query().Get("state") == "" {
		t.Fatalf("expected a state param in the redirect URL")
	}
}

func TestHandleCallback_RejectsMismatchedState(t *testing.T) {
	flow := New(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	flow.HandleLogin(httptest.NewRecorder(), req)

	cbReq := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=wrong&code=abc", nil)
	rec := httptest.NewRecorder()
	flow.HandleCallback(rec, cbReq)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a mismatched state, got %d", rec.Code)
	}
}

func TestHandleCallback_RejectsMissingCode(t *testing.T) {
	flow := New(&fakeStore{})
	flow.state = "known-state"

	cbReq := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=known-state", nil)
	rec := httptest.NewRecorder()
	flow.HandleCallback(rec, cbReq)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing code, got %d", rec.Code)
	}
}
