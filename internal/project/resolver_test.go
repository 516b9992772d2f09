package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeStore struct {
	mu         sync.Mutex
	configured string
	discovered string
	saved      string
}

func (s *fakeStore) ProjectState(accountID string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured, s.discovered
}

func (s *fakeStore) SetDiscoveredProjectID(accountID, projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = projectID
}

type fakeAuth struct{}

func (fakeAuth) AuthHeader(ctx context.Context, accountID string) (string, error) {
	return "fake-token", nil
}

func TestResolve_ReturnsConfiguredWithoutNetworkCall(t *testing.T) {
	store := &fakeStore{configured: "my-project"}
	r := New("http://unused.invalid", store, fakeAuth{})

	got := r.Resolve(context.Background(), "account-1")
	if got != "my-project" {
		t.Fatalf("got %q want my-project", got)
	}
}

func TestResolve_ReturnsCachedDiscovered(t *testing.T) {
	store := &fakeStore{discovered: "cached-project"}
	r := New("http://unused.invalid", store, fakeAuth{})

	got := r.Resolve(context.Background(), "account-1")
	if got != "cached-project" {
		t.Fatalf("got %q want cached-project", got)
	}
}

func TestResolve_LoadCodeAssistReturnsProjectDirectly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasSuffix(req.URL.Path, ":loadCodeAssist") {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"cloudaicompanionProject": "resolved-project",
		})
	}))
	defer srv.Close()

	store := &fakeStore{}
	r := New(srv.URL, store, fakeAuth{})

	got := r.Resolve(context.Background(), "account-1")
	if got != "resolved-project" {
		t.Fatalf("got %q want resolved-project", got)
	}
	if store.saved != "resolved-project" {
		t.Fatalf("expected discovered id to be cached, got %q", store.saved)
	}
}

func TestResolve_OnboardsWhenNoCurrentTier(t *testing.T) {
	var onboardCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.HasSuffix(req.URL.Path, ":loadCodeAssist"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"allowedTiers": []map[string]interface{}{
					{"id": "legacy-tier", "isDefault": false},
					{"id": "standard-tier", "isDefault": true},
				},
			})
		case strings.HasSuffix(req.URL.Path, ":onboardUser"):
			var body map[string]interface{}
			json.NewDecoder(req.Body).Decode(&body)
			if body["tierId"] != "standard-tier" {
				t.Fatalf("expected default tier to be selected, got %v", body["tierId"])
			}
			n := atomic.AddInt32(&onboardCalls, 1)
			resp := map[string]interface{}{"done": n >= 2}
			if n >= 2 {
				resp["response"] = map[string]interface{}{
					"cloudaicompanionProject": map[string]interface{}{"id": "onboarded-project"},
				}
			}
			json.NewEncoder(w).Encode(resp)
		}
	}))
	defer srv.Close()

	store := &fakeStore{}
	r := New(srv.URL, store, fakeAuth{})

	got := r.Resolve(context.Background(), "account-1")
	if got != "onboarded-project" {
		t.Fatalf("got %q want onboarded-project", got)
	}
	if atomic.LoadInt32(&onboardCalls) < 2 {
		t.Fatalf("expected polling to require multiple onboard calls")
	}
}

func TestResolve_FallsBackToDummyIDOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fakeStore{}
	r := New(srv.URL, store, fakeAuth{})

	got := r.Resolve(context.Background(), "account-1")
	parts := strings.Split(got, "-")
	if len(parts) != 3 {
		t.Fatalf("expected adjective-noun-hex dummy id, got %q", got)
	}
}

func TestResolve_SharesInFlightDiscoveryAcrossConcurrentCallers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"cloudaicompanionProject": "shared-project",
		})
	}))
	defer srv.Close()

	store := &fakeStore{}
	r := New(srv.URL, store, fakeAuth{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Resolve(context.Background(), "account-1")
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected single-flighted discovery, got %d calls", calls)
	}
}
