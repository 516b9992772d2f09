package quota

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticAuth struct{}

func (staticAuth) AuthHeader(ctx context.Context, accountID string) (string, string, error) {
	return "token-" + accountID, "proj-" + accountID, nil
}

func TestRefresh_UpsertsEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]interface{}{
				{
					"name": "gemini-3-flash",
					"quotaInfo": map[string]interface{}{
						"remainingFraction": 0.75,
					},
				},
				{
					"name": "gemini-3-pro",
				},
			},
		})
	}))
	defer srv.Close()

	tr := New(srv.URL, staticAuth{})
	if err := tr.Refresh(context.Background(), "account-1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	entry, ok := tr.Get("account-1", "gemini-3-flash")
	if !ok {
		t.Fatalf("expected entry for gemini-3-flash")
	}
	if entry.RemainingFraction != 0.75 {
		t.Fatalf("unexpected fraction: %v", entry.RemainingFraction)
	}
	if entry.Status() != StatusAvailable {
		t.Fatalf("expected available status")
	}

	if _, ok := tr.Get("account-1", "gemini-3-pro"); ok {
		t.Fatalf("model without quotaInfo should not be cached")
	}
}

func TestEntry_ExhaustedThreshold(t *testing.T) {
	e := Entry{RemainingFraction: 0.005}
	if e.Status() != StatusExhausted {
		t.Fatalf("expected exhausted for remaining fraction below threshold")
	}
}

func TestSnapshot_SortedByModelName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]interface{}{
				{"name": "z-model", "quotaInfo": map[string]interface{}{"remainingFraction": 0.5}},
				{"name": "a-model", "quotaInfo": map[string]interface{}{"remainingFraction": 0.9}},
			},
		})
	}))
	defer srv.Close()

	tr := New(srv.URL, staticAuth{})
	_ = tr.Refresh(context.Background(), "account-1")

	snaps := tr.Snapshot([]string{"account-1"})
	if len(snaps) != 1 || len(snaps[0].Models) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snaps)
	}
	if snaps[0].Models[0].ModelName != "a-model" || snaps[0].Models[1].ModelName != "z-model" {
		t.Fatalf("expected models sorted by name, got %+v", snaps[0].Models)
	}
}
