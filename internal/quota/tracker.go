// Package quota implements the Quota Tracker (C4): on-demand per-account,
// per-model remaining-fraction lookups against the upstream
// :fetchAvailableModels endpoint, cached until the next explicit refresh.
package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

const exhaustedThreshold = 0.01

// EntryStatus mirrors spec §3: available if remainingFraction > threshold.
type EntryStatus string

const (
	StatusAvailable EntryStatus = "available"
	StatusExhausted EntryStatus = "exhausted"
)

// Entry is one cached (account, model) quota reading.
type Entry struct {
	ModelName         string
	RemainingFraction float64
	ResetTime         *time.Time
	LastFetchedAt     time.Time
}

// Status derives availability from the cached remaining fraction.
func (e Entry) Status() EntryStatus {
	if e.RemainingFraction > exhaustedThreshold {
		return StatusAvailable
	}
	return StatusExhausted
}

// AccountAuth is what the tracker needs from the account pool: a fresh
// bearer token and the account's resolved project id. Implemented by the
// oauthclient+project packages together at wiring time (design notes §9
// AccountReader).
type AccountAuth interface {
	AuthHeader(ctx context.Context, accountID string) (accessToken, projectID string, err error)
}

// Tracker caches quota readings per account. It never eagerly refreshes;
// callers (the Dispatcher, the /v1/quota handler) drive refreshes.
type Tracker struct {
	httpClient *http.Client
	baseURL    string
	auth       AccountAuth

	mu    sync.Mutex
	cache map[string]map[string]Entry // accountID -> modelName -> Entry
}

// New creates a Tracker against the given upstream base URL.
func New(baseURL string, auth AccountAuth) *Tracker {
	return &Tracker{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		auth:       auth,
		cache:      make(map[string]map[string]Entry),
	}
}

type fetchAvailableModelsResponse struct {
	Models []struct {
		Name      string `json:"name"`
		QuotaInfo *struct {
			RemainingFraction float64 `json:"remainingFraction"`
			ResetTime         string  `json:"resetTime"`
		} `json:"quotaInfo"`
	} `json:"models"`
}

// Refresh fetches and upserts quota entries for a single account.
func (t *Tracker) Refresh(ctx context.Context, accountID string) error {
	accessToken, projectID, err := t.auth.AuthHeader(ctx, accountID)
	if err != nil {
		return fmt.Errorf("quota: resolve auth for %s: %w", accountID, err)
	}

	body, err := json.Marshal(map[string]string{"project": projectID})
	if err != nil {
		return fmt.Errorf("quota: marshal request: %w", err)
	}

	url := t.baseURL + ":fetchAvailableModels"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("quota: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("quota: fetchAvailableModels: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quota: fetchAvailableModels returned %d", resp.StatusCode)
	}

	var parsed fetchAvailableModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("quota: decode response: %w", err)
	}

	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	entries, ok := t.cache[accountID]
	if !ok {
		entries = make(map[string]Entry)
		t.cache[accountID] = entries
	}
	for _, m := range parsed.Models {
		if m.QuotaInfo == nil {
			continue
		}
		var reset *time.Time
		if m.QuotaInfo.ResetTime != "" {
			if parsedTime, err := time.Parse(time.RFC3339, m.QuotaInfo.ResetTime); err == nil {
				reset = &parsedTime
			}
		}
		entries[m.Name] = Entry{
			ModelName:         m.Name,
			RemainingFraction: m.QuotaInfo.RemainingFraction,
			ResetTime:         reset,
			LastFetchedAt:     now,
		}
	}
	return nil
}

// RefreshAll fans out Refresh across the given account ids concurrently,
// gathers all results and ignores individual failures (spec §4.4).
func (t *Tracker) RefreshAll(ctx context.Context, accountIDs []string) {
	var wg sync.WaitGroup
	for _, id := range accountIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = t.Refresh(ctx, id)
		}(id)
	}
	wg.Wait()
}

// Get returns a copy of the cached entry for (accountID, model), if any.
func (t *Tracker) Get(accountID, model string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries, ok := t.cache[accountID]
	if !ok {
		return Entry{}, false
	}
	e, ok := entries[model]
	return e, ok
}

// ModelSnapshot is one row of a per-account quota read (spec §4.4 Reads).
type ModelSnapshot struct {
	ModelName string
	Quota     float64
	ResetTime *time.Time
	Status    EntryStatus
}

// AccountSnapshot is a per-account quota read: sorted models plus the most
// recent fetch time across the account's entries.
type AccountSnapshot struct {
	AccountID     string
	Models        []ModelSnapshot
	LastFetchedAt time.Time
}

// Snapshot returns a read-only view for the given accounts, sorted by model
// name within each account.
func (t *Tracker) Snapshot(accountIDs []string) []AccountSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]AccountSnapshot, 0, len(accountIDs))
	for _, id := range accountIDs {
		entries := t.cache[id]
		snap := AccountSnapshot{AccountID: id}
		for _, e := range entries {
			snap.Models = append(snap.Models, ModelSnapshot{
				ModelName: e.ModelName,
				Quota:     e.RemainingFraction,
				ResetTime: e.ResetTime,
				Status:    e.Status(),
			})
			if e.LastFetchedAt.After(snap.LastFetchedAt) {
				snap.LastFetchedAt = e.LastFetchedAt
			}
		}
		sort.Slice(snap.Models, func(i, j int) bool { return snap.Models[i].ModelName < snap.Models[j].ModelName })
		out = append(out, snap)
	}
	return out
}
