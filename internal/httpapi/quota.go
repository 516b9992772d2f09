package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

type quotaModelEntry struct {
	Model     string     `json:"model"`
	Quota     float64    `json:"quota"`
	ResetTime *time.Time `json:"reset_time,omitempty"`
	Status    string     `json:"status"`
}

type quotaAccountEntry struct {
	AccountID     string            `json:"account_id"`
	Email         string            `json:"email"`
	Models        []quotaModelEntry `json:"models"`
	LastFetchedAt *time.Time        `json:"last_fetched_at,omitempty"`
}

// Quota handles GET /v1/quota: a best-effort fan-out refresh across every
// ready account, followed by the cached snapshot read.
func (a *API) Quota(w http.ResponseWriter, r *http.Request) {
	ready := a.Store.ReadyAccounts()
	ids := make([]string, len(ready))
	emailByID := make(map[string]string, len(ready))
	for i, acct := range ready {
		ids[i] = acct.ID
		emailByID[acct.ID] = acct.Email
	}

	a.QuotaTracker.RefreshAll(r.Context(), ids)
	snaps := a.QuotaTracker.Snapshot(ids)

	out := make([]quotaAccountEntry, 0, len(snaps))
	for _, s := range snaps {
		entry := quotaAccountEntry{AccountID: s.AccountID, Email: emailByID[s.AccountID]}
		if !s.LastFetchedAt.IsZero() {
			t := s.LastFetchedAt
			entry.LastFetchedAt = &t
		}
		for _, m := range s.Models {
			entry.Models = append(entry.Models, quotaModelEntry{
				Model:     m.ModelName,
				Quota:     m.Quota,
				ResetTime: m.ResetTime,
				Status:    string(m.Status),
			})
		}
		out = append(out, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
