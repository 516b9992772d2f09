package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

type adminAccountEntry struct {
	ID             string     `json:"id"`
	Rank           int        `json:"rank"`
	Email          string     `json:"email"`
	Status         string     `json:"status"`
	ProjectID      string     `json:"project_id,omitempty"`
	RequestCount   int64      `json:"request_count"`
	ErrorCount     int64      `json:"error_count"`
	ConsecutiveErr int        `json:"consecutive_errors"`
	CooldownUntil  *time.Time `json:"cooldown_until,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}

// AdminAccounts handles GET /admin/accounts: a read-only accounting of the
// pool with no tokens ever surfaced.
func (a *API) AdminAccounts(w http.ResponseWriter, r *http.Request) {
	snaps := a.Store.List()
	out := make([]adminAccountEntry, 0, len(snaps))
	for _, s := range snaps {
		entry := adminAccountEntry{
			ID:             s.ID,
			Rank:           s.Rank,
			Email:          s.Email,
			Status:         string(s.Status),
			ProjectID:      s.ProjectID(),
			RequestCount:   s.RequestCount,
			ErrorCount:     s.ErrorCount,
			ConsecutiveErr: s.ConsecutiveErr,
		}
		if !s.CooldownUntil.IsZero() {
			t := s.CooldownUntil
			entry.CooldownUntil = &t
		}
		if !s.LastUsedAt.IsZero() {
			t := s.LastUsedAt
			entry.LastUsedAt = &t
		}
		out = append(out, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// AdminQuota handles GET /admin/quota, an alias of the public quota read
// kept separate so it can be gated by admin auth independently.
func (a *API) AdminQuota(w http.ResponseWriter, r *http.Request) {
	a.Quota(w, r)
}
