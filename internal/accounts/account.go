// Package accounts owns the credential store: the process-wide pool of
// authenticated upstream identities, their token lifecycle bookkeeping and
// the cooldown/circuit-breaker state that keeps a failing account out of
// rotation.
package accounts

import "time"

// Status is the lifecycle state of an Account.
type Status string

const (
	StatusReady    Status = "ready"
	StatusCooldown Status = "cooldown"
	StatusError    Status = "error"
)

// Account is one authenticated upstream identity. Accounts live only in
// process memory (see spec Non-goals) — there is no on-disk representation.
type Account struct {
	ID    string
	Rank  int
	Email string

	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	ConfiguredProjectID string
	DiscoveredProjectID string

	Status         Status
	CooldownUntil  time.Time
	RequestCount   int64
	ErrorCount     int64
	ConsecutiveErr int
	LastUsedAt     time.Time
}

// Snapshot is an immutable copy of an Account safe to hand to callers
// outside the store's lock (Selector, dashboards, ...).
type Snapshot struct {
	ID                   string
	Rank                 int
	Email                string
	ExpiresAt            time.Time
	ConfiguredProjectID  string
	DiscoveredProjectID  string
	Status               Status
	CooldownUntil        time.Time
	RequestCount         int64
	ErrorCount           int64
	ConsecutiveErr       int
	LastUsedAt           time.Time
}

func (a *Account) snapshot() Snapshot {
	return Snapshot{
		ID:                  a.ID,
		Rank:                a.Rank,
		Email:               a.Email,
		ExpiresAt:           a.ExpiresAt,
		ConfiguredProjectID: a.ConfiguredProjectID,
		DiscoveredProjectID: a.DiscoveredProjectID,
		Status:              a.Status,
		CooldownUntil:       a.CooldownUntil,
		RequestCount:        a.RequestCount,
		ErrorCount:          a.ErrorCount,
		ConsecutiveErr:      a.ConsecutiveErr,
		LastUsedAt:          a.LastUsedAt,
	}
}

// ProjectID returns the configured id if set, else the discovered id, else "".
func (s Snapshot) ProjectID() string {
	if s.ConfiguredProjectID != "" {
		return s.ConfiguredProjectID
	}
	return s.DiscoveredProjectID
}

// Credential is the input shape for Store.Add — one row of
// ANTIGRAVITY_ACCOUNTS_<N> configuration, or the result of an interactive
// OAuth callback.
type Credential struct {
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiryMillis int64
	ProjectID    string // optional pre-configured project id
}
