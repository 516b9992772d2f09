package accounts

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCooldownDuration is the base backoff applied on the first
// consecutive rate-limit/failure (COOLDOWN_DURATION_MS default).
const DefaultCooldownDuration = 60 * time.Second

// maxBackoffShift saturates the exponential schedule at 2^6 = 64x base.
const maxBackoffShift = 6

// Store is the process-wide Credential Store (C1). A single coarse-grained
// mutex protects it: pool sizes are small and every operation is O(n),
// which the spec explicitly allows (§5 Shared mutable state).
type Store struct {
	mu       sync.Mutex
	byID     map[string]*Account
	byEmail  map[string]string // email -> id
	order    []string          // insertion order, id list
	cooldown time.Duration
	now      func() time.Time
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithCooldownDuration overrides the base cooldown (COOLDOWN_DURATION_MS).
func WithCooldownDuration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// withClock is used by tests to control "now" precisely.
func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty Credential Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		byID:     make(map[string]*Account),
		byEmail:  make(map[string]string),
		cooldown: DefaultCooldownDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddResult is the return shape of Store.Add.
type AddResult struct {
	ID    string
	Rank  int
	IsNew bool
}

// Add inserts a new account or updates the existing one for that email in
// place (tokens refreshed, status reset to ready, error counts zeroed).
// Insertion order — and therefore id numbering — is preserved.
func (s *Store) Add(cred Credential) AddResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEmail[cred.Email]; ok {
		acct := s.byID[id]
		acct.AccessToken = cred.AccessToken
		acct.RefreshToken = cred.RefreshToken
		acct.ExpiresAt = time.UnixMilli(cred.ExpiryMillis)
		if cred.ProjectID != "" {
			acct.ConfiguredProjectID = cred.ProjectID
		}
		acct.Status = StatusReady
		acct.CooldownUntil = time.Time{}
		acct.ErrorCount = 0
		acct.ConsecutiveErr = 0
		return AddResult{ID: acct.ID, Rank: acct.Rank, IsNew: false}
	}

	rank := len(s.order) + 1
	id := fmt.Sprintf("account-%d", rank)
	acct := &Account{
		ID:                  id,
		Rank:                rank,
		Email:               cred.Email,
		AccessToken:         cred.AccessToken,
		RefreshToken:        cred.RefreshToken,
		ExpiresAt:           time.UnixMilli(cred.ExpiryMillis),
		ConfiguredProjectID: cred.ProjectID,
		Status:              StatusReady,
	}
	s.byID[id] = acct
	s.byEmail[cred.Email] = id
	s.order = append(s.order, id)
	return AddResult{ID: id, Rank: rank, IsNew: true}
}

func (s *Store) expireLocked(acct *Account) {
	if acct.Status == StatusCooldown && !acct.CooldownUntil.After(s.now()) {
		acct.Status = StatusReady
		acct.CooldownUntil = time.Time{}
	}
}

// Get returns a snapshot of one account by id, expiring its cooldown first.
func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return Snapshot{}, false
	}
	s.expireLocked(acct)
	return acct.snapshot(), true
}

// List returns a snapshot of every account, in insertion order, expiring
// cooldowns lazily.
func (s *Store) List() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.order))
	for _, id := range s.order {
		acct := s.byID[id]
		s.expireLocked(acct)
		out = append(out, acct.snapshot())
	}
	return out
}

// ListIDs returns account ids in insertion order.
func (s *Store) ListIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ReadyAccounts returns a snapshot of every account currently ready,
// having lazily expired stale cooldowns first.
func (s *Store) ReadyAccounts() []Snapshot {
	all := s.List()
	out := make([]Snapshot, 0, len(all))
	for _, a := range all {
		if a.Status == StatusReady {
			out = append(out, a)
		}
	}
	return out
}

// MarkSuccess resets the failure state of an account following a
// successful upstream call.
func (s *Store) MarkSuccess(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return
	}
	acct.RequestCount++
	acct.LastUsedAt = s.now()
	acct.ConsecutiveErr = 0
	if acct.Status == StatusError || acct.Status == StatusCooldown {
		acct.Status = StatusReady
	}
	acct.CooldownUntil = time.Time{}
}

// MarkCooldown records a rate-limit/failure and schedules recovery with
// exponential backoff: base * 2^min(k-1, 6), k = post-increment
// consecutive-error count.
func (s *Store) MarkCooldown(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return
	}
	acct.ConsecutiveErr++
	acct.ErrorCount++
	acct.Status = StatusCooldown

	shift := acct.ConsecutiveErr - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	if shift < 0 {
		shift = 0
	}
	backoff := s.cooldown * time.Duration(1<<uint(shift))
	acct.CooldownUntil = s.now().Add(backoff)
}

// MarkError marks an account as failed for a non-recoverable reason (e.g.
// token refresh failure). It does not schedule a recovery.
func (s *Store) MarkError(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return
	}
	acct.Status = StatusError
	acct.ErrorCount++
}

// ProjectState returns an account's configured and discovered project ids,
// consumed by the Project Resolver's short-circuit checks.
func (s *Store) ProjectState(id string) (configured, discovered string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return "", ""
	}
	return acct.ConfiguredProjectID, acct.DiscoveredProjectID
}

// SetDiscoveredProjectID caches a resolved project id on the account.
func (s *Store) SetDiscoveredProjectID(id, projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.byID[id]; ok {
		acct.DiscoveredProjectID = projectID
	}
}

// SetAccessToken replaces an account's access token and expiry after a
// successful refresh, and optionally rotates the refresh token.
func (s *Store) SetAccessToken(id, accessToken string, expiresAt time.Time, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return
	}
	acct.AccessToken = accessToken
	acct.ExpiresAt = expiresAt
	if refreshToken != "" {
		acct.RefreshToken = refreshToken
	}
}

// Credentials returns the raw access/refresh token and expiry for an
// account, needed by the Token Refresher and Upstream Transport. Unlike
// Snapshot this is not for external consumers.
func (s *Store) Credentials(id string) (accessToken, refreshToken string, expiresAt time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.byID[id]
	if !found {
		return "", "", time.Time{}, false
	}
	return acct.AccessToken, acct.RefreshToken, acct.ExpiresAt, true
}

// EarliestCooldownEnd returns the soonest cooldown-until across all
// accounts currently in cooldown, or false if none are cooling down.
func (s *Store) EarliestCooldownEnd() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest time.Time
	found := false
	for _, id := range s.order {
		acct := s.byID[id]
		s.expireLocked(acct)
		if acct.Status != StatusCooldown {
			continue
		}
		if !found || acct.CooldownUntil.Before(earliest) {
			earliest = acct.CooldownUntil
			found = true
		}
	}
	return earliest, found
}

// Len returns the number of accounts in the pool.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
