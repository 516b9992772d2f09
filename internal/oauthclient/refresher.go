package oauthclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// RefreshBuffer is how far ahead of expiry a token is considered stale
// (spec §4.2: now + REFRESH_BUFFER >= expiry).
const RefreshBuffer = 5 * time.Minute

// Store is the narrow slice of accounts.Store the refresher needs.
type Store interface {
	Credentials(id string) (accessToken, refreshToken string, expiresAt time.Time, ok bool)
	SetAccessToken(id, accessToken string, expiresAt time.Time, refreshToken string)
	MarkError(id string)
	MarkCooldown(id string)
}

// Refresher refreshes an account's access token when it is close to expiry,
// coalescing concurrent refreshes for the same account into one call.
type Refresher struct {
	store   Store
	group   singleflight.Group
	nowFunc func() time.Time

	// tokenEndpoint overrides the OAuth token URL. Empty means use Google's
	// production endpoint; tests point this at an httptest server.
	tokenEndpoint string
}

// New creates a Refresher backed by the given account store.
func New(store Store) *Refresher {
	return &Refresher{store: store, nowFunc: time.Now}
}

// ErrTokenRefresh wraps a failed OAuth token endpoint call.
type ErrTokenRefresh struct {
	AccountID string
	Err       error
}

func (e *ErrTokenRefresh) Error() string {
	return fmt.Sprintf("token refresh failed for %s: %v", e.AccountID, e.Err)
}
func (e *ErrTokenRefresh) Unwrap() error { return e.Err }

// EnsureFresh guarantees the account's cached access token is valid for at
// least RefreshBuffer, refreshing it via the OAuth token endpoint if not.
// Concurrent callers for the same account id share one in-flight refresh.
func (r *Refresher) EnsureFresh(ctx context.Context, accountID string) (accessToken string, err error) {
	access, refresh, expiresAt, ok := r.store.Credentials(accountID)
	if !ok {
		return "", fmt.Errorf("oauthclient: unknown account %s", accountID)
	}

	if r.nowFunc().Add(RefreshBuffer).Before(expiresAt) {
		return access, nil
	}

	v, err, _ := r.group.Do(accountID, func() (interface{}, error) {
		return r.doRefresh(ctx, accountID, refresh)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ForceRefresh refreshes an account's token unconditionally, used after the
// transport observes a 401 despite a cached token that looked fresh.
func (r *Refresher) ForceRefresh(ctx context.Context, accountID string) (string, error) {
	_, refresh, _, ok := r.store.Credentials(accountID)
	if !ok {
		return "", fmt.Errorf("oauthclient: unknown account %s", accountID)
	}
	v, err, _ := r.group.Do(accountID, func() (interface{}, error) {
		return r.doRefresh(ctx, accountID, refresh)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Refresher) doRefresh(ctx context.Context, accountID, refreshToken string) (string, error) {
	cfg := Config("")
	if r.tokenEndpoint != "" {
		cfg.Endpoint.TokenURL = r.tokenEndpoint
	}
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		wrapped := &ErrTokenRefresh{AccountID: accountID, Err: err}
		if IsPermanent(err) {
			r.store.MarkError(accountID)
		} else {
			r.store.MarkCooldown(accountID)
		}
		return "", wrapped
	}

	r.store.SetAccessToken(accountID, tok.AccessToken, tok.Expiry, tok.RefreshToken)
	return tok.AccessToken, nil
}

// IsPermanent reports whether an OAuth error indicates the refresh token
// itself is dead (revoked/invalid) rather than a transient network blip.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"invalid_grant", "invalid_client", "unauthorized_client", "revoked"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
