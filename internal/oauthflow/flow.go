// Package oauthflow implements the interactive Google OAuth login/callback
// surface: an operator visits /auth/google/login, consents, and lands back
// on the callback with an authorization code that is exchanged for tokens
// and handed to the Credential Store as a new account.
package oauthflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/aurora-relay/gateway/internal/accounts"
	"github.com/aurora-relay/gateway/internal/oauthclient"
)

// Store is the narrow slice of accounts.Store the flow needs.
type Store interface {
	Add(cred accounts.Credential) accounts.AddResult
}

// Flow serves the login/callback pair. Unlike a package-level state token,
// state lives on the Flow instance so multiple flows (or tests) never
// share CSRF state.
type Flow struct {
	store Store

	mu    sync.Mutex
	state string
}

// New creates a Flow backed by the given account store.
func New(store Store) *Flow {
	return &Flow{store: store}
}

func newStateToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func redirectURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/auth/callback", scheme, r.Host)
}

// HandleLogin redirects the operator to Google's consent page.
func (f *Flow) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := newStateToken()
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()

	config := oauthclient.Config(redirectURL(r))
	url := config.AuthCodeURL(state, oauthclient.AuthCodeOptions()...)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email string `json:"email"`
}

// HandleCallback exchanges the authorization code, fetches the account's
// email, and adds or refreshes it in the Credential Store. Project
// discovery is deliberately left to the Project Resolver on first use, not
// duplicated here.
func (f *Flow) HandleCallback(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	expected := f.state
	f.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state == "" || state != expected {
		http.Error(w, "invalid state token", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	config := oauthclient.Config(redirectURL(r))
	token, err := config.Exchange(context.Background(), code)
	if err != nil {
		http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
		return
	}

	client := config.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to fetch user info: %v", err), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var userInfo googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode user info: %v", err), http.StatusInternalServerError)
		return
	}

	result := f.store.Add(accounts.Credential{
		Email:        userInfo.Email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiryMillis: token.Expiry.UnixMilli(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Login successful</title></head>
<body>
<h1>Login successful</h1>
<p>Email: %s</p>
<p>Account: %s (rank %d)</p>
</body>
</html>`, userInfo.Email, result.ID, result.Rank)
}
