// Package oauthclient implements the Token Refresher (C2): OAuth2
// access-token refresh against Google's token endpoint, single-flighted
// per account so concurrent requests against the same account never race
// two refreshes.
package oauthclient

import (
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// DefaultClientID/DefaultClientSecret are the well-known Antigravity OAuth
// client credentials, overridable via ANTIGRAVITY_CLIENT_ID/SECRET.
const (
	DefaultClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	DefaultClientSecret = "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"
)

// Scopes required for accessing the upstream Cloud Code API.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// AuthCodeOptions are the extra params applied to the interactive
// authorization-code URL: request a refresh token and force the consent
// screen so a refresh token is issued even for a returning user.
func AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	}
}

// Config returns the OAuth2 config used both for the interactive
// authorization-code flow (redirectURL non-empty) and for refresh-token
// exchanges (redirectURL empty).
func Config(redirectURL string) *oauth2.Config {
	clientID := os.Getenv("ANTIGRAVITY_CLIENT_ID")
	if clientID == "" {
		clientID = DefaultClientID
	}
	clientSecret := os.Getenv("ANTIGRAVITY_CLIENT_SECRET")
	if clientSecret == "" {
		clientSecret = DefaultClientSecret
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
}
