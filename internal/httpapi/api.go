// Package httpapi wires the dispatcher, account store, and quota tracker
// into the public OpenAI/Anthropic-dialect HTTP surface and a read-only
// admin surface, following the teacher's chi-router bootstrap in
// cmd/nexus/main.go.
package httpapi

import (
	"net/http"

	"github.com/aurora-relay/gateway/internal/accounts"
	"github.com/aurora-relay/gateway/internal/dispatch"
	"github.com/aurora-relay/gateway/internal/monitor"
	"github.com/aurora-relay/gateway/internal/quota"
)

// OAuthFlow is the narrow slice of oauthflow.Flow the router needs to
// mount the interactive login surface. Nil means the surface is omitted
// (e.g. in tests that only exercise the dialect endpoints).
type OAuthFlow interface {
	HandleLogin(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
}

// Store is the read surface the HTTP layer needs of the account pool.
type Store interface {
	List() []accounts.Snapshot
	ReadyAccounts() []accounts.Snapshot
}

// API holds the dependencies shared by every handler.
type API struct {
	Dispatcher   *dispatch.Dispatcher
	Store        Store
	QuotaTracker *quota.Tracker
	Monitor      *monitor.Monitor
	APIKey       string
	AdminPass    string
	OAuth        OAuthFlow
}

func (a *API) logRequest(entry monitor.RequestLog) {
	if a.Monitor == nil {
		return
	}
	a.Monitor.LogRequest(entry)
}
