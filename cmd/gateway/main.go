package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aurora-relay/gateway/internal/accounts"
	"github.com/aurora-relay/gateway/internal/catalog"
	"github.com/aurora-relay/gateway/internal/config"
	"github.com/aurora-relay/gateway/internal/dispatch"
	"github.com/aurora-relay/gateway/internal/httpapi"
	"github.com/aurora-relay/gateway/internal/monitor"
	"github.com/aurora-relay/gateway/internal/oauthclient"
	"github.com/aurora-relay/gateway/internal/oauthflow"
	"github.com/aurora-relay/gateway/internal/project"
	"github.com/aurora-relay/gateway/internal/quota"
	"github.com/aurora-relay/gateway/internal/selector"
	"github.com/aurora-relay/gateway/internal/transport"
)

// projectAuthAdapter narrows the Refresher to project.Auth: the resolver
// only needs a token, not the refresh/force-refresh distinction the
// Transport itself uses.
type projectAuthAdapter struct {
	refresher *oauthclient.Refresher
}

func (a projectAuthAdapter) AuthHeader(ctx context.Context, accountID string) (string, error) {
	return a.refresher.EnsureFresh(ctx, accountID)
}

// quotaAuthAdapter narrows the Refresher and Resolver into quota.AccountAuth:
// a quota fetch needs both a bearer token and the account's project id.
type quotaAuthAdapter struct {
	refresher *oauthclient.Refresher
	resolver  *project.Resolver
}

func (a quotaAuthAdapter) AuthHeader(ctx context.Context, accountID string) (accessToken, projectID string, err error) {
	accessToken, err = a.refresher.EnsureFresh(ctx, accountID)
	if err != nil {
		return "", "", err
	}
	return accessToken, a.resolver.Resolve(ctx, accountID), nil
}

func main() {
	cfg := config.Load()

	if err := catalog.InitFromEmbedded(); err != nil {
		log.Fatalf("gateway: failed to load model catalog: %v", err)
	}

	store := accounts.NewStore(accounts.WithCooldownDuration(cfg.CooldownDuration))
	for _, cred := range cfg.Accounts {
		result := store.Add(cred)
		log.Printf("gateway: loaded account %s (rank %d, new=%v)", cred.Email, result.Rank, result.IsNew)
	}

	refresher := oauthclient.New(store)
	resolver := project.New(transport.BaseURLs[0], store, projectAuthAdapter{refresher: refresher})
	quotaTracker := quota.New(transport.BaseURLs[0], quotaAuthAdapter{refresher: refresher, resolver: resolver})
	sel := selector.New(store, quotaTracker)

	upstream := transport.New(refresher)
	d := dispatch.New(store, sel, resolver, transport.DispatchAdapter{Transport: upstream}, cfg.MaxRetryAccounts)

	var mon *monitor.Monitor
	db, err := monitor.OpenDB("gateway_audit.db")
	if err != nil {
		log.Printf("gateway: audit log disabled, failed to open database: %v", err)
	} else {
		mon = monitor.New(db)
	}

	api := &httpapi.API{
		Dispatcher:   d,
		Store:        store,
		QuotaTracker: quotaTracker,
		Monitor:      mon,
		APIKey:       cfg.ProxyAPIKey,
		AdminPass:    cfg.AdminPassword,
		OAuth:        oauthflow.New(store),
	}

	addr := cfg.Host + ":" + cfg.Port
	log.Printf("gateway: listening on http://%s", addr)
	if err := http.ListenAndServe(addr, httpapi.NewRouter(api)); err != nil {
		log.Fatalf("gateway: server failed: %v", err)
	}
}
