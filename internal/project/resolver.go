// Package project implements the Project Resolver (C3): discovers or
// onboards a cloud project id for an account on first use, POSTing
// :loadCodeAssist and, if needed, polling :onboardUser, with a
// degraded-mode dummy id fallback on any failure.
package project

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	loadCodeAssistTimeout = 20 * time.Second
	onboardPollInterval   = 2 * time.Second
	onboardRequestTimeout = 30 * time.Second
	onboardMaxAttempts    = 60

	defaultTier = "free-tier"
)

// ClientMetadata is sent on every :loadCodeAssist / :onboardUser call.
var ClientMetadata = map[string]string{
	"ideType":    "IDE_UNSPECIFIED",
	"platform":   "PLATFORM_UNSPECIFIED",
	"pluginType": "GEMINI",
}

// Store is the narrow account-facing slice the resolver needs: reading a
// configured/cached project id and persisting a newly discovered one.
type Store interface {
	ProjectState(accountID string) (configured, discovered string)
	SetDiscoveredProjectID(accountID, projectID string)
}

// Auth resolves the bearer token to use for an account's upstream calls.
type Auth interface {
	AuthHeader(ctx context.Context, accountID string) (accessToken string, err error)
}

// Resolver implements C3.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	store      Store
	auth       Auth
	group      singleflight.Group
}

// New creates a Resolver against the given upstream base URL.
func New(baseURL string, store Store, auth Auth) *Resolver {
	return &Resolver{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		store:      store,
		auth:       auth,
	}
}

// Resolve returns a project id for the account, discovering or onboarding
// one if necessary, falling back to a dummy id on any failure. Concurrent
// resolves for the same account share one in-flight discovery.
func (r *Resolver) Resolve(ctx context.Context, accountID string) string {
	configured, discovered := r.store.ProjectState(accountID)
	if configured != "" {
		return configured
	}
	if discovered != "" {
		return discovered
	}

	v, _, _ := r.group.Do(accountID, func() (interface{}, error) {
		id := r.discover(ctx, accountID)
		r.store.SetDiscoveredProjectID(accountID, id)
		return id, nil
	})
	return v.(string)
}

type loadCodeAssistResponse struct {
	CloudaicompanionProject string   `json:"cloudaicompanionProject"`
	CurrentTier             *struct{} `json:"currentTier"`
	AllowedTiers            []struct {
		ID        string `json:"id"`
		IsDefault bool   `json:"isDefault"`
	} `json:"allowedTiers"`
}

type onboardResponse struct {
	Done     bool `json:"done"`
	Response struct {
		CloudaicompanionProject struct {
			ID string `json:"id"`
		} `json:"cloudaicompanionProject"`
	} `json:"response"`
}

func (r *Resolver) discover(ctx context.Context, accountID string) string {
	load, err := r.loadCodeAssist(ctx, accountID)
	if err != nil {
		log.Printf("project: loadCodeAssist failed for %s: %v, falling back to dummy id", accountID, err)
		return dummyProjectID()
	}
	if load.CloudaicompanionProject != "" {
		return load.CloudaicompanionProject
	}

	if load.CurrentTier == nil {
		tier := defaultTier
		for _, t := range load.AllowedTiers {
			if t.IsDefault {
				tier = t.ID
				break
			}
		}
		id, err := r.onboardUser(ctx, accountID, tier)
		if err != nil {
			log.Printf("project: onboardUser failed for %s: %v, falling back to dummy id", accountID, err)
			return dummyProjectID()
		}
		if id != "" {
			return id
		}
	}

	log.Printf("project: no project available for %s after loadCodeAssist, falling back to dummy id", accountID)
	return dummyProjectID()
}

func (r *Resolver) loadCodeAssist(ctx context.Context, accountID string) (*loadCodeAssistResponse, error) {
	body := map[string]interface{}{
		"metadata":               ClientMetadata,
		"cloudaicompanionProject": nil,
	}
	var out loadCodeAssistResponse
	ctx, cancel := context.WithTimeout(ctx, loadCodeAssistTimeout)
	defer cancel()
	if err := r.post(ctx, accountID, ":loadCodeAssist", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resolver) onboardUser(ctx context.Context, accountID, tier string) (string, error) {
	body := map[string]interface{}{
		"tierId":                 tier,
		"metadata":               ClientMetadata,
		"cloudaicompanionProject": nil,
	}
	for attempt := 0; attempt < onboardMaxAttempts; attempt++ {
		var out onboardResponse
		reqCtx, cancel := context.WithTimeout(ctx, onboardRequestTimeout)
		err := r.post(reqCtx, accountID, ":onboardUser", body, &out)
		cancel()
		if err != nil {
			return "", err
		}
		if out.Done {
			return out.Response.CloudaicompanionProject.ID, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(onboardPollInterval):
		}
	}
	return "", fmt.Errorf("project: onboardUser did not complete after %d attempts", onboardMaxAttempts)
}

func (r *Resolver) post(ctx context.Context, accountID, path string, body interface{}, out interface{}) error {
	token, err := r.auth.AuthHeader(ctx, accountID)
	if err != nil {
		return fmt.Errorf("project: auth: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("project: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
