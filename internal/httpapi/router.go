package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aurora-relay/gateway/internal/logging"
)

// NewRouter builds the full HTTP surface: the OpenAI and Anthropic dialect
// endpoints (API-key gated), the static model list, the quota read, and a
// read-only admin surface gated by an optional basic-auth password.
func NewRouter(a *API) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(logging.Middleware)

	r.Route("/v1", func(r chi.Router) {
		r.With(BearerAuth(a.APIKey)).Post("/chat/completions", a.ChatCompletions)
		r.With(APIKeyHeaderAuth(a.APIKey)).Post("/messages", a.Messages)
		r.With(BearerAuth(a.APIKey)).Get("/models", a.Models)
		r.With(BearerAuth(a.APIKey)).Get("/quota", a.Quota)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(OptionalAdminAuth(a.AdminPass))
		r.Get("/accounts", a.AdminAccounts)
		r.Get("/quota", a.AdminQuota)
	})

	if a.OAuth != nil {
		r.Get("/auth/login", a.OAuth.HandleLogin)
		r.Get("/auth/callback", a.OAuth.HandleCallback)
	}

	return r
}
