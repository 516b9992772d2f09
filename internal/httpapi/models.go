package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/aurora-relay/gateway/internal/catalog"
)

// Models handles GET /v1/models.
func (a *API) Models(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(catalog.ListResponse())
}
