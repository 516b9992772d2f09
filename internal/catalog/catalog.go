// Package catalog holds the static model table backing GET /v1/models and
// the default safety-settings table applied to every upstream request. Both
// load from an embedded YAML asset with environment-variable overrides for
// the model list, mirroring the teacher's providers/catalog config style.
package catalog

import (
	_ "embed"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// ModelInfo describes one entry in the static /v1/models table.
type ModelInfo struct {
	ID      string `yaml:"id" json:"id"`
	OwnedBy string `yaml:"owned_by" json:"owned_by"`
}

type fileConfig struct {
	Models         []ModelInfo         `yaml:"models"`
	SafetySettings []map[string]string `yaml:"safety_settings"`
}

var (
	stateMu     sync.RWMutex
	initialized bool
	models      []ModelInfo
	safety      []map[string]string
)

// InitFromEmbedded loads the embedded model table and applies the
// ANTIGRAVITY_EXTRA_MODELS override (comma-separated "id:owned_by" pairs
// appended to the static list).
func InitFromEmbedded() error {
	var cfg fileConfig
	err := yaml.Unmarshal(modelsYAML, &cfg)

	stateMu.Lock()
	defer stateMu.Unlock()

	models = append([]ModelInfo(nil), cfg.Models...)
	models = append(models, extraModelsFromEnv()...)
	safety = append([]map[string]string(nil), cfg.SafetySettings...)
	initialized = true
	return err
}

func ensureInitialized() {
	stateMu.RLock()
	ok := initialized
	stateMu.RUnlock()
	if ok {
		return
	}
	_ = InitFromEmbedded()
}

// ResetForTest clears in-memory state so tests can force a reload.
func ResetForTest() {
	stateMu.Lock()
	defer stateMu.Unlock()
	initialized = false
	models = nil
	safety = nil
}

func extraModelsFromEnv() []ModelInfo {
	raw := strings.TrimSpace(os.Getenv("ANTIGRAVITY_EXTRA_MODELS"))
	if raw == "" {
		return nil
	}
	var extra []ModelInfo
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		info := ModelInfo{ID: strings.TrimSpace(parts[0]), OwnedBy: "antigravity"}
		if len(parts) == 2 {
			info.OwnedBy = strings.TrimSpace(parts[1])
		}
		if info.ID == "" {
			continue
		}
		extra = append(extra, info)
	}
	return extra
}

// Models returns the static model table.
func Models() []ModelInfo {
	ensureInitialized()
	stateMu.RLock()
	defer stateMu.RUnlock()
	return append([]ModelInfo(nil), models...)
}

// SafetySettings returns the default safety-settings table applied to every
// upstream generateContent request.
func SafetySettings() []map[string]string {
	ensureInitialized()
	stateMu.RLock()
	defer stateMu.RUnlock()
	out := make([]map[string]string, len(safety))
	for i, entry := range safety {
		cp := make(map[string]string, len(entry))
		for k, v := range entry {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// ModelListEntry is one row of the GET /v1/models response.
type ModelListEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelListResponse is the full GET /v1/models body.
type ModelListResponse struct {
	Object string           `json:"object"`
	Data   []ModelListEntry `json:"data"`
}

// modelListEpoch is used as the fixed "created" timestamp for every static
// entry, since the catalog has no per-model creation date of its own.
var modelListEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()

// ListResponse builds the GET /v1/models body from the static model table.
func ListResponse() ModelListResponse {
	entries := Models()
	data := make([]ModelListEntry, 0, len(entries))
	for _, m := range entries {
		data = append(data, ModelListEntry{
			ID:      m.ID,
			Object:  "model",
			Created: modelListEpoch,
			OwnedBy: m.OwnedBy,
		})
	}
	return ModelListResponse{Object: "list", Data: data}
}
