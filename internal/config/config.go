// Package config loads the gateway's environment-variable configuration,
// following the teacher's inline os.Getenv style in cmd/nexus/main.go
// rather than a struct-tag config library.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aurora-relay/gateway/internal/accounts"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	Host string
	Port string

	ProxyAPIKey   string
	AdminPassword string

	AntigravityClientID     string
	AntigravityClientSecret string

	CooldownDuration time.Duration
	MaxRetryAccounts int

	Accounts []accounts.Credential
}

// accountEntry is the shape of one ANTIGRAVITY_ACCOUNTS_<N> value.
type accountEntry struct {
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiryDate   int64  `json:"expiryDate"`
	ProjectID    string `json:"projectId"`
}

// Load reads the process environment into a Config, applying defaults for
// every unset optional value.
func Load() Config {
	cfg := Config{
		Host:                    getEnv("HOST", "127.0.0.1"),
		Port:                    getEnv("PORT", "8080"),
		ProxyAPIKey:             os.Getenv("PROXY_API_KEY"),
		AdminPassword:           os.Getenv("NEXUS_ADMIN_PASSWORD"),
		AntigravityClientID:     os.Getenv("ANTIGRAVITY_CLIENT_ID"),
		AntigravityClientSecret: os.Getenv("ANTIGRAVITY_CLIENT_SECRET"),
		CooldownDuration:        getEnvDurationMS("COOLDOWN_DURATION_MS", 60_000),
		MaxRetryAccounts:        getEnvInt("MAX_RETRY_ACCOUNTS", 3),
	}
	cfg.Accounts = loadAccountsFromEnv()
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not a valid integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDurationMS(key string, fallbackMS int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMS)) * time.Millisecond
}

// loadAccountsFromEnv parses the ANTIGRAVITY_ACCOUNTS_<N> series starting
// at N=1, stopping at the first gap. A malformed entry is skipped with a
// warning rather than aborting the whole series.
func loadAccountsFromEnv() []accounts.Credential {
	var out []accounts.Credential
	for n := 1; ; n++ {
		key := fmt.Sprintf("ANTIGRAVITY_ACCOUNTS_%d", n)
		raw := os.Getenv(key)
		if raw == "" {
			break
		}

		var entry accountEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Printf("config: %s is malformed, skipping: %v", key, err)
			continue
		}
		if entry.Email == "" || entry.RefreshToken == "" {
			log.Printf("config: %s is missing email or refreshToken, skipping", key)
			continue
		}

		out = append(out, accounts.Credential{
			Email:        entry.Email,
			AccessToken:  entry.AccessToken,
			RefreshToken: entry.RefreshToken,
			ExpiryMillis: entry.ExpiryDate,
			ProjectID:    entry.ProjectID,
		})
	}
	return out
}
