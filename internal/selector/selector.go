// Package selector implements the Selector (C5): quota-aware, usage-aware
// scoring over the ready accounts in the pool.
package selector

import (
	"time"

	"github.com/aurora-relay/gateway/internal/accounts"
	"github.com/aurora-relay/gateway/internal/quota"
)

const (
	quotaWeight          = 1000.0
	quotaExhaustedPenalty = -5000.0
	usageWeight          = -0.1
	neverUsedBonus       = 4000.0
	maxRecencySeconds    = 3600.0
)

// AccountReader is the narrow view the Selector needs from the Credential
// Store: the current snapshot of ready accounts, with cooldowns already
// expired lazily.
type AccountReader interface {
	ReadyAccounts() []accounts.Snapshot
}

// Selector picks the best ready account for a given model.
type Selector struct {
	store AccountReader
	quota quota.View
	now   func() time.Time
}

// New creates a Selector backed by the given account reader and quota view.
func New(store AccountReader, quotaView quota.View) *Selector {
	return &Selector{store: store, quota: quotaView, now: time.Now}
}

// Pick returns the highest-scoring ready account for model, or false if the
// pool has no ready accounts. Model may be empty, in which case the quota
// component of the score is skipped.
func (s *Selector) Pick(model string) (accounts.Snapshot, bool) {
	ready := s.store.ReadyAccounts()
	if len(ready) == 0 {
		return accounts.Snapshot{}, false
	}

	now := s.now()
	best := ready[0]
	bestScore := s.score(best, model, now)
	for _, a := range ready[1:] {
		sc := s.score(a, model, now)
		if sc > bestScore {
			best = a
			bestScore = sc
		}
	}
	return best, true
}

func (s *Selector) score(a accounts.Snapshot, model string, now time.Time) float64 {
	var score float64

	if model != "" && s.quota != nil {
		if entry, ok := s.quota.Lookup(a.ID, model); ok {
			score += quotaWeight * entry.RemainingFraction
			if entry.Status() == quota.StatusExhausted {
				score += quotaExhaustedPenalty
			}
		}
	}

	score += usageWeight * float64(a.RequestCount)

	if a.LastUsedAt.IsZero() {
		score += neverUsedBonus
	} else {
		secondsSince := now.Sub(a.LastUsedAt).Seconds()
		if secondsSince > maxRecencySeconds {
			secondsSince = maxRecencySeconds
		}
		score += secondsSince
	}

	return score
}
