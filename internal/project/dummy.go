package project

import (
	"crypto/rand"
	"encoding/hex"
)

// adjectives/nouns for the degraded-mode dummy project id fallback, in the
// style of the reference antigravity executor's generateProjectID.
var (
	adjectives = []string{"useful", "bright", "swift", "calm", "bold", "quiet", "amber", "civic"}
	nouns      = []string{"fuze", "wave", "spark", "flow", "core", "grove", "delta", "ridge"}
)

// dummyProjectID synthesizes a deterministic-looking but random project id:
// adjective-noun-5hexchars. It is a degraded-mode fallback only; callers
// must log prominently, since a dummy id may be rejected by the upstream.
func dummyProjectID() string {
	adj := adjectives[randIndex(len(adjectives))]
	noun := nouns[randIndex(len(nouns))]
	return adj + "-" + noun + "-" + randHex(5)
}

func randIndex(n int) int {
	b := make([]byte, 1)
	_, _ = rand.Read(b)
	return int(b[0]) % n
}

func randHex(n int) string {
	b := make([]byte, (n+1)/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)[:n]
}
