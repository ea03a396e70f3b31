package auth

import (
	"sync"
	"time"
)

// Blacklist holds token-level and user-level revocations. Both reads and
// writes are protected by a single RWMutex; Verify calls IsRevoked and
// IsCutBefore on every request, so reads dominate and take the RLock.
type Blacklist struct {
	mu sync.RWMutex

	tokens map[string]time.Time // token hash -> expires_at
	cutoff map[string]time.Time // user_id -> revoked_all_before
}

// NewBlacklist builds an empty revocation store.
func NewBlacklist() *Blacklist {
	return &Blacklist{
		tokens: make(map[string]time.Time),
		cutoff: make(map[string]time.Time),
	}
}

// RevokeToken blacklists a single token hash until it would have expired
// anyway; the sweep reclaims it after that.
func (b *Blacklist) RevokeToken(tokenHash string, expiresAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[tokenHash] = expiresAt
}

// RevokeUser invalidates every token for userID issued before cutoff.
// A cutoff earlier than one already recorded for userID is ignored.
func (b *Blacklist) RevokeUser(userID string, cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.cutoff[userID]; !ok || cutoff.After(existing) {
		b.cutoff[userID] = cutoff
	}
}

// IsRevoked reports whether tokenHash has been individually revoked.
func (b *Blacklist) IsRevoked(tokenHash string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.tokens[tokenHash]
	return ok
}

// IsCutBefore reports whether issuedAt predates userID's revocation
// cutoff, if any.
func (b *Blacklist) IsCutBefore(userID string, issuedAt time.Time) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cutoff, ok := b.cutoff[userID]
	return ok && issuedAt.Before(cutoff)
}

// Sweep removes token-level revocations past their expires_at. Meant to
// be run periodically by internal/scheduler, the same ticker-driven
// pattern the teacher uses for its own background jobs.
func (b *Blacklist) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for hash, expiresAt := range b.tokens {
		if now.After(expiresAt) {
			delete(b.tokens, hash)
			removed++
		}
	}
	return removed
}
