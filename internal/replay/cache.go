// Package replay implements the anti-replay cache described in §4.3: a
// sliding time window of (nonce, signature) fingerprints used to reject a
// discovery request that reuses a fingerprint already seen within the
// window. Grounded on the teacher's pkg/manager ticker-driven background
// loop idiom (runSnapshotter), adapted here to expire fingerprints instead
// of rotating snapshots.
package replay

import (
	"context"
	"sync"
	"time"

	"github.com/criticalstack/lighthouse/internal/log"
)

// Cache tracks fingerprints seen within a trailing window. Safe for
// concurrent use.
type Cache struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func New(window time.Duration) *Cache {
	return &Cache{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Fingerprint joins the nonce and signature wire text exactly as received —
// the base64 alphabet never contains '.', so the separator keeps the pair
// ("a", "bc") distinct from ("ab", "c") without decoding either side.
// Operating on the wire text directly (rather than on decoded-then-
// re-encoded bytes) matters: base64.StdEncoding's decoder accepts
// non-canonical trailing bits, so two distinct wire strings can decode to
// the same bytes and a decode/re-encode round-trip would collapse them.
func Fingerprint(nonceText, signatureText string) string {
	return nonceText + "." + signatureText
}

// CheckAndRecord reports whether the (nonceText, signatureText) pair is
// fresh (not seen within the window) and, if so, records it as seen at now.
// Either argument being empty is always treated as not fresh, matching the
// anti-replay contract's literal rule — an empty signature or nonce must
// never be recordable as a first sighting. A stale entry — one whose
// recorded time has fallen outside the window but has not yet been swept
// by Expire — is treated as fresh and overwritten, since it could not have
// caused a duplicate admission decision within the replay-protection
// window.
func (c *Cache) CheckAndRecord(nonceText, signatureText string, now time.Time) (fresh bool) {
	if nonceText == "" || signatureText == "" {
		return false
	}

	fingerprint := Fingerprint(nonceText, signatureText)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seenAt, ok := c.seen[fingerprint]; ok && now.Sub(seenAt) < c.window {
		return false
	}
	c.seen[fingerprint] = now
	return true
}

// Expire drops every fingerprint recorded before the window. Called
// periodically by Run; exposed directly for tests that don't want to wait
// on a ticker.
func (c *Cache) Expire(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for fp, seenAt := range c.seen {
		if now.Sub(seenAt) >= c.window {
			delete(c.seen, fp)
		}
	}
}

// Len reports the number of currently tracked fingerprints, for metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Run sweeps expired fingerprints on interval until ctx is cancelled. Meant
// to be started in its own goroutine.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	log.Debug("starting replay cache janitor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Expire(time.Now())
		case <-ctx.Done():
			log.Debug("stopping replay cache janitor")
			return
		}
	}
}
