package replay_test

import (
	"testing"
	"time"

	"github.com/criticalstack/lighthouse/internal/replay"
)

func TestCheckAndRecordRejectsDuplicateWithinWindow(t *testing.T) {
	c := replay.New(time.Minute)
	now := time.Unix(1000, 0)

	if fresh := c.CheckAndRecord("nonce", "sig", now); !fresh {
		t.Fatal("expected first sighting to be fresh")
	}
	if fresh := c.CheckAndRecord("nonce", "sig", now.Add(time.Second)); fresh {
		t.Fatal("expected duplicate within window to be rejected")
	}
}

func TestCheckAndRecordAllowsAfterWindowElapses(t *testing.T) {
	c := replay.New(time.Minute)
	now := time.Unix(1000, 0)

	c.CheckAndRecord("nonce", "sig", now)
	if fresh := c.CheckAndRecord("nonce", "sig", now.Add(2*time.Minute)); !fresh {
		t.Fatal("expected fingerprint to be fresh again after the window elapsed")
	}
}

func TestCheckAndRecordRejectsEmptyNonceOrSignature(t *testing.T) {
	c := replay.New(time.Minute)
	now := time.Unix(1000, 0)

	if fresh := c.CheckAndRecord("", "sig", now); fresh {
		t.Fatal("expected empty nonce to never be fresh")
	}
	if fresh := c.CheckAndRecord("nonce", "", now); fresh {
		t.Fatal("expected empty signature to never be fresh")
	}
	if fresh := c.CheckAndRecord("", "", now); fresh {
		t.Fatal("expected empty nonce and signature to never be fresh")
	}
	if got, want := c.Len(), 0; got != want {
		t.Fatalf("rejected empty pairs must not be recorded, got %d entries", got)
	}
}

func TestFingerprintDistinguishesNonceAndSignature(t *testing.T) {
	a := replay.Fingerprint("a", "bc")
	b := replay.Fingerprint("ab", "c")
	if a == b {
		t.Fatalf("expected distinct fingerprints, got equal: %q", a)
	}
}

func TestExpireDropsOnlyStaleEntries(t *testing.T) {
	c := replay.New(time.Minute)
	now := time.Unix(1000, 0)

	c.CheckAndRecord("n1", "s1", now)
	c.CheckAndRecord("n2", "s2", now.Add(50*time.Second))

	c.Expire(now.Add(90 * time.Second))
	if got, want := c.Len(), 1; got != want {
		t.Fatalf("expected %d entries remaining, got %d", want, got)
	}
	if ok := c.CheckAndRecord("n2", "s2", now.Add(90*time.Second)); ok {
		t.Fatal("expected the still-fresh fingerprint to remain tracked")
	}
}
