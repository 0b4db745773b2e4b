package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/criticalstack/lighthouse/internal/store"
	"github.com/criticalstack/lighthouse/internal/store/memory"
)

func TestClusterStoreAddIsUniqueAndIdempotentOnRace(t *testing.T) {
	s := memory.NewClusterStore()
	ctx := context.Background()

	const n = 50
	results := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.Add(ctx, &store.Cluster{ClusterID: "c1", PublicKey: []byte("key")})
			if err != nil {
				t.Error(err)
			}
			results[i] = ok
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, ok := range results {
		if ok {
			inserted++
		}
	}
	if inserted != 1 {
		t.Fatalf("expected exactly 1 successful insert under race, got %d", inserted)
	}

	got, err := s.Get(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.PublicKey) != "key" {
		t.Fatalf("unexpected stored key: %q", got.PublicKey)
	}
}

func TestClusterStoreGetNotFound(t *testing.T) {
	s := memory.NewClusterStore()
	if _, err := s.Get(context.Background(), "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNodeStoreGetOrderingExcludesNothingUnexpected(t *testing.T) {
	s := memory.NewNodeStore()
	ctx := context.Background()
	g := store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}

	for i := 0; i < 3; i++ {
		if err := s.Add(ctx, &store.NodeRegistration{ClusterID: g.ClusterID, VersionName: g.VersionName, VersionNumber: g.VersionNumber}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.Get(ctx, g, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i := 0; i < len(rows)-1; i++ {
		if rows[i].ServerTimestamp <= rows[i+1].ServerTimestamp {
			t.Fatalf("expected descending order, got %v", rows)
		}
	}
}

func TestNodeStoreGetRespectsMax(t *testing.T) {
	s := memory.NewNodeStore()
	ctx := context.Background()
	g := store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}

	for i := 0; i < 10; i++ {
		if err := s.Add(ctx, &store.NodeRegistration{ClusterID: g.ClusterID, VersionName: g.VersionName, VersionNumber: g.VersionNumber}); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.Get(ctx, g, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
}

func TestNodeStoreEvictKeepsMostRecent(t *testing.T) {
	s := memory.NewNodeStore()
	ctx := context.Background()
	g := store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}

	var ids []int64
	for i := 0; i < 6; i++ {
		reg := &store.NodeRegistration{ClusterID: g.ClusterID, VersionName: g.VersionName, VersionNumber: g.VersionNumber}
		if err := s.Add(ctx, reg); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, reg.ID)
	}

	if err := s.Evict(ctx, g, 5); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Get(ctx, g, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows after eviction, got %d", len(rows))
	}
	for _, r := range rows {
		if r.ID == ids[0] {
			t.Fatalf("expected oldest registration (id %d) to be evicted", ids[0])
		}
	}
}

func TestNodeStoreEvictIsNoopUnderCap(t *testing.T) {
	s := memory.NewNodeStore()
	ctx := context.Background()
	g := store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}

	if err := s.Add(ctx, &store.NodeRegistration{ClusterID: g.ClusterID, VersionName: g.VersionName, VersionNumber: g.VersionNumber}); err != nil {
		t.Fatal(err)
	}
	if err := s.Evict(ctx, g, 5); err != nil {
		t.Fatal(err)
	}
	rows, err := s.Get(ctx, g, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestNodeStoreGetReturnsIndependentCopies(t *testing.T) {
	s := memory.NewNodeStore()
	ctx := context.Background()
	g := store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}

	if err := s.Add(ctx, &store.NodeRegistration{ClusterID: g.ClusterID, VersionName: g.VersionName, VersionNumber: g.VersionNumber, EncryptedPayload: []byte("x")}); err != nil {
		t.Fatal(err)
	}

	first, err := s.Get(ctx, g, 5)
	if err != nil {
		t.Fatal(err)
	}
	first[0].EncryptedPayload[0] = 'y'

	second, err := s.Get(ctx, g, 5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("x", string(second[0].EncryptedPayload)); diff != "" {
		t.Fatalf("mutating a returned row must not affect the stored copy (-want +got):\n%s", diff)
	}
}

func TestGroupIsolation(t *testing.T) {
	s := memory.NewNodeStore()
	ctx := context.Background()

	if err := s.Add(ctx, &store.NodeRegistration{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}); err != nil {
		t.Fatal(err)
	}
	rows, err := s.Get(ctx, store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 2}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected a different version_number to be an isolated group, got %d rows", len(rows))
	}
}
