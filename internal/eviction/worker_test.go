package eviction_test

import (
	"context"
	"testing"
	"time"

	"github.com/criticalstack/lighthouse/internal/eviction"
	"github.com/criticalstack/lighthouse/internal/store"
	"github.com/criticalstack/lighthouse/internal/store/memory"
)

func TestWorkerEvictsHintedGroup(t *testing.T) {
	nodes := memory.NewNodeStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}
	for i := 0; i < 6; i++ {
		if err := nodes.Add(ctx, &store.NodeRegistration{ClusterID: g.ClusterID, VersionName: g.VersionName, VersionNumber: g.VersionNumber}); err != nil {
			t.Fatal(err)
		}
	}

	w := eviction.New(nodes, 5)
	go w.Run(ctx)
	w.Hint(g)

	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, err := nodes.Get(ctx, g, 100)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) == 5 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("eviction did not converge to 5 rows, have %d", len(rows))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkerHintDoesNotBlockWithoutConsumer(t *testing.T) {
	nodes := memory.NewNodeStore()
	w := eviction.New(nodes, 5)
	g := store.Group{ClusterID: "c1", VersionName: "prod", VersionNumber: 1}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5000; i++ {
			w.Hint(g)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Hint blocked while no consumer was draining the queue")
	}
}
