// Package eviction runs the asynchronous group-capacity enforcement
// described in §4.4: the admission pipeline only ever enqueues a hint after
// a successful insert, never evicts inline, and a single background worker
// drains the hint queue and calls into the node store's Evict operation.
// Grounded on the teacher's pkg/manager removeCh idiom (a small buffered
// channel fed by request-handling code and drained by one long-running
// goroutine), generalized here to an unbounded queue: producers must never
// block and every hint must eventually be observed, so a fixed-capacity
// channel with a drop-on-full send is not an option.
package eviction

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/criticalstack/lighthouse/internal/log"
	"github.com/criticalstack/lighthouse/internal/store"
)

// Worker drains group eviction hints and enforces per-group capacity
// against a store.NodeStore. The zero value is not usable; use New.
type Worker struct {
	nodes       store.NodeStore
	maxPerGroup int

	mu      sync.Mutex
	pending []store.Group
	wake    chan struct{}
}

func New(nodes store.NodeStore, maxPerGroup int) *Worker {
	return &Worker{
		nodes:       nodes,
		maxPerGroup: maxPerGroup,
		wake:        make(chan struct{}, 1),
	}
}

// Hint enqueues g for eviction consideration. It never blocks and never
// drops a hint: a slow consumer grows the pending queue rather than
// shedding work, and QueueDepth exposes that growth as an operational
// alarm via metrics.
func (w *Worker) Hint(g store.Group) {
	w.mu.Lock()
	w.pending = append(w.pending, g)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// QueueDepth reports the number of hints currently pending, for metrics.
func (w *Worker) QueueDepth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Worker) next() (store.Group, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return store.Group{}, false
	}
	g := w.pending[0]
	w.pending = w.pending[1:]
	return g, true
}

// Run drains hints until ctx is cancelled, evicting overflow from each
// hinted group as it arrives. A failed eviction is logged and swallowed:
// the group will simply exceed its cap until a later hint retries it, which
// §4.4 tolerates as a bounded, transient overshoot.
func (w *Worker) Run(ctx context.Context) {
	log.Debug("starting eviction worker")
	for {
		for {
			g, ok := w.next()
			if !ok {
				break
			}
			if err := w.nodes.Evict(ctx, g, w.maxPerGroup); err != nil {
				log.Error("eviction failed, group may transiently exceed its cap",
					zap.String("cluster_id", g.ClusterID),
					zap.String("version_name", g.VersionName),
					zap.Int64("version_number", g.VersionNumber),
					zap.Error(err),
				)
			}
		}
		select {
		case <-w.wake:
		case <-ctx.Done():
			log.Debug("stopping eviction worker")
			return
		}
	}
}
