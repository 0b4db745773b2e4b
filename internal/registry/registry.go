package registry

import (
	"github.com/criticalstack/lighthouse/internal/eviction"
	"github.com/criticalstack/lighthouse/internal/replay"
	"github.com/criticalstack/lighthouse/internal/store"
)

// Registry wires the storage contract, the anti-replay cache, and the
// eviction worker's hint sink into the two admission operations. It carries
// no dependency on net/http.
type Registry struct {
	clusters store.ClusterStore
	nodes    store.NodeStore
	replay   *replay.Cache
	evictor  hinter

	maxPerGroup int
}

// hinter is the slice of eviction.Worker this package depends on.
type hinter interface {
	Hint(store.Group)
}

// Config holds everything Registry needs beyond the stores themselves.
type Config struct {
	MaxPerGroup int
}

func New(clusters store.ClusterStore, nodes store.NodeStore, replayCache *replay.Cache, evictor *eviction.Worker, cfg Config) *Registry {
	return &Registry{
		clusters:    clusters,
		nodes:       nodes,
		replay:      replayCache,
		evictor:     evictor,
		maxPerGroup: cfg.MaxPerGroup,
	}
}
