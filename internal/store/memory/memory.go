// Package memory implements store.ClusterStore and store.NodeStore backed
// by maps guarded by a single mutex, with secondary ordering computed at
// read time. This is the simpler locking discipline §9 ("Polymorphism over
// storage") explicitly sanctions as acceptable for the in-memory variant,
// used for tests and for single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/criticalstack/lighthouse/internal/store"
)

// ClusterStore is an in-memory store.ClusterStore.
type ClusterStore struct {
	mu       sync.Mutex
	clusters map[string]*store.Cluster
}

func NewClusterStore() *ClusterStore {
	return &ClusterStore{clusters: make(map[string]*store.Cluster)}
}

func (s *ClusterStore) Get(ctx context.Context, clusterID string) (*store.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clusters[clusterID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	cp.PublicKey = append([]byte(nil), c.PublicKey...)
	return &cp, nil
}

func (s *ClusterStore) Add(ctx context.Context, c *store.Cluster) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clusters[c.ClusterID]; ok {
		return false, nil
	}
	cp := *c
	cp.PublicKey = append([]byte(nil), c.PublicKey...)
	s.clusters[c.ClusterID] = &cp
	return true, nil
}

// NodeStore is an in-memory store.NodeStore. Add never trims a group
// itself; capacity is enforced exclusively by Evict, called by the
// asynchronous eviction worker. This resolves the Open Question in §9 in
// favor of the async-only model required by §5: an inline trim on Add
// would serialize concurrent writers to the same group through the
// eviction path, which the design notes rule out.
type NodeStore struct {
	mu     sync.Mutex
	rows   map[string][]*store.NodeRegistration
	nextID int64
}

func NewNodeStore() *NodeStore {
	return &NodeStore{rows: make(map[string][]*store.NodeRegistration)}
}

func groupKey(g store.Group) string {
	return g.ClusterID + "\x00" + g.VersionName + "\x00" + itoa(g.VersionNumber)
}

func itoa(n int64) string {
	// a local formatter rather than strconv; the only use is building an
	// opaque map key.
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (s *NodeStore) Add(ctx context.Context, reg *store.NodeRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	reg.ID = s.nextID
	reg.ServerTimestamp = nowNano()

	k := groupKey(store.Group{ClusterID: reg.ClusterID, VersionName: reg.VersionName, VersionNumber: reg.VersionNumber})
	cp := *reg
	cp.EncryptedPayload = append([]byte(nil), reg.EncryptedPayload...)
	s.rows[k] = append(s.rows[k], &cp)
	return nil
}

func (s *NodeStore) Get(ctx context.Context, g store.Group, max int) ([]*store.NodeRegistration, error) {
	s.mu.Lock()
	rows := append([]*store.NodeRegistration(nil), s.rows[groupKey(g)]...)
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ServerTimestamp != rows[j].ServerTimestamp {
			return rows[i].ServerTimestamp > rows[j].ServerTimestamp
		}
		return rows[i].ID > rows[j].ID
	})
	if len(rows) > max {
		rows = rows[:max]
	}
	out := make([]*store.NodeRegistration, len(rows))
	for i, r := range rows {
		cp := *r
		cp.EncryptedPayload = append([]byte(nil), r.EncryptedPayload...)
		out[i] = &cp
	}
	return out, nil
}

func (s *NodeStore) Evict(ctx context.Context, g store.Group, maxPerGroup int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := groupKey(g)
	rows := s.rows[k]
	if len(rows) <= maxPerGroup {
		return nil
	}
	sorted := append([]*store.NodeRegistration(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ServerTimestamp != sorted[j].ServerTimestamp {
			return sorted[i].ServerTimestamp > sorted[j].ServerTimestamp
		}
		return sorted[i].ID > sorted[j].ID
	})
	sorted = sorted[:maxPerGroup]
	keep := make(map[int64]bool, len(sorted))
	for _, r := range sorted {
		keep[r.ID] = true
	}
	kept := rows[:0:0]
	for _, r := range rows {
		if keep[r.ID] {
			kept = append(kept, r)
		}
	}
	s.rows[k] = kept
	return nil
}

var tsCounter int64

// nowNano substitutes a process-wide monotonic counter for wall-clock
// nanoseconds. A plain atomic counter, rather than time.Now().UnixNano(),
// sidesteps the clock's lack of a monotonicity guarantee entirely — the
// second Open Question in §9 asks for exactly this when the platform clock
// cannot be trusted.
func nowNano() int64 {
	return atomic.AddInt64(&tsCounter, 1)
}
