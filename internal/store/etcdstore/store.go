package etcdstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/criticalstack/lighthouse/internal/store"
)

// ClusterStore is the etcd-backed store.ClusterStore.
type ClusterStore struct {
	c *client
}

// NewClusterStore dials etcd and returns a store.ClusterStore backed by it.
func NewClusterStore(cfg *Config) (*ClusterStore, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ClusterStore{c: c}, nil
}

func (s *ClusterStore) Get(ctx context.Context, clusterID string) (*store.Cluster, error) {
	raw, err := s.c.getOne(ctx, clusterKey(clusterID))
	if err != nil {
		if errors.Cause(err) == ErrKeyNotFound {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var c store.Cluster
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "decode cluster row")
	}
	return &c, nil
}

func (s *ClusterStore) Add(ctx context.Context, c *store.Cluster) (bool, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return false, err
	}
	return s.c.putIfAbsent(ctx, clusterKey(c.ClusterID), string(raw))
}

func (s *ClusterStore) Close() error { return s.c.Close() }

// NodeStore is the etcd-backed store.NodeStore. Keys are laid out so that
// plain ascending lexicographic range scans (etcd's native order) already
// yield rows in descending server_timestamp order, see keys.go.
type NodeStore struct {
	c *client
}

func NewNodeStore(cfg *Config) (*NodeStore, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &NodeStore{c: c}, nil
}

func (s *NodeStore) Add(ctx context.Context, reg *store.NodeRegistration) error {
	id, err := s.c.incr(ctx, surrogateIDKey)
	if err != nil {
		return errors.Wrap(err, "assign surrogate id")
	}
	reg.ID = id
	reg.ServerTimestamp = id // counter doubles as the monotonic tiebreak source

	raw, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	key := nodeKey(reg.ClusterID, reg.VersionName, reg.VersionNumber, reg.ServerTimestamp, reg.ID)
	return s.c.put(ctx, key, string(raw))
}

func (s *NodeStore) Get(ctx context.Context, g store.Group, max int) ([]*store.NodeRegistration, error) {
	prefix := nodeGroupPrefix(g.ClusterID, g.VersionName, g.VersionNumber)
	kvs, err := s.c.prefix(ctx, prefix, clientv3.WithLimit(int64(max)))
	if err != nil {
		return nil, err
	}
	out := make([]*store.NodeRegistration, 0, len(kvs))
	for _, kv := range kvs {
		var reg store.NodeRegistration
		if err := json.Unmarshal(kv.Value, &reg); err != nil {
			return nil, errors.Wrap(err, "decode node registration row")
		}
		out = append(out, &reg)
	}
	return out, nil
}

func (s *NodeStore) Evict(ctx context.Context, g store.Group, maxPerGroup int) error {
	prefix := nodeGroupPrefix(g.ClusterID, g.VersionName, g.VersionNumber)
	kvs, err := s.c.prefix(ctx, prefix)
	if err != nil {
		return err
	}
	if len(kvs) <= maxPerGroup {
		return nil
	}
	// kvs is already ordered newest-first by key encoding; anything past
	// maxPerGroup is the overflow this call exists to remove.
	for _, kv := range kvs[maxPerGroup:] {
		if _, err := s.c.delete(ctx, kv.Key); err != nil {
			return err
		}
	}
	return nil
}

func (s *NodeStore) Close() error { return s.c.Close() }
