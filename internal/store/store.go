// Package store defines the persistence contract described in §4.5 of the
// specification: two narrow interfaces that a cluster store and a node
// registration store must satisfy, independent of backing technology. The
// in-memory implementation (store/memory) and the durable implementation
// (store/etcdstore) are drop-in interchangeable behind these interfaces.
package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by ClusterStore.Get when no cluster with the
// given id has ever been registered.
var ErrNotFound = errors.New("not found")

// Cluster is the administrative grouping identified by a 128-bit id, owning
// one asymmetric signing key. It is created once, by the first successful
// registration, and is never updated or deleted by the core.
type Cluster struct {
	ClusterID string
	PublicKey []byte
}

// NodeRegistration records that some member of a cluster performed a
// discovery call. Its payload is opaque to the registry.
type NodeRegistration struct {
	ID               int64
	ClusterID        string
	VersionName      string
	VersionNumber    int64
	EncryptedPayload []byte
	ServerTimestamp  int64
}

// Group identifies the logical partition (cluster_id, version_name,
// version_number) under which node registrations are isolated.
type Group struct {
	ClusterID     string
	VersionName   string
	VersionNumber int64
}

// ClusterStore persists Cluster rows, keyed uniquely by ClusterID.
type ClusterStore interface {
	// Get returns the cluster registered under id, or ErrNotFound.
	Get(ctx context.Context, clusterID string) (*Cluster, error)

	// Add attempts to insert c. It must be atomic with respect to
	// uniqueness on c.ClusterID: of any two concurrent calls racing on the
	// same ClusterID, exactly one must return inserted=true. It returns
	// inserted=false (and a nil error) when a row with that ClusterID
	// already exists, regardless of whether its PublicKey matches —
	// callers distinguish AlreadyExists from PublicKeyMismatch themselves
	// by comparing against the row returned from a subsequent Get.
	Add(ctx context.Context, c *Cluster) (inserted bool, err error)
}

// NodeStore persists NodeRegistration rows and performs the capacity
// eviction described in §4.4.
type NodeStore interface {
	// Add persists reg. The store is responsible for assigning ID and
	// ServerTimestamp such that, for any two rows in the same Group,
	// ServerTimestamp values are strictly totally ordered (ties are
	// impossible because ID itself breaks them, per §5).
	Add(ctx context.Context, reg *NodeRegistration) error

	// Get returns up to max of the most recent registrations in g, ordered
	// by ServerTimestamp descending.
	Get(ctx context.Context, g Group, max int) ([]*NodeRegistration, error)

	// Evict deletes the oldest rows in g, by ServerTimestamp ascending
	// (ties broken by ascending ID, i.e. the newest surrogate id among
	// tied timestamps survives), until at most maxPerGroup remain. It is
	// safe to call concurrently and from multiple groups. The in-memory
	// implementation holds its store mutex while evicting, so a concurrent
	// Add on that store waits until Evict returns.
	Evict(ctx context.Context, g Group, maxPerGroup int) error
}
