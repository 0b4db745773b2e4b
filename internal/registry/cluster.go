package registry

import (
	"bytes"
	"context"
	"encoding/base64"

	"github.com/google/uuid"

	"github.com/criticalstack/lighthouse/internal/crypto"
	"github.com/criticalstack/lighthouse/internal/store"
)

// RegisterCluster implements the registrar described in §4.2: parse and
// validate the id and key, then either insert, confirm an idempotent
// re-registration, or report a key mismatch.
func (r *Registry) RegisterCluster(ctx context.Context, req RegisterClusterRequest) (RegisterClusterResult, error) {
	if _, err := uuid.Parse(req.ClusterID); err != nil {
		return RegisterClusterResult{Reason: InvalidGuidFormat}, nil
	}

	publicKey, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		return RegisterClusterResult{Reason: InvalidPublicKey}, nil
	}
	if !crypto.ValidatePublicKey(publicKey) {
		return RegisterClusterResult{Reason: InvalidPublicKey}, nil
	}

	inserted, err := r.clusters.Add(ctx, &store.Cluster{ClusterID: req.ClusterID, PublicKey: publicKey})
	if err != nil {
		return RegisterClusterResult{}, err
	}
	if inserted {
		return RegisterClusterResult{Reason: Created}, nil
	}

	// Lost the race, or this cluster id was already registered; either way
	// the storage layer's uniqueness constraint is authoritative, so read
	// back what's actually there to decide AlreadyExists vs mismatch.
	existing, err := r.clusters.Get(ctx, req.ClusterID)
	if err != nil {
		return RegisterClusterResult{}, err
	}
	if bytes.Equal(existing.PublicKey, publicKey) {
		return RegisterClusterResult{Reason: AlreadyExists}, nil
	}
	return RegisterClusterResult{Reason: PublicKeyMismatch}, nil
}
