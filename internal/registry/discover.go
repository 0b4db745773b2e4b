package registry

import (
	"context"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/criticalstack/lighthouse/internal/crypto"
	"github.com/criticalstack/lighthouse/internal/store"
)

const (
	nonceSize     = 4
	maxPayloadLen = 10240
)

// Discover runs the twelve-step admission pipeline. Steps execute in this
// exact order and short-circuit on the first failure: later checks depend
// on data established earlier, or expose a different failure class to the
// caller than an earlier one would.
func (r *Registry) Discover(ctx context.Context, req DiscoverRequest) (DiscoverResult, error) {
	// 1. parse cluster_id
	if _, err := uuid.Parse(req.ClusterID); err != nil {
		return DiscoverResult{Reason: InvalidGuidFormat}, nil
	}

	// 2. lookup cluster
	cluster, err := r.clusters.Get(ctx, req.ClusterID)
	if err == store.ErrNotFound {
		return DiscoverResult{Reason: ClusterNotFound}, nil
	}
	if err != nil {
		return DiscoverResult{}, err
	}

	// 3. decode base64 of payload, nonce, signature
	payloadBytes, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		return DiscoverResult{Reason: InvalidBase64}, nil
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(req.Nonce)
	if err != nil {
		return DiscoverResult{Reason: InvalidBase64}, nil
	}
	signatureBytes, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return DiscoverResult{Reason: InvalidBase64}, nil
	}

	// 4. nonce length == 4 bytes
	if len(nonceBytes) != nonceSize {
		return DiscoverResult{Reason: InvalidNonceSize}, nil
	}

	// 5. payload length <= 10240 bytes
	if len(payloadBytes) > maxPayloadLen {
		return DiscoverResult{Reason: PayloadTooLarge}, nil
	}

	// 6. version_name non-empty
	if req.VersionName == "" {
		return DiscoverResult{Reason: InvalidPayload}, nil
	}

	// 7. anti-replay check, keyed on the wire text exactly as received (not
	// the decoded bytes: re-encoding after decode is not guaranteed
	// lossless). The fingerprint is recorded regardless of what happens
	// afterward, per §4.1 step 7: a replayed nonce is a replay even under a
	// bad signature, and a fresh nonce is burned even if the signature
	// later fails. An empty nonce or signature is always rejected here as
	// not fresh, matching the anti-replay cache's contract.
	if fresh := r.replay.CheckAndRecord(req.Nonce, req.Signature, time.Now()); !fresh {
		return DiscoverResult{Reason: ReplayAttackDetected}, nil
	}

	// 8. signature verification over the exact wire-text concatenation
	message := []byte(req.ClusterID + req.VersionName + strconv.FormatInt(req.VersionNumber, 10) + req.Payload + req.Nonce)
	if !crypto.Verify(cluster.PublicKey, message, signatureBytes) {
		return DiscoverResult{Reason: SignatureVerificationFailed}, nil
	}

	group := store.Group{ClusterID: req.ClusterID, VersionName: req.VersionName, VersionNumber: req.VersionNumber}

	// 9. read peers before the insert, so the caller never sees its own
	// just-written registration in the returned set
	peers, err := r.nodes.Get(ctx, group, r.maxPerGroup)
	if err != nil {
		return DiscoverResult{}, err
	}

	// 10. persist registration; encrypted_payload is nonce||payload so
	// clients can recover the AEAD nonce without a separate wire field
	encryptedPayload := append(append([]byte{}, nonceBytes...), payloadBytes...)
	reg := &store.NodeRegistration{
		ClusterID:        req.ClusterID,
		VersionName:      req.VersionName,
		VersionNumber:    req.VersionNumber,
		EncryptedPayload: encryptedPayload,
	}
	if err := r.nodes.Add(ctx, reg); err != nil {
		return DiscoverResult{}, err
	}

	// 11. enqueue eviction hint; fire-and-forget
	r.evictor.Hint(group)

	// 12. respond with the peer entries' encrypted_payload blobs
	nodes := make([]string, len(peers))
	for i, p := range peers {
		nodes[i] = base64.StdEncoding.EncodeToString(p.EncryptedPayload)
	}
	return DiscoverResult{Reason: Success, Nodes: nodes}, nil
}
