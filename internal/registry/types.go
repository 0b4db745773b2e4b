// Package registry implements the core admission logic: cluster
// registration and the discover pipeline. It has no dependency on
// net/http; internal/httpapi is the thin adapter that binds it to the wire.
package registry

// Reason is a closed enum of admission outcomes. The boundary translator in
// internal/httpapi maps every Reason to exactly one HTTP status and one
// error token; do not add a Reason without updating that mapping.
type Reason int

const (
	Success Reason = iota
	ClusterNotFound
	InvalidGuidFormat
	InvalidBase64
	InvalidNonceSize
	PayloadTooLarge
	InvalidPayload
	SignatureVerificationFailed
	ReplayAttackDetected
	InternalError

	Created
	AlreadyExists
	PublicKeyMismatch
	InvalidPublicKey
)

func (r Reason) String() string {
	switch r {
	case Success:
		return "Success"
	case ClusterNotFound:
		return "ClusterNotFound"
	case InvalidGuidFormat:
		return "InvalidGuidFormat"
	case InvalidBase64:
		return "InvalidBase64"
	case InvalidNonceSize:
		return "InvalidNonceSize"
	case PayloadTooLarge:
		return "PayloadTooLarge"
	case InvalidPayload:
		return "InvalidPayload"
	case SignatureVerificationFailed:
		return "SignatureVerificationFailed"
	case ReplayAttackDetected:
		return "ReplayAttackDetected"
	case InternalError:
		return "InternalError"
	case Created:
		return "Created"
	case AlreadyExists:
		return "AlreadyExists"
	case PublicKeyMismatch:
		return "PublicKeyMismatch"
	case InvalidPublicKey:
		return "InvalidPublicKey"
	default:
		return "Unknown"
	}
}

// DiscoverRequest is the input to Registry.Discover, already split into its
// six named fields; the binding layer is responsible for extracting them
// from the wire request.
type DiscoverRequest struct {
	ClusterID     string
	VersionName   string
	VersionNumber int64
	Payload       string // base64 text, as received
	Nonce         string // base64 text, as received
	Signature     string // base64 text, as received
}

// DiscoverResult is the outcome of Registry.Discover. Nodes is populated
// only when Reason == Success.
type DiscoverResult struct {
	Reason Reason
	Nodes  []string // base64-encoded nonce||encrypted_payload, peer-ordered
}

// RegisterClusterRequest is the input to Registry.RegisterCluster.
type RegisterClusterRequest struct {
	ClusterID string
	PublicKey string // base64 text, as received
}

// RegisterClusterResult is the outcome of Registry.RegisterCluster.
type RegisterClusterResult struct {
	Reason Reason
}
