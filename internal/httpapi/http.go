// Package httpapi is the thin net/http binding over internal/registry: it
// decodes the wire JSON, calls the core, and translates the closed Reason
// enum to an HTTP status and error token per the public contract. The core
// does not import this package.
package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/criticalstack/lighthouse/internal/log"
	"github.com/criticalstack/lighthouse/internal/metrics"
	"github.com/criticalstack/lighthouse/internal/registry"
)

// Server wires the core registry to the HTTP mux.
type Server struct {
	reg *registry.Registry
	mux *http.ServeMux
}

func New(reg *registry.Registry) *Server {
	s := &Server{reg: reg, mux: http.NewServeMux()}
	s.mux.HandleFunc("/clusters", s.handleRegisterCluster)
	s.mux.HandleFunc("/discover", s.handleDiscover)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type registerClusterBody struct {
	ClusterID string `json:"clusterId"`
	PublicKey string `json:"publicKey"`
}

func (s *Server) handleRegisterCluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body registerClusterBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_guid_format")
		return
	}

	res, err := s.reg.RegisterCluster(r.Context(), registry.RegisterClusterRequest{
		ClusterID: body.ClusterID,
		PublicKey: body.PublicKey,
	})
	if err != nil {
		log.Error("register cluster failed", zap.Error(err))
		metrics.RegisterClusterOutcomes.WithLabelValues(registry.InternalError.String()).Inc()
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	metrics.RegisterClusterOutcomes.WithLabelValues(res.Reason.String()).Inc()

	switch res.Reason {
	case registry.Created:
		w.WriteHeader(http.StatusCreated)
	case registry.AlreadyExists:
		w.WriteHeader(http.StatusOK)
	case registry.PublicKeyMismatch:
		writeError(w, http.StatusConflict, "public_key_mismatch")
	case registry.InvalidGuidFormat:
		writeError(w, http.StatusBadRequest, "invalid_guid_format")
	case registry.InvalidPublicKey:
		writeError(w, http.StatusBadRequest, "invalid_public_key")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

type discoverBody struct {
	ClusterID     string `json:"clusterId"`
	VersionName   string `json:"versionName"`
	VersionNumber int64  `json:"versionNumber"`
	Payload       string `json:"payload"`
	Nonce         string `json:"nonce"`
	Signature     string `json:"signature"`
}

type discoverResponse struct {
	Nodes []string `json:"nodes"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body discoverBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_base64")
		return
	}

	res, err := s.reg.Discover(r.Context(), registry.DiscoverRequest{
		ClusterID:     body.ClusterID,
		VersionName:   body.VersionName,
		VersionNumber: body.VersionNumber,
		Payload:       body.Payload,
		Nonce:         body.Nonce,
		Signature:     body.Signature,
	})
	if err != nil {
		log.Error("discover failed", zap.Error(err))
		metrics.DiscoverOutcomes.WithLabelValues(registry.InternalError.String()).Inc()
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	metrics.DiscoverOutcomes.WithLabelValues(res.Reason.String()).Inc()

	switch res.Reason {
	case registry.Success:
		writeJSON(w, http.StatusOK, discoverResponse{Nodes: res.Nodes})
	case registry.InvalidGuidFormat:
		writeError(w, http.StatusBadRequest, "invalid_guid_format")
	case registry.InvalidBase64:
		writeError(w, http.StatusBadRequest, "invalid_base64")
	case registry.InvalidNonceSize:
		writeError(w, http.StatusBadRequest, "nonce_must_be_4_bytes")
	case registry.InvalidPayload:
		writeError(w, http.StatusBadRequest, "version_name_required")
	case registry.SignatureVerificationFailed:
		writeError(w, http.StatusUnauthorized, "signature_verification_failed")
	case registry.ReplayAttackDetected:
		writeError(w, http.StatusForbidden, "replay_attack_detected")
	case registry.ClusterNotFound:
		writeError(w, http.StatusNotFound, "cluster_not_found")
	case registry.PayloadTooLarge:
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, token string) {
	writeJSON(w, status, errorBody{Error: token})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response body", zap.Error(err))
	}
}
