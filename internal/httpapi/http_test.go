package httpapi_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/criticalstack/lighthouse/internal/eviction"
	"github.com/criticalstack/lighthouse/internal/httpapi"
	"github.com/criticalstack/lighthouse/internal/replay"
	"github.com/criticalstack/lighthouse/internal/registry"
	"github.com/criticalstack/lighthouse/internal/store/memory"
)

const testClusterID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"

func newServer(t *testing.T) (*httptest.Server, *ecdsa.PrivateKey, string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	clusters := memory.NewClusterStore()
	nodes := memory.NewNodeStore()
	rc := replay.New(time.Hour)
	ev := eviction.New(nodes, 5)
	reg := registry.New(clusters, nodes, rc, ev, registry.Config{MaxPerGroup: 5})

	srv := httptest.NewServer(httpapi.New(reg))
	t.Cleanup(srv.Close)

	pubB64 := base64.StdEncoding.EncodeToString(pubDER)
	resp, err := http.Post(srv.URL+"/clusters", "application/json", bytes.NewReader(
		mustJSON(t, map[string]string{"clusterId": testClusterID, "publicKey": pubB64}),
	))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating cluster, got %d", resp.StatusCode)
	}
	return srv, priv, pubB64
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func sign(t *testing.T, priv *ecdsa.PrivateKey, clusterID, versionName string, versionNumber int64, payloadB64, nonceB64 string) string {
	t.Helper()
	msg := []byte(clusterID + versionName + strconv.FormatInt(versionNumber, 10) + payloadB64 + nonceB64)
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	sig, err := asn1.Marshal(struct{ R, S *big.Int }{r, s})
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(sig)
}

func TestDiscoverHappyPath(t *testing.T) {
	srv, priv, _ := newServer(t)

	payload := base64.StdEncoding.EncodeToString(make([]byte, 64))
	nonce := base64.StdEncoding.EncodeToString([]byte("aaaa"))
	sig := sign(t, priv, testClusterID, "prod", 1, payload, nonce)

	resp, err := http.Post(srv.URL+"/discover", "application/json", bytes.NewReader(mustJSON(t, map[string]interface{}{
		"clusterId": testClusterID, "versionName": "prod", "versionNumber": 1,
		"payload": payload, "nonce": nonce, "signature": sig,
	})))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Nodes []string `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Nodes) != 0 {
		t.Fatalf("expected empty nodes on first call, got %d", len(body.Nodes))
	}
}

func TestDiscoverClusterNotFound(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/discover", "application/json", bytes.NewReader(mustJSON(t, map[string]interface{}{
		"clusterId": "00000000-0000-0000-0000-000000000000", "versionName": "prod", "versionNumber": 1,
		"payload": "eA==", "nonce": "Z2dnZw==", "signature": "eA==",
	})))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "cluster_not_found" {
		t.Fatalf("expected token cluster_not_found, got %q", body.Error)
	}
}

func TestRegisterClusterMismatchConflict(t *testing.T) {
	srv, _, _ := newServer(t)

	otherPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	otherDER, err := x509.MarshalPKIXPublicKey(&otherPriv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+"/clusters", "application/json", bytes.NewReader(mustJSON(t, map[string]string{
		"clusterId": testClusterID, "publicKey": base64.StdEncoding.EncodeToString(otherDER),
	})))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
