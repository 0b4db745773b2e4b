package crypto_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"testing"

	lcrypto "github.com/criticalstack/lighthouse/internal/crypto"
)

func genKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	return priv, der
}

func sign(t *testing.T, priv *ecdsa.PrivateKey, message []byte) []byte {
	t.Helper()
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	return sig
}

func TestVerify(t *testing.T) {
	priv, pub := genKey(t)
	message := []byte("cluster-id|version|1|cGF5bG9hZA==|bm9uY2U=")
	sig := sign(t, priv, message)

	if !lcrypto.Verify(pub, message, sig) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyTamperedMessage(t *testing.T) {
	priv, pub := genKey(t)
	message := []byte("original-message")
	sig := sign(t, priv, message)

	if lcrypto.Verify(pub, []byte("tampered-message"), sig) {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestVerifyWrongKey(t *testing.T) {
	_, otherPub := genKey(t)
	priv2, _ := genKey(t)
	message := []byte("some message")
	sig := sign(t, priv2, message)

	if lcrypto.Verify(otherPub, message, sig) {
		t.Fatal("expected signature from a different key to fail verification")
	}
}

func TestVerifyGarbageInputsNeverPanic(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte{},
		[]byte("not a der encoded key"),
		make([]byte, 1024),
	}
	for _, c := range cases {
		if lcrypto.Verify(c, c, c) {
			t.Fatalf("expected garbage input to fail verification: %v", c)
		}
	}
}

func TestValidatePublicKey(t *testing.T) {
	_, pub := genKey(t)
	if !lcrypto.ValidatePublicKey(pub) {
		t.Fatal("expected valid P-256 public key to validate")
	}
	if lcrypto.ValidatePublicKey([]byte("garbage")) {
		t.Fatal("expected garbage bytes to fail validation")
	}
}

func TestValidatePublicKeyWrongCurve(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if lcrypto.ValidatePublicKey(der) {
		t.Fatal("expected P-384 key to fail validation for P-256-only check")
	}
}
