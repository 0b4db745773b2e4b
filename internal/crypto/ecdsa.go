// Package crypto implements the registry's sole cryptographic primitives:
// ECDSA-P256/SHA-256 signature verification and public key validation. The
// registry never signs anything itself, it only verifies signatures
// produced by clients holding a cluster's private key.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"math/big"
)

// ecdsaSignature mirrors the ASN.1 SEQUENCE{r, s} encoding produced by
// crypto/ecdsa.SignASN1 and understood by every mainstream ECDSA
// implementation (.NET, the JCA, OpenSSL). It is the "canonical pair" the
// self-describing public key encoding's signature format refers to.
type ecdsaSignature struct {
	R, S *big.Int
}

// Verify reports whether signature is a valid ECDSA-P256/SHA-256 signature
// over message, made by the private key corresponding to publicKey (an
// X.509 SubjectPublicKeyInfo DER encoding). Any parsing failure, curve
// mismatch, or verification failure returns false; this function never
// panics and never returns an error, matching the client library's
// fire-and-forget verification model.
func Verify(publicKey, message, signature []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	pub, err := parseP256PublicKey(publicKey)
	if err != nil {
		return false
	}

	var sig ecdsaSignature
	if rest, err := asn1.Unmarshal(signature, &sig); err != nil || len(rest) != 0 {
		return false
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return false
	}

	digest := sha256.Sum256(message)
	return ecdsa.Verify(pub, digest[:], sig.R, sig.S)
}

// ValidatePublicKey reports whether data is a well-formed self-describing
// public key encoding for curve P-256.
func ValidatePublicKey(data []byte) bool {
	_, err := parseP256PublicKey(data)
	return err == nil
}

func parseP256PublicKey(data []byte) (*ecdsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, errNotECDSA
	}
	if pub.Curve != elliptic.P256() {
		return nil, errWrongCurve
	}
	return pub, nil
}
