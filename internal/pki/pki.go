// Package pki issues the TLS material lighthouse's etcd client connection
// uses for mutual authentication, adapted from the teacher's pkg/pki. The
// teacher used this to bootstrap a self-hosted etcd cluster's peer and
// client certificates; here there is no self-hosted cluster, so only the
// client-facing profile survives, repurposed to authenticate lighthouse to
// an externally operated etcd deployment.
package pki

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"io/ioutil"
	"time"

	"github.com/cloudflare/cfssl/cli/genkey"
	"github.com/cloudflare/cfssl/config"
	"github.com/cloudflare/cfssl/csr"
	"github.com/cloudflare/cfssl/helpers"
	"github.com/cloudflare/cfssl/initca"
	clog "github.com/cloudflare/cfssl/log"
	"github.com/cloudflare/cfssl/signer"
	"github.com/cloudflare/cfssl/signer/local"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/criticalstack/lighthouse/internal/log"
)

// ClientSigningProfile is the only signing profile lighthouse needs: one
// that authenticates it as an etcd client.
const ClientSigningProfile = "client"

var SigningProfiles = &config.Signing{
	Default: &config.SigningProfile{
		Expiry: 5 * 365 * 24 * time.Hour,
	},
	Profiles: map[string]*config.SigningProfile{
		ClientSigningProfile: {
			Expiry: 5 * 365 * 24 * time.Hour,
			Usage: []string{
				"signing",
				"key encipherment",
				"client auth",
			},
		},
	},
}

type logger struct{ l *zap.Logger }

func (l *logger) Debug(msg string)   { l.l.Debug(msg) }
func (l *logger) Info(msg string)    { l.l.Info(msg) }
func (l *logger) Warning(msg string) { l.l.Warn(msg) }
func (l *logger) Err(msg string)     { l.l.Error(msg) }
func (l *logger) Crit(msg string)    { l.l.Error(msg) }
func (l *logger) Emerg(msg string)   { l.l.Fatal(msg) }

func init() {
	clog.SetLogger(&logger{log.NewLoggerWithLevel("cfssl", zapcore.ErrorLevel)})
}

type KeyPair struct {
	Cert    *x509.Certificate
	CertPEM []byte
	Key     crypto.Signer
	KeyPEM  []byte
}

func NewKeyPairFromPEM(certPEM, keyPEM []byte) (*KeyPair, error) {
	cert, err := helpers.ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := helpers.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Cert: cert, CertPEM: certPEM, Key: key, KeyPEM: keyPEM}, nil
}

// RootCA issues client certificates for lighthouse's own etcd connection.
type RootCA struct {
	CA *KeyPair
	g  *csr.Generator
	sp *config.Signing
}

func NewRootCA(cr *csr.CertificateRequest) (*RootCA, error) {
	certPEM, _, keyPEM, err := initca.New(cr)
	if err != nil {
		return nil, err
	}
	ca, err := NewKeyPairFromPEM(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &RootCA{CA: ca, g: &csr.Generator{Validator: genkey.Validator}, sp: SigningProfiles}, nil
}

func NewRootCAFromFile(certPath, keyPath string) (*RootCA, error) {
	certPEM, err := ioutil.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := ioutil.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	ca, err := NewKeyPairFromPEM(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &RootCA{CA: ca, g: &csr.Generator{Validator: genkey.Validator}, sp: SigningProfiles}, nil
}

func NewDefaultRootCA() (*RootCA, error) {
	return NewRootCA(&csr.CertificateRequest{
		Names: []csr.Name{
			{C: "US", ST: "Massachusetts", L: "Boston", O: "Lighthouse"},
		},
		KeyRequest: &csr.BasicKeyRequest{A: "rsa", S: 2048},
		CN:         "lighthouse-ca",
	})
}

func (r *RootCA) GenerateCertificates(profile string, cr *csr.CertificateRequest) (*KeyPair, error) {
	csrBytes, keyPEM, err := r.g.ProcessRequest(cr)
	if err != nil {
		return nil, err
	}
	s, err := local.NewSigner(r.CA.Key, r.CA.Cert, signer.DefaultSigAlgo(r.CA.Key), r.sp)
	if err != nil {
		return nil, err
	}
	certPEM, err := s.Sign(signer.SignRequest{Request: string(csrBytes), Profile: profile})
	if err != nil {
		return nil, err
	}
	return NewKeyPairFromPEM(certPEM, keyPEM)
}

// GenerateCertHash hashes a CA certificate's subject public key info, used
// to pin the CA in discovery bootstrap material.
func GenerateCertHash(caCertPath string) ([]byte, error) {
	data, err := ioutil.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("cannot parse PEM formatted block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return h[:], nil
}
