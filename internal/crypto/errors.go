package crypto

import "github.com/pkg/errors"

var (
	errNotECDSA   = errors.New("public key is not an ECDSA key")
	errWrongCurve = errors.New("public key is not on curve P-256")
)
