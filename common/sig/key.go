package sig

import (
	"crypto/sha1" // #nosec G505 -- x5t is defined over SHA-1
	"crypto/x509"
	"encoding/base64"
)

// structure to hold a key used to validate the signature
//
// Key is a crypto.PublicKey for asymmetric algorithms and []byte for HMAC.
type SignatureVerificationKey struct {
	Kid string
	Key any
	Alg SigAlg
}

type SignatureKeyer interface {
	GetKid() string
	GetKey() any
	GetAlg() SigAlg
}

// SignatureKey holds signing material. Key is a crypto.PrivateKey for
// asymmetric algorithms and []byte for HMAC. Certificate is optional and,
// when set, adds the x5t header to issued tokens.
type SignatureKey struct {
	Kid         string
	Key         any
	Alg         SigAlg
	Certificate *x509.Certificate
}

func (k *SignatureKey) GetKid() string { return k.Kid }
func (k *SignatureKey) GetKey() any    { return k.Key }
func (k *SignatureKey) GetAlg() SigAlg { return k.Alg }

// Thumbprint returns the base64url SHA-1 thumbprint of the certificate, or "" without one.
func (k *SignatureKey) Thumbprint() string {
	if k.Certificate == nil {
		return ""
	}
	return Thumbprint(k.Certificate)
}

// Thumbprint is the x5t value of a certificate (RFC 7515 section 4.1.7).
func Thumbprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw) // #nosec G401
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
