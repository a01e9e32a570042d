package sig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/axent-pl/drmkit/common"
	"software.sslmate.com/src/go-pkcs12"
)

// Certificate is a parsed X.509 certificate with its private key.
type Certificate struct {
	Leaf       *x509.Certificate
	PrivateKey crypto.PrivateKey
}

// RawData is the DER body of the certificate, the form the key-delivery
// service expects for an X.509 token verification key.
func (c *Certificate) RawData() []byte { return c.Leaf.Raw }

// SigningKey returns an RS256/ES256 signing key bound to the certificate.
func (c *Certificate) SigningKey() (*SignatureKey, error) {
	var alg SigAlg
	switch c.PrivateKey.(type) {
	case *rsa.PrivateKey:
		alg = SigAlgRS256
	case *ecdsa.PrivateKey:
		alg = SigAlgES256
	default:
		return nil, fmt.Errorf("unsupported certificate key type: %T", c.PrivateKey)
	}
	thumb := Thumbprint(c.Leaf)
	return &SignatureKey{Kid: thumb, Key: c.PrivateKey, Alg: alg, Certificate: c.Leaf}, nil
}

// LoadCertificate reads a certificate bundle from disk. Files ending in .pem
// or .crt are read as PEM (certificate and private key blocks); anything else
// is decoded as PKCS#12 with the given password.
func LoadCertificate(path, password string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read certificate %s: %v", common.ErrInvalidInput, path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pem", ".crt":
		return ParsePEM(data)
	default:
		return ParsePKCS12(data, password)
	}
}

// ParsePKCS12 decodes a .pfx/.p12 bundle, modern (AES/PBKDF2/SHA-256) or
// legacy (3DES/RC2). A wrong password or a bundle without a key is reported
// as ErrInvalidInput.
func ParsePKCS12(data []byte, password string) (*Certificate, error) {
	key, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode pkcs12: %v", common.ErrInvalidInput, err)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: no private key in certificate bundle", common.ErrInvalidInput)
	}
	return matchCertificate(key, append([]*x509.Certificate{leaf}, chain...))
}

// ParsePEM picks the private key and the certificate whose public key matches it.
func ParsePEM(data []byte) (*Certificate, error) {
	var (
		certs []*x509.Certificate
		key   crypto.PrivateKey
	)
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: could not parse certificate: %v", common.ErrInvalidInput, err)
			}
			certs = append(certs, cert)
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			k, err := parsePrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
			}
			key = k
		}
	}
	if key == nil {
		return nil, fmt.Errorf("%w: no private key in certificate bundle", common.ErrInvalidInput)
	}
	return matchCertificate(key, certs)
}

func matchCertificate(key crypto.PrivateKey, certs []*x509.Certificate) (*Certificate, error) {
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no certificate in certificate bundle", common.ErrInvalidInput)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported private key type %T", common.ErrInvalidInput, key)
	}
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		if pub, ok := cert.PublicKey.(interface{ Equal(crypto.PublicKey) bool }); ok && pub.Equal(signer.Public()) {
			return &Certificate{Leaf: cert, PrivateKey: key}, nil
		}
	}
	return nil, fmt.Errorf("%w: no certificate matches the private key", common.ErrInvalidInput)
}

func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.New("could not parse private key")
	}
	return key, nil
}

// DecodeSymmetricKey decodes standard base64, ignoring embedded whitespace
// and line breaks.
func DecodeSymmetricKey(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty symmetric key", common.ErrInvalidInput)
	}
	key, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: symmetric key is not base64: %v", common.ErrInvalidInput, err)
	}
	return key, nil
}
