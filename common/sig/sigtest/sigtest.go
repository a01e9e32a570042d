// Package sigtest provides throwaway certificates for tests.
package sigtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/axent-pl/drmkit/common/sig"
	"software.sslmate.com/src/go-pkcs12"
)

// NewCertificate returns a self-signed RSA 2048 certificate valid for one day.
func NewCertificate(t testing.TB) *sig.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() failed: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "drmkit-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() failed: %v", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() failed: %v", err)
	}
	return &sig.Certificate{Leaf: leaf, PrivateKey: key}
}

// WritePEM writes the certificate and its PKCS#1 key into dir/name and returns the path.
func WritePEM(t testing.TB, dir, name string, cert *sig.Certificate) string {
	t.Helper()
	key, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		t.Fatalf("WritePEM() supports RSA keys only, got %T", cert.PrivateKey)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Leaf.Raw})
	data = append(data, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})...)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

// WritePKCS12 writes the certificate and key as a PKCS#12 bundle encrypted
// with enc, e.g. pkcs12.Modern or pkcs12.LegacyRC2, and returns the path.
func WritePKCS12(t testing.TB, dir, name string, cert *sig.Certificate, enc *pkcs12.Encoder, password string) string {
	t.Helper()
	data, err := enc.Encode(cert.PrivateKey, cert.Leaf, nil, password)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}
