package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeKeyPair writes a self-signed certificate and its EC key, encrypting
// the key when password is set.
func writeKeyPair(t *testing.T, password string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyBlock := &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}
	if password != "" {
		//nolint:staticcheck // SA1019
		keyBlock, err = x509.EncryptPEMBlock(rand.Reader, keyBlock.Type, keyDER, []byte(password), x509.PEMCipherAES256)
		require.NoError(t, err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(keyBlock), 0o600))
	return certFile, keyFile
}

func TestLoadCertificate_Plain(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, "")

	cert, err := loadCertificate(certFile, keyFile, "")
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)
}

func TestLoadCertificate_EncryptedKey(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, "hunter2")

	_, err := loadCertificate(certFile, keyFile, "")
	require.Error(t, err, "an encrypted key needs server.password")

	cert, err := loadCertificate(certFile, keyFile, "hunter2")
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)

	_, err = loadCertificate(certFile, keyFile, "wrong")
	require.Error(t, err)
}

func TestLoadCertificate_PasswordIgnoredForPlainKey(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, "")

	_, err := loadCertificate(certFile, keyFile, "unused")
	require.NoError(t, err)
}

func TestLoadCertificate_MissingFiles(t *testing.T) {
	_, err := loadCertificate(filepath.Join(t.TempDir(), "cert.pem"), "key.pem", "")
	require.Error(t, err)
}
