package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
)

// loadCertificate reads a PEM certificate and key. A non-empty password
// decrypts a key written with a passphrase (openssl -aes256 and friends).
func loadCertificate(certFile, keyFile, password string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "read server.cert")
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "read server.key")
	}
	if password != "" {
		if keyPEM, err = decryptKey(keyPEM, password); err != nil {
			return tls.Certificate{}, err
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "load key pair")
	}
	return cert, nil
}

func decryptKey(keyPEM []byte, password string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("server.key: no PEM block found")
	}
	//nolint:staticcheck // SA1019: legacy encrypted PEM has no stdlib replacement
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	//nolint:staticcheck // SA1019
	der, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, errors.Wrap(err, "decrypt server.key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}
