package x509

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/pkg/errors"
	"github.com/youmark/pkcs8"
)

// LoadPrivateKey reads a PEM private key from a file:// URI.
// password is used if the key is an encrypted PKCS#8 document.
func LoadPrivateKey(uri, password string) (crypto.Signer, error) {
	data, err := ReadURI(uri)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKeyPEM(data, password)
}

// ParsePrivateKeyPEM parses the first private key block in data.
// PKCS#1, SEC 1, PKCS#8 and encrypted PKCS#8 keys are accepted.
// Only RSA and ECDSA keys are supported.
func ParsePrivateKeyPEM(data []byte, password string) (crypto.Signer, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.Wrap(ErrLoad, "no private key in PEM data")
		}
		var key any
		var err error
		switch block.Type {
		case "ENCRYPTED PRIVATE KEY":
			key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(password))
		case "PRIVATE KEY":
			key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes)
		case "RSA PRIVATE KEY":
			key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			key, err = x509.ParseECPrivateKey(block.Bytes)
		default:
			continue
		}
		if err != nil {
			return nil, ErrLoadFailed{Cause: err}
		}
		switch key := key.(type) {
		case *rsa.PrivateKey:
			return key, nil
		case *ecdsa.PrivateKey:
			return key, nil
		default:
			return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "private key type %T", key)
		}
	}
}

// CheckKeyPair returns an error wrapping ErrKeyMismatch if key is not the private half of cert.
func CheckKeyPair(cert *x509.Certificate, key crypto.Signer) error {
	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey) {
		return ErrKeyMismatch
	}
	return nil
}
