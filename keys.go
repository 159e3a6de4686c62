package ddsauth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
)

type PrivateKey = crypto.Signer

type PublicKey = crypto.PublicKey

// Sign produces a signature over the SHA-256 digest of data.
// RSA keys use RSASSA-PSS with a salt as long as the digest, ECDSA keys produce ASN.1 signatures.
func Sign(rng io.Reader, key PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	switch key := key.(type) {
	case *rsa.PrivateKey:
		return rsa.SignPSS(rng, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(rng, key, digest[:])
	default:
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "unsupported key %T", key)
	}
}

// Verify checks that sig was produced by Sign with the private key corresponding to key.
func Verify(key PublicKey, data, sig []byte) error {
	digest := sha256.Sum256(data)
	valid := false
	switch key := key.(type) {
	case *rsa.PublicKey:
		valid = rsa.VerifyPSS(key, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthAuto,
		}) == nil
	case *ecdsa.PublicKey:
		valid = ecdsa.VerifyASN1(key, digest[:], sig)
	default:
		return errors.Wrapf(ErrUnsupportedAlgorithm, "unsupported key %T", key)
	}
	if valid {
		return nil
	}
	return ErrSignatureInvalid
}
