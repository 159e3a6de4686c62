// package x509 implements the X.509 identity material used for authentication:
// trust stores, certificates, revocation lists and private keys.
package x509

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/brendoncarroll/go-ddsauth/f/x509/oids"
)

const (
	// FileScheme is the only URI scheme accepted for identity material.
	FileScheme = "file://"

	pemCertificate = "CERTIFICATE"
	pemCRL         = "X509 CRL"
)

// Names of the digital signature algorithms an identity certificate may use.
const (
	AlgoRSASSAPSS = "RSASSA-PSS-SHA256"
	AlgoECDSA     = "ECDSA-SHA256"
)

var (
	ErrLoad                 = errors.New("could not load identity material")
	ErrCertificateInvalid   = errors.New("certificate is not valid")
	ErrKeyMismatch          = errors.New("private key does not match certificate")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)

// ErrLoadFailed is returned when identity material cannot be read or parsed.
// It matches ErrLoad and unwraps to the underlying error.
type ErrLoadFailed struct {
	Cause error
}

func (e ErrLoadFailed) Error() string {
	return ErrLoad.Error() + ": " + e.Cause.Error()
}

func (e ErrLoadFailed) Is(target error) bool {
	return target == ErrLoad
}

func (e ErrLoadFailed) Unwrap() error {
	return e.Cause
}

type ErrUnrecognizedAlgo struct {
	Algorithm oids.OID
}

func (e ErrUnrecognizedAlgo) Error() string {
	return fmt.Sprintf("unrecognized signature algorithm %v", e.Algorithm)
}

func (e ErrUnrecognizedAlgo) Is(target error) bool {
	return target == ErrUnsupportedAlgorithm
}

// ReadURI returns the contents referenced by a file:// URI.
func ReadURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, FileScheme) {
		return nil, errors.Wrapf(ErrLoad, "unsupported uri %q", uri)
	}
	data, err := os.ReadFile(strings.TrimPrefix(uri, FileScheme))
	if err != nil {
		return nil, ErrLoadFailed{Cause: err}
	}
	return data, nil
}

// LoadCertificate reads a single PEM certificate from a file:// URI.
func LoadCertificate(uri string) (*x509.Certificate, error) {
	data, err := ReadURI(uri)
	if err != nil {
		return nil, err
	}
	return ParseCertificatePEM(data)
}

// ParseCertificatePEM parses the first CERTIFICATE block in data.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.Wrap(ErrLoad, "no certificate in PEM data")
		}
		if block.Type != pemCertificate {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, ErrLoadFailed{Cause: err}
		}
		return cert, nil
	}
}

// EncodeCertificate returns the PEM encoding of cert.
func EncodeCertificate(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemCertificate, Bytes: cert.Raw})
}

// SignatureAlgorithm classifies the algorithm used to sign cert.
// It returns AlgoRSASSAPSS or AlgoECDSA, or an error wrapping ErrUnsupportedAlgorithm.
func SignatureAlgorithm(cert *x509.Certificate) (string, error) {
	oid, err := signatureOID(cert.Raw)
	if err != nil {
		return "", err
	}
	switch oid {
	case oids.ECDSAWithSHA256:
		return AlgoECDSA, nil
	case oids.SHA256WithRSA, oids.RSASSAPSS:
		return AlgoRSASSAPSS, nil
	default:
		return "", ErrUnrecognizedAlgo{Algorithm: oid}
	}
}

func signatureOID(raw []byte) (oids.OID, error) {
	var record struct {
		TBS       asn1.RawValue
		Algorithm pkix.AlgorithmIdentifier
		Signature asn1.BitString
	}
	rest, err := asn1.Unmarshal(raw, &record)
	if err != nil {
		return oids.OID{}, ErrLoadFailed{Cause: err}
	} else if len(rest) > 0 {
		return oids.OID{}, errors.Wrap(ErrLoad, "data after certificate")
	}
	return oids.FromASN1(record.Algorithm.Algorithm), nil
}
