package x509

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"time"

	"github.com/pkg/errors"
)

// TrustStore holds the identity CA certificates and any revocation lists
// used to validate peer certificates.
type TrustStore struct {
	roots         *x509.CertPool
	intermediates *x509.CertPool
	anchors       []*x509.Certificate
	crls          []*x509.RevocationList
}

// LoadTrustStore reads a PEM bundle from a file:// URI.
func LoadTrustStore(uri string) (*TrustStore, error) {
	data, err := ReadURI(uri)
	if err != nil {
		return nil, err
	}
	return ParseTrustStore(data)
}

// ParseTrustStore parses a PEM bundle of CA certificates.
// Revocation lists included in the bundle are added to the store.
// Self-issued certificates become trust anchors, the rest are used as intermediates.
func ParseTrustStore(data []byte) (*TrustStore, error) {
	ts := &TrustStore{
		roots:         x509.NewCertPool(),
		intermediates: x509.NewCertPool(),
	}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case pemCertificate:
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, ErrLoadFailed{Cause: err}
			}
			if isSelfIssued(cert) {
				ts.roots.AddCert(cert)
				ts.anchors = append(ts.anchors, cert)
			} else {
				ts.intermediates.AddCert(cert)
			}
		case pemCRL:
			crl, err := x509.ParseRevocationList(block.Bytes)
			if err != nil {
				return nil, ErrLoadFailed{Cause: err}
			}
			ts.crls = append(ts.crls, crl)
		}
	}
	if len(ts.anchors) == 0 {
		return nil, errors.Wrap(ErrLoad, "no CA certificate in bundle")
	}
	return ts, nil
}

// LoadCRL reads a PEM revocation list from a file:// URI and adds it to the store.
func (ts *TrustStore) LoadCRL(uri string) error {
	data, err := ReadURI(uri)
	if err != nil {
		return err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemCRL {
		return errors.Wrap(ErrLoad, "no CRL in PEM data")
	}
	crl, err := x509.ParseRevocationList(block.Bytes)
	if err != nil {
		return ErrLoadFailed{Cause: err}
	}
	ts.AddCRL(crl)
	return nil
}

func (ts *TrustStore) AddCRL(crl *x509.RevocationList) {
	ts.crls = append(ts.crls, crl)
}

// ChecksRevocation returns true if the store will consult revocation lists during Verify.
func (ts *TrustStore) ChecksRevocation() bool {
	return len(ts.crls) > 0
}

// CA returns the first trust anchor in the store.
func (ts *TrustStore) CA() *x509.Certificate {
	return ts.anchors[0]
}

// Verify checks that cert chains to a trust anchor in the store at time now.
// When the store holds revocation lists, the issuer of cert must have a current
// list and cert must not appear on it.
// All failures wrap ErrCertificateInvalid.
func (ts *TrustStore) Verify(cert *x509.Certificate, now time.Time) error {
	chains, err := cert.Verify(x509.VerifyOptions{
		Roots:         ts.roots,
		Intermediates: ts.intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return errors.Wrap(ErrCertificateInvalid, err.Error())
	}
	var lastErr error
	for _, chain := range chains {
		if lastErr = ts.checkChain(chain, now); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (ts *TrustStore) checkChain(chain []*x509.Certificate, now time.Time) error {
	root := chain[len(chain)-1]
	if err := root.CheckSignature(root.SignatureAlgorithm, root.RawTBSCertificate, root.Signature); err != nil {
		return errors.Wrap(ErrCertificateInvalid, "trust anchor signature: "+err.Error())
	}
	if !ts.ChecksRevocation() {
		return nil
	}
	issuer := root
	if len(chain) > 1 {
		issuer = chain[1]
	}
	return ts.checkRevocation(chain[0], issuer, now)
}

func (ts *TrustStore) checkRevocation(cert, issuer *x509.Certificate, now time.Time) error {
	found := false
	for _, crl := range ts.crls {
		if !bytes.Equal(crl.RawIssuer, cert.RawIssuer) {
			continue
		}
		if err := crl.CheckSignatureFrom(issuer); err != nil {
			continue
		}
		found = true
		if !crl.NextUpdate.IsZero() && now.After(crl.NextUpdate) {
			return errors.Wrap(ErrCertificateInvalid, "revocation list has expired")
		}
		for _, entry := range crl.RevokedCertificateEntries {
			if entry.SerialNumber.Cmp(cert.SerialNumber) == 0 {
				return errors.Wrapf(ErrCertificateInvalid, "certificate %v is revoked", cert.SerialNumber)
			}
		}
	}
	if !found {
		return errors.Wrap(ErrCertificateInvalid, "no revocation list for issuer")
	}
	return nil
}

func isSelfIssued(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawSubject, cert.RawIssuer)
}
