// package ddsauthtest generates throwaway identity material for tests.
package ddsauthtest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
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

	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

const propPrefix = "dds.sec.auth.builtin.PKI-DH."

type PKIParams struct {
	// RSA selects an RSA CA key. The default is ECDSA P-256.
	RSA bool
	// Now is the reference time for validity periods. Defaults to time.Now().
	Now time.Time
}

// PKI is a certificate authority which writes everything it issues to a temporary directory.
type PKI struct {
	t      testing.TB
	dir    string
	now    time.Time
	serial int64

	CA    *x509.Certificate
	CAKey crypto.Signer
	// CAURI is a file:// URI for the PEM encoded CA certificate.
	CAURI string
}

func NewPKI(t testing.TB, params PKIParams) *PKI {
	if params.Now.IsZero() {
		params.Now = time.Now()
	}
	p := &PKI{
		t:   t,
		dir: t.TempDir(),
		now: params.Now,
	}
	p.CAKey = newKey(t, params.RSA)
	tmpl := &x509.Certificate{
		SerialNumber:          p.nextSerial(),
		Subject:               pkix.Name{CommonName: "Test CA", Organization: []string{"ddsauth"}},
		NotBefore:             p.now.Add(-time.Hour),
		NotAfter:              p.now.Add(365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, p.CAKey.Public(), p.CAKey)
	require.NoError(t, err)
	p.CA, err = x509.ParseCertificate(der)
	require.NoError(t, err)
	p.CAURI = p.writePEM("ca.pem", "CERTIFICATE", der)
	return p
}

// Now returns the reference time used for validity periods.
func (p *PKI) Now() time.Time {
	return p.now
}

type IdentityParams struct {
	RSA bool
	// Password encrypts the private key as PKCS#8 when set.
	Password string
	// NotBefore and NotAfter default to an hour before and a day after the reference time.
	NotBefore, NotAfter time.Time
}

// Identity is a certificate issued by a PKI and its private key.
type Identity struct {
	Name     string
	Cert     *x509.Certificate
	Key      crypto.Signer
	Password string

	CertURI string
	KeyURI  string
}

func (p *PKI) NewIdentity(name string, params IdentityParams) *Identity {
	if params.NotBefore.IsZero() {
		params.NotBefore = p.now.Add(-time.Hour)
	}
	if params.NotAfter.IsZero() {
		params.NotAfter = p.now.Add(24 * time.Hour)
	}
	key := newKey(p.t, params.RSA)
	tmpl := &x509.Certificate{
		SerialNumber: p.nextSerial(),
		Subject:      pkix.Name{CommonName: name, Organization: []string{"ddsauth"}},
		NotBefore:    params.NotBefore,
		NotAfter:     params.NotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, p.CA, key.Public(), p.CAKey)
	require.NoError(p.t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(p.t, err)

	id := &Identity{
		Name:     name,
		Cert:     cert,
		Key:      key,
		Password: params.Password,
	}
	id.CertURI = p.writePEM(name+".pem", "CERTIFICATE", der)
	id.KeyURI = p.WriteKey(name+".key", key, params.Password)
	return id
}

// WriteKey writes key to a file and returns its file:// URI.
func (p *PKI) WriteKey(filename string, key crypto.Signer, password string) string {
	var blockType string
	var der []byte
	var err error
	switch {
	case password != "":
		blockType = "ENCRYPTED PRIVATE KEY"
		der, err = pkcs8.ConvertPrivateKeyToPKCS8(key, []byte(password))
	default:
		switch key := key.(type) {
		case *rsa.PrivateKey:
			blockType = "RSA PRIVATE KEY"
			der = x509.MarshalPKCS1PrivateKey(key)
		case *ecdsa.PrivateKey:
			blockType = "EC PRIVATE KEY"
			der, err = x509.MarshalECPrivateKey(key)
		default:
			blockType = "PRIVATE KEY"
			der, err = x509.MarshalPKCS8PrivateKey(key)
		}
	}
	require.NoError(p.t, err)
	return p.writePEM(filename, blockType, der)
}

// WriteCRL writes a revocation list signed by the CA and returns its file:// URI.
func (p *PKI) WriteCRL(nextUpdate time.Time, revoked ...*Identity) string {
	var entries []x509.RevocationListEntry
	for _, id := range revoked {
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   id.Cert.SerialNumber,
			RevocationTime: p.now.Add(-time.Minute),
		})
	}
	tmpl := &x509.RevocationList{
		Number:                    p.nextSerial(),
		ThisUpdate:                p.now.Add(-time.Hour),
		NextUpdate:                nextUpdate,
		RevokedCertificateEntries: entries,
	}
	der, err := x509.CreateRevocationList(rand.Reader, tmpl, p.CA, p.CAKey)
	require.NoError(p.t, err)
	return p.writePEM(filepath.Base(p.tempName("crl-*.pem")), "X509 CRL", der)
}

// Revoke writes a revocation list listing ids, valid for a day past the reference time.
func (p *PKI) Revoke(ids ...*Identity) string {
	return p.WriteCRL(p.now.Add(24*time.Hour), ids...)
}

// WriteFile writes arbitrary data into the PKI directory and returns its file:// URI.
func (p *PKI) WriteFile(filename string, data []byte) string {
	path := filepath.Join(p.dir, filename)
	require.NoError(p.t, os.WriteFile(path, data, 0o600))
	return "file://" + path
}

// Properties returns the property bag configuring id as the local participant.
func (p *PKI) Properties(id *Identity) map[string]string {
	props := map[string]string{
		propPrefix + "identity_ca":          p.CAURI,
		propPrefix + "identity_certificate": id.CertURI,
		propPrefix + "private_key":          id.KeyURI,
	}
	if id.Password != "" {
		props[propPrefix+"password"] = id.Password
	}
	return props
}

func (p *PKI) writePEM(filename, blockType string, der []byte) string {
	return p.WriteFile(filename, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}

func (p *PKI) tempName(pattern string) string {
	f, err := os.CreateTemp(p.dir, pattern)
	require.NoError(p.t, err)
	require.NoError(p.t, f.Close())
	return f.Name()
}

func (p *PKI) nextSerial() *big.Int {
	p.serial++
	return big.NewInt(p.serial)
}

func newKey(t testing.TB, useRSA bool) crypto.Signer {
	if useRSA {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		return key
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}
