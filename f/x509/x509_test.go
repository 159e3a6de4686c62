package x509

import (
	"encoding/pem"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brendoncarroll/go-ddsauth/ddsauthtest"
)

func TestLoadCertificate(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	alice := pki.NewIdentity("alice", ddsauthtest.IdentityParams{})

	cert, err := LoadCertificate(alice.CertURI)
	require.NoError(t, err)
	require.Equal(t, alice.Cert.Raw, cert.Raw)

	again, err := ParseCertificatePEM(EncodeCertificate(cert))
	require.NoError(t, err)
	require.Equal(t, cert.Raw, again.Raw)
}

func TestLoadBadURI(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	for _, uri := range []string{
		"",
		"data:,hello",
		"/etc/hostname",
		"file:///does/not/exist.pem",
		pki.WriteFile("garbage.pem", []byte("not pem")),
	} {
		_, err := LoadCertificate(uri)
		require.ErrorIs(t, err, ErrLoad, uri)
	}
}

func TestLoadKeepsCause(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})

	_, err := LoadCertificate("file:///does/not/exist.pem")
	require.ErrorIs(t, err, ErrLoad)
	require.ErrorIs(t, err, os.ErrNotExist)

	corrupt := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0x30, 0x03, 0x02, 0x01}})
	_, err = LoadCertificate(pki.WriteFile("corrupt.pem", corrupt))
	require.ErrorIs(t, err, ErrLoad)
	var failed ErrLoadFailed
	require.ErrorAs(t, err, &failed)
	require.Error(t, failed.Cause)
}

func TestSignatureAlgorithm(t *testing.T) {
	ecPKI := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	algo, err := SignatureAlgorithm(ecPKI.NewIdentity("a", ddsauthtest.IdentityParams{}).Cert)
	require.NoError(t, err)
	require.Equal(t, AlgoECDSA, algo)

	rsaPKI := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{RSA: true})
	algo, err = SignatureAlgorithm(rsaPKI.CA)
	require.NoError(t, err)
	require.Equal(t, AlgoRSASSAPSS, algo)
}

func TestVerify(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	alice := pki.NewIdentity("alice", ddsauthtest.IdentityParams{})
	ts, err := LoadTrustStore(pki.CAURI)
	require.NoError(t, err)
	require.False(t, ts.ChecksRevocation())
	require.Equal(t, pki.CA.Raw, ts.CA().Raw)

	require.NoError(t, ts.Verify(alice.Cert, pki.Now()))
	// outside validity
	require.ErrorIs(t, ts.Verify(alice.Cert, pki.Now().Add(48*time.Hour)), ErrCertificateInvalid)
	require.ErrorIs(t, ts.Verify(alice.Cert, pki.Now().Add(-48*time.Hour)), ErrCertificateInvalid)

	// different CA
	other := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	mallory := other.NewIdentity("mallory", ddsauthtest.IdentityParams{})
	require.ErrorIs(t, ts.Verify(mallory.Cert, pki.Now()), ErrCertificateInvalid)
}

func TestVerifyRevocation(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	alice := pki.NewIdentity("alice", ddsauthtest.IdentityParams{})
	bob := pki.NewIdentity("bob", ddsauthtest.IdentityParams{})

	ts, err := LoadTrustStore(pki.CAURI)
	require.NoError(t, err)
	require.NoError(t, ts.LoadCRL(pki.Revoke(bob)))
	require.True(t, ts.ChecksRevocation())

	require.NoError(t, ts.Verify(alice.Cert, pki.Now()))
	require.ErrorIs(t, ts.Verify(bob.Cert, pki.Now()), ErrCertificateInvalid)
}

func TestVerifyExpiredCRL(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	alice := pki.NewIdentity("alice", ddsauthtest.IdentityParams{})

	ts, err := LoadTrustStore(pki.CAURI)
	require.NoError(t, err)
	require.NoError(t, ts.LoadCRL(pki.WriteCRL(pki.Now().Add(time.Hour))))
	require.NoError(t, ts.Verify(alice.Cert, pki.Now()))
	require.ErrorIs(t, ts.Verify(alice.Cert, pki.Now().Add(2*time.Hour)), ErrCertificateInvalid)
}

func TestVerifyCRLFromOtherIssuer(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	alice := pki.NewIdentity("alice", ddsauthtest.IdentityParams{})
	other := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})

	ts, err := LoadTrustStore(pki.CAURI)
	require.NoError(t, err)
	require.NoError(t, ts.LoadCRL(other.Revoke()))
	// a revocation list is loaded, but none covers alice's issuer
	require.ErrorIs(t, ts.Verify(alice.Cert, pki.Now()), ErrCertificateInvalid)
}

func TestParseTrustStoreBundle(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	bob := pki.NewIdentity("bob", ddsauthtest.IdentityParams{})
	caPEM := EncodeCertificate(pki.CA)
	crlPEM, err := ReadURI(pki.Revoke(bob))
	require.NoError(t, err)

	ts, err := ParseTrustStore(append(caPEM, crlPEM...))
	require.NoError(t, err)
	require.True(t, ts.ChecksRevocation())
	require.ErrorIs(t, ts.Verify(bob.Cert, pki.Now()), ErrCertificateInvalid)

	_, err = ParseTrustStore(crlPEM)
	require.ErrorIs(t, err, ErrLoad)
}

func TestLoadPrivateKey(t *testing.T) {
	pki := ddsauthtest.NewPKI(t, ddsauthtest.PKIParams{})
	ec := pki.NewIdentity("ec", ddsauthtest.IdentityParams{})
	rsa := pki.NewIdentity("rsa", ddsauthtest.IdentityParams{RSA: true})
	enc := pki.NewIdentity("enc", ddsauthtest.IdentityParams{Password: "hunter2"})

	for _, id := range []*ddsauthtest.Identity{ec, rsa, enc} {
		key, err := LoadPrivateKey(id.KeyURI, id.Password)
		require.NoError(t, err, id.Name)
		require.NoError(t, CheckKeyPair(id.Cert, key), id.Name)
	}

	key, err := LoadPrivateKey(ec.KeyURI, "")
	require.NoError(t, err)
	require.ErrorIs(t, CheckKeyPair(rsa.Cert, key), ErrKeyMismatch)

	_, err = LoadPrivateKey(enc.KeyURI, "wrong")
	require.ErrorIs(t, err, ErrLoad)

	_, err = LoadPrivateKey(ec.CertURI, "")
	require.ErrorIs(t, err, ErrLoad)
}
