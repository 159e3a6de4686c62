package pkidh

import (
	"crypto"
	stdx509 "crypto/x509"
	"sync"

	"github.com/brendoncarroll/go-ddsauth"
	"github.com/brendoncarroll/go-ddsauth/f/x509"
)

// IdentityHandle is either a *LocalIdentity or a *RemoteIdentity.
type IdentityHandle interface {
	GUID() ddsauth.GUID
	isIdentityHandle()
}

var (
	_ IdentityHandle = &LocalIdentity{}
	_ IdentityHandle = &RemoteIdentity{}
)

// LocalIdentity is a validated local certificate and its private key.
// It is immutable once returned by ValidateLocalIdentity and is safe for concurrent use
// by any number of handshakes.
type LocalIdentity struct {
	guid       ddsauth.GUID
	trust      *x509.TrustStore
	cert       *stdx509.Certificate
	certPEM    []byte
	signAlgo   string
	kagreeAlgo string
	token      ddsauth.DataHolder

	mu       sync.RWMutex
	key      crypto.Signer
	released bool
}

// GUID returns the adjusted participant key.
func (id *LocalIdentity) GUID() ddsauth.GUID {
	return id.guid
}

func (id *LocalIdentity) Certificate() *stdx509.Certificate {
	return id.cert
}

// SignatureAlgorithm returns the name of the algorithm used to sign the certificate.
func (id *LocalIdentity) SignatureAlgorithm() string {
	return id.signAlgo
}

func (id *LocalIdentity) KeyAgreementAlgorithm() string {
	return id.kagreeAlgo
}

// signer returns the private key, or ErrBadState if the identity has been released.
func (id *LocalIdentity) signer() (crypto.Signer, error) {
	id.mu.RLock()
	defer id.mu.RUnlock()
	if id.released {
		return nil, ddsauth.ErrBadState
	}
	return id.key, nil
}

func (id *LocalIdentity) release() {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.key = nil
	id.released = true
}

func (id *LocalIdentity) isIdentityHandle() {}

// RemoteIdentity is a peer participant.
// It only holds the peer's GUID until a handshake with the peer completes.
type RemoteIdentity struct {
	guid  ddsauth.GUID
	token ddsauth.DataHolder

	mu         sync.RWMutex
	cert       *stdx509.Certificate
	signAlgo   string
	kagreeAlgo string
	released   bool
}

func (id *RemoteIdentity) GUID() ddsauth.GUID {
	return id.guid
}

// Token returns the identity token the peer announced.
func (id *RemoteIdentity) Token() ddsauth.DataHolder {
	return id.token.Clone()
}

// Certificate returns the peer's certificate, or nil if no handshake has completed.
func (id *RemoteIdentity) Certificate() *stdx509.Certificate {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.cert
}

func (id *RemoteIdentity) SignatureAlgorithm() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.signAlgo
}

func (id *RemoteIdentity) KeyAgreementAlgorithm() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.kagreeAlgo
}

// IsAuthenticated returns true once a handshake with the peer has completed.
func (id *RemoteIdentity) IsAuthenticated() bool {
	return id.Certificate() != nil
}

func (id *RemoteIdentity) authenticated(cert *stdx509.Certificate, signAlgo, kagreeAlgo string) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.cert = cert
	id.signAlgo = signAlgo
	id.kagreeAlgo = kagreeAlgo
}

func (id *RemoteIdentity) checkUsable() error {
	id.mu.RLock()
	defer id.mu.RUnlock()
	if id.released {
		return ddsauth.ErrBadState
	}
	return nil
}

func (id *RemoteIdentity) release() {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.cert = nil
	id.released = true
}

func (id *RemoteIdentity) isIdentityHandle() {}
