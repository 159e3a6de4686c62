// package pkidh implements the DDS builtin PKI-DH authentication plugin.
//
// Identities are X.509 certificates issued by a common CA. Two participants authenticate
// each other with a three message exchange (Req, Reply, Final) which signs a
// Diffie-Hellman key agreement, leaving both with the same SharedSecret.
package pkidh

import (
	"crypto/rand"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/brendoncarroll/go-ddsauth"
	"github.com/brendoncarroll/go-ddsauth/crypto/dhke/dhke_modp"
	"github.com/brendoncarroll/go-ddsauth/f/x509"
)

type Params struct {
	// Logger defaults to ddsauth.Logger
	Logger logrus.FieldLogger
	// Clock is used to check certificate and revocation list validity. Defaults to the real clock.
	Clock clockwork.Clock
	// Rand is the source of key pairs, challenges and signatures. Defaults to crypto/rand.
	Rand io.Reader
}

// Plugin is the PKI-DH authentication plugin.
// All methods are safe to call concurrently. Failures are returned as ddsauth.ErrValidationFailed.
type Plugin struct {
	log    logrus.FieldLogger
	clock  clockwork.Clock
	rand   io.Reader
	scheme dhke_modp.Scheme
}

func New(params Params) *Plugin {
	if params.Logger == nil {
		params.Logger = ddsauth.Logger
	}
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}
	if params.Rand == nil {
		params.Rand = rand.Reader
	}
	return &Plugin{
		log:    params.Logger,
		clock:  params.Clock,
		rand:   params.Rand,
		scheme: dhke_modp.New2048_256(),
	}
}

// ValidateLocalIdentity loads and checks the identity configured in props.
// The returned identity's GUID is candidate adjusted to commit to the certificate subject.
func (p *Plugin) ValidateLocalIdentity(props ddsauth.PropertyBag, candidate ddsauth.GUID) (*LocalIdentity, error) {
	const op = "validate_local_identity"
	id, err := p.validateLocal(props, candidate)
	if err != nil {
		return nil, p.fail(op, candidate, err)
	}
	p.log.WithFields(logrus.Fields{
		"guid":    id.guid,
		"subject": id.cert.Subject.String(),
	}).Debug("validated local identity")
	return id, nil
}

func (p *Plugin) validateLocal(props ddsauth.PropertyBag, candidate ddsauth.GUID) (*LocalIdentity, error) {
	if len(props) == 0 {
		return nil, errors.Wrap(ddsauth.ErrConfiguration, "no properties")
	}
	caURI, err := props.Require(ddsauth.PropIdentityCA)
	if err != nil {
		return nil, err
	}
	certURI, err := props.Require(ddsauth.PropIdentityCertificate)
	if err != nil {
		return nil, err
	}
	keyURI, err := props.Require(ddsauth.PropPrivateKey)
	if err != nil {
		return nil, err
	}
	password, _ := props.Get(ddsauth.PropPassword)

	trust, err := x509.LoadTrustStore(caURI)
	if err != nil {
		return nil, err
	}
	if crlURI, ok := props.Get(ddsauth.PropIdentityCRL); ok && crlURI != "" {
		if err := trust.LoadCRL(crlURI); err != nil {
			return nil, err
		}
	}
	cert, err := x509.LoadCertificate(certURI)
	if err != nil {
		return nil, err
	}
	if err := trust.Verify(cert, p.clock.Now()); err != nil {
		return nil, err
	}
	signAlgo, err := x509.SignatureAlgorithm(cert)
	if err != nil {
		return nil, err
	}
	key, err := x509.LoadPrivateKey(keyURI, password)
	if err != nil {
		return nil, err
	}
	if err := x509.CheckKeyPair(cert, key); err != nil {
		return nil, err
	}
	id := &LocalIdentity{
		guid:       ddsauth.AdjustParticipantKey(cert.RawSubject, candidate),
		trust:      trust,
		cert:       cert,
		certPEM:    x509.EncodeCertificate(cert),
		signAlgo:   signAlgo,
		kagreeAlgo: p.scheme.Name(),
		key:        key,
	}
	id.token = identityToken(id)
	return id, nil
}

func identityToken(id *LocalIdentity) ddsauth.DataHolder {
	token := ddsauth.DataHolder{ClassID: ClassIdentity}
	token.AddProperty(PropCertSubject, id.cert.Subject.String())
	token.AddProperty(PropCertAlgo, id.signAlgo)
	ca := id.trust.CA()
	token.AddProperty(PropCASubject, ca.Subject.String())
	if algo, err := x509.SignatureAlgorithm(ca); err == nil {
		token.AddProperty(PropCAAlgo, algo)
	}
	return token
}

// GetIdentityToken returns the token which announces local to peers.
func (p *Plugin) GetIdentityToken(local *LocalIdentity) (ddsauth.DataHolder, error) {
	if _, err := local.signer(); err != nil {
		return ddsauth.DataHolder{}, p.fail("get_identity_token", local.guid, err)
	}
	return local.token.Clone(), nil
}

// ReturnIdentityToken releases a token returned by GetIdentityToken. It does nothing.
func (p *Plugin) ReturnIdentityToken(token ddsauth.DataHolder) error {
	return nil
}

// ValidateRemoteIdentity creates a handle for a discovered peer and decides which side
// begins the handshake. The participant with the lower GUID sends the request.
func (p *Plugin) ValidateRemoteIdentity(local *LocalIdentity, token ddsauth.DataHolder, remoteGUID ddsauth.GUID) (*RemoteIdentity, ddsauth.ValidationResult, error) {
	const op = "validate_remote_identity"
	if _, err := local.signer(); err != nil {
		return nil, ddsauth.ValidationFailed, p.fail(op, remoteGUID, err)
	}
	if token.ClassID != "" && token.ClassID != ClassIdentity {
		err := ddsauth.ErrUnexpectedClassID{Have: token.ClassID, Want: ClassIdentity}
		return nil, ddsauth.ValidationFailed, p.fail(op, remoteGUID, err)
	}
	remote := &RemoteIdentity{
		guid:  remoteGUID,
		token: token.Clone(),
	}
	if ddsauth.Compare(local.guid, remoteGUID) < 0 {
		return remote, ddsauth.ValidationPendingHandshakeRequest, nil
	}
	return remote, ddsauth.ValidationPendingHandshakeMessage, nil
}

// BeginHandshakeRequest starts a handshake as the initiator.
// On success the Req message must be sent to the peer, and the result is ValidationPendingHandshakeMessage.
func (p *Plugin) BeginHandshakeRequest(local *LocalIdentity, remote *RemoteIdentity) (*Handshake, *ddsauth.DataHolder, error) {
	const op = "begin_handshake_request"
	if err := checkIdentities(local, remote); err != nil {
		return nil, nil, p.fail(op, remote.guid, err)
	}
	h := newHandshake(p, local, remote, true)
	req, err := h.writeRequest()
	if err != nil {
		h.fail()
		return nil, nil, p.fail(op, remote.guid, err)
	}
	return h, req, nil
}

// BeginHandshakeReply starts a handshake as the replier, in response to req.
// On success the Reply message must be sent to the peer, and the result is ValidationPendingHandshakeMessage.
func (p *Plugin) BeginHandshakeReply(local *LocalIdentity, remote *RemoteIdentity, req *ddsauth.DataHolder) (*Handshake, *ddsauth.DataHolder, error) {
	const op = "begin_handshake_reply"
	if err := checkIdentities(local, remote); err != nil {
		return nil, nil, p.fail(op, remote.guid, err)
	}
	h := newHandshake(p, local, remote, false)
	reply, err := h.processRequest(req)
	if err != nil {
		h.fail()
		return nil, nil, p.fail(op, remote.guid, err)
	}
	return h, reply, nil
}

// ProcessHandshake delivers the next message from the peer.
// The initiator receives a Reply, and gets back ValidationOKFinalMessage and a Final message to send.
// The replier receives a Final, and gets back ValidationOK.
// Any failure is terminal for h.
func (p *Plugin) ProcessHandshake(h *Handshake, msg *ddsauth.DataHolder) (ddsauth.ValidationResult, *ddsauth.DataHolder, error) {
	const op = "process_handshake"
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkUsable(); err != nil {
		return ddsauth.ValidationFailed, nil, p.fail(op, h.remote.guid, err)
	}
	var (
		res ddsauth.ValidationResult
		out *ddsauth.DataHolder
		err error
	)
	switch h.sent.ClassID {
	case ClassReq:
		res = ddsauth.ValidationOKFinalMessage
		out, err = h.processReply(msg)
	case ClassReply:
		res = ddsauth.ValidationOK
		err = h.processFinal(msg)
	default:
		err = errors.Wrapf(ddsauth.ErrBadState, "handshake is %v", h.state)
	}
	if err != nil {
		h.fail()
		return ddsauth.ValidationFailed, nil, p.fail(op, h.remote.guid, err)
	}
	p.log.WithFields(logrus.Fields{
		"remote":    h.remote.guid,
		"initiator": h.isInit,
	}).Debug("handshake completed")
	return res, out, nil
}

// GetSharedSecret returns a copy of the secret derived by a completed handshake.
func (p *Plugin) GetSharedSecret(h *Handshake) (*SharedSecret, error) {
	const op = "get_shared_secret"
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, p.fail(op, h.remote.guid, ddsauth.ErrBadState)
	}
	if h.state != StateCompleted {
		return nil, p.fail(op, h.remote.guid, errors.Wrapf(ddsauth.ErrNotAvailable, "handshake is %v", h.state))
	}
	return h.secret.clone(), nil
}

// Listener would be told when a local identity is revoked. No events are raised.
type Listener interface {
	OnRevokeIdentity(local *LocalIdentity)
}

// SetListener is accepted for completeness and does nothing.
func (p *Plugin) SetListener(l Listener) error {
	return nil
}

// ReturnHandshakeHandle zeroes the key material held by h.
func (p *Plugin) ReturnHandshakeHandle(h *Handshake) error {
	h.release()
	return nil
}

// ReturnIdentityHandle releases a local or remote identity.
// A released local identity can not be used to sign.
func (p *Plugin) ReturnIdentityHandle(id IdentityHandle) error {
	switch id := id.(type) {
	case *LocalIdentity:
		id.release()
	case *RemoteIdentity:
		id.release()
	default:
		return errors.Errorf("unknown identity handle %T", id)
	}
	return nil
}

// ReturnSharedSecretHandle zeroes s.
func (p *Plugin) ReturnSharedSecretHandle(s *SharedSecret) error {
	s.Zero()
	return nil
}

// fail logs the cause of a failure and returns an error which does not describe it.
func (p *Plugin) fail(op string, remote ddsauth.GUID, err error) error {
	p.log.WithFields(logrus.Fields{
		"step":   op,
		"remote": remote,
	}).Warn(err)
	return ddsauth.ErrValidationFailed{Op: op, Cause: err}
}

func checkIdentities(local *LocalIdentity, remote *RemoteIdentity) error {
	if _, err := local.signer(); err != nil {
		return err
	}
	return remote.checkUsable()
}
