package pkidh

import (
	stdx509 "crypto/x509"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/brendoncarroll/go-ddsauth"
	"github.com/brendoncarroll/go-ddsauth/crypto/dhke"
	"github.com/brendoncarroll/go-ddsauth/crypto/dhke/dhke_modp"
	"github.com/brendoncarroll/go-ddsauth/f/x509"
)

type HandshakeState uint8

const (
	// StatePendingReply is the initiator waiting for a Reply to its Req.
	StatePendingReply = HandshakeState(iota + 1)
	// StatePendingFinal is the replier waiting for a Final in response to its Reply.
	StatePendingFinal
	StateCompleted
	StateFailed
)

func (s HandshakeState) String() string {
	switch s {
	case StatePendingReply:
		return "PENDING_REPLY"
	case StatePendingFinal:
		return "PENDING_FINAL"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("HandshakeState(%d)", s)
	}
}

// Handshake is one run of the three message exchange with a remote participant.
// Handshakes share no mutable state with each other.
type Handshake struct {
	p      *Plugin
	local  *LocalIdentity
	remote *RemoteIdentity
	scheme dhke.Scheme[dhke_modp.PrivateKey, dhke_modp.PublicKey]
	isInit bool

	mu       sync.Mutex
	state    HandshakeState
	released bool
	priv     dhke_modp.PrivateKey
	peerPub  dhke_modp.PublicKey
	peerCert *stdx509.Certificate
	peerSign string
	peerKA   string
	// sent is the last message sent, incoming messages are checked against it.
	sent   ddsauth.DataHolder
	secret *SharedSecret
}

func newHandshake(p *Plugin, local *LocalIdentity, remote *RemoteIdentity, isInit bool) *Handshake {
	return &Handshake{
		p:      p,
		local:  local,
		remote: remote,
		scheme: p.scheme,
		isInit: isInit,
	}
}

func (h *Handshake) State() HandshakeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// writeRequest generates the initiator's key pair and challenge and returns the Req message.
func (h *Handshake) writeRequest() (*ddsauth.DataHolder, error) {
	dh1, challenge1, err := h.generate()
	if err != nil {
		return nil, err
	}
	req := &ddsauth.DataHolder{ClassID: ClassReq}
	h.appendCredentials(req)
	hashC1 := hashProperties(req, "")
	req.AddBinary(PropHashC1, hashC1[:])
	req.AddBinary(PropDH1, dh1)
	req.AddBinary(PropChallenge1, challenge1)

	h.sent = req.Clone()
	h.state = StatePendingReply
	return req, nil
}

// processRequest validates a Req and returns the Reply.
func (h *Handshake) processRequest(req *ddsauth.DataHolder) (*ddsauth.DataHolder, error) {
	if req.ClassID != ClassReq {
		return nil, ddsauth.ErrUnexpectedClassID{Have: req.ClassID, Want: ClassReq}
	}
	v, err := lookup(req, PropCID, PropDSignAlgo, PropKAgreeAlgo, PropHashC1, PropDH1, PropChallenge1)
	if err != nil {
		return nil, err
	}
	if err := h.checkCredentials(req, PropHashC1, v[0], v[1], v[2], v[3]); err != nil {
		return nil, err
	}
	if h.peerPub, err = h.parsePeerPublic(v[4]); err != nil {
		return nil, err
	}
	dh2, challenge2, err := h.generate()
	if err != nil {
		return nil, err
	}
	reply := &ddsauth.DataHolder{ClassID: ClassReply}
	h.appendCredentials(reply)
	hashC2 := hashProperties(reply, "")
	reply.AddBinary(PropHashC2, hashC2[:])
	reply.AddBinary(PropDH2, dh2)
	reply.AddBinary(PropHashC1, v[3])
	reply.AddBinary(PropDH1, v[4])
	reply.AddBinary(PropChallenge1, v[5])
	reply.AddBinary(PropChallenge2, challenge2)
	sig, err := h.sign(reply, PropHashC2, PropChallenge2, PropDH2, PropChallenge1, PropDH1, PropHashC1)
	if err != nil {
		return nil, err
	}
	reply.AddBinary(PropSignature, sig)

	*reply = reply.Clone()
	h.sent = reply.Clone()
	h.state = StatePendingFinal
	return reply, nil
}

// processReply validates a Reply, derives the shared secret and returns the Final message.
func (h *Handshake) processReply(reply *ddsauth.DataHolder) (*ddsauth.DataHolder, error) {
	if reply.ClassID != ClassReply {
		return nil, ddsauth.ErrUnexpectedClassID{Have: reply.ClassID, Want: ClassReply}
	}
	v, err := lookup(reply,
		PropCID, PropDSignAlgo, PropKAgreeAlgo, PropHashC2, PropDH2,
		PropHashC1, PropDH1, PropChallenge1, PropChallenge2, PropSignature,
	)
	if err != nil {
		return nil, err
	}
	if err := h.checkCredentials(reply, PropHashC2, v[0], v[1], v[2], v[3]); err != nil {
		return nil, err
	}
	if string(v[2]) != h.local.kagreeAlgo {
		return nil, errors.Wrapf(ddsauth.ErrUnsupportedAlgorithm, "peer chose key agreement %q, requested %q", v[2], h.local.kagreeAlgo)
	}
	peerPub, err := h.parsePeerPublic(v[4])
	if err != nil {
		return nil, err
	}
	if err := sameValues(reply, &h.sent, PropHashC1, PropDH1, PropChallenge1); err != nil {
		return nil, err
	}
	if err := h.verify(reply, v[9], PropHashC2, PropChallenge2, PropDH2, PropChallenge1, PropDH1, PropHashC1); err != nil {
		return nil, err
	}
	h.peerPub = peerPub
	shared, err := h.scheme.ComputeShared(&h.priv, &h.peerPub)
	if err != nil {
		return nil, err
	}
	defer zero(shared)

	final := &ddsauth.DataHolder{ClassID: ClassFinal}
	final.AddBinary(PropHashC1, v[5])
	final.AddBinary(PropHashC2, v[3])
	final.AddBinary(PropDH1, v[6])
	final.AddBinary(PropDH2, v[4])
	final.AddBinary(PropChallenge1, v[7])
	final.AddBinary(PropChallenge2, v[8])
	sig, err := h.sign(final, PropHashC1, PropChallenge1, PropDH1, PropChallenge2, PropDH2, PropHashC2)
	if err != nil {
		return nil, err
	}
	final.AddBinary(PropSignature, sig)

	*final = final.Clone()
	h.sent = final.Clone()
	h.complete(shared, v[7], v[8])
	return final, nil
}

// processFinal validates a Final and derives the shared secret.
func (h *Handshake) processFinal(final *ddsauth.DataHolder) error {
	if final.ClassID != ClassFinal {
		return ddsauth.ErrUnexpectedClassID{Have: final.ClassID, Want: ClassFinal}
	}
	v, err := lookup(final, PropHashC1, PropHashC2, PropDH1, PropDH2, PropChallenge1, PropChallenge2, PropSignature)
	if err != nil {
		return err
	}
	if err := sameValues(final, &h.sent, PropHashC1, PropHashC2, PropDH1, PropDH2, PropChallenge1, PropChallenge2); err != nil {
		return err
	}
	if err := h.verify(final, v[6], PropHashC1, PropChallenge1, PropDH1, PropChallenge2, PropDH2, PropHashC2); err != nil {
		return err
	}
	shared, err := h.scheme.ComputeShared(&h.priv, &h.peerPub)
	if err != nil {
		return err
	}
	defer zero(shared)
	h.complete(shared, v[4], v[5])
	return nil
}

// checkCredentials validates the certificate, algorithms and hash announced by the peer.
func (h *Handshake) checkCredentials(msg *ddsauth.DataHolder, hashName string, cid, dsign, kagree, hash []byte) error {
	cert, err := x509.ParseCertificatePEM(cid)
	if err != nil {
		return err
	}
	if err := h.local.trust.Verify(cert, h.p.clock.Now()); err != nil {
		return err
	}
	if !h.remote.guid.BoundTo(cert.RawSubject) {
		return errors.Wrap(ddsauth.ErrCertificateInvalid, "participant key is not derived from certificate subject")
	}
	if err := checkSignAlgo(dsign); err != nil {
		return err
	}
	if err := checkKAgreeAlgo(kagree); err != nil {
		return err
	}
	if err := checkHash(msg, hashName, hash); err != nil {
		return err
	}
	h.peerCert = cert
	h.peerSign = string(dsign)
	h.peerKA = string(kagree)
	return nil
}

func (h *Handshake) appendCredentials(msg *ddsauth.DataHolder) {
	msg.AddBinary(PropCID, h.local.certPEM)
	msg.AddBinary(PropDSignAlgo, []byte(h.local.signAlgo))
	msg.AddBinary(PropKAgreeAlgo, []byte(h.local.kagreeAlgo))
}

// parsePeerPublic parses the peer's key agreement share.
// A share which does not decode, or is not in the local group, fails the handshake's integrity.
func (h *Handshake) parsePeerPublic(data []byte) (dhke_modp.PublicKey, error) {
	pub, err := h.scheme.ParsePublic(data)
	if err != nil {
		return dhke_modp.PublicKey{}, errors.Wrapf(ddsauth.ErrHandshakeIntegrity, "peer key agreement share: %v", err)
	}
	return pub, nil
}

// generate creates the local key pair and a challenge.
// It returns the encoded public key and the challenge.
func (h *Handshake) generate() (dh, challenge []byte, _ error) {
	pub, priv, err := h.scheme.Generate(h.p.rand)
	if err != nil {
		return nil, nil, errors.Wrap(ddsauth.ErrKeyGen, err.Error())
	}
	h.priv = priv
	if dh, err = h.scheme.AppendPublic(nil, &pub); err != nil {
		return nil, nil, errors.Wrap(ddsauth.ErrKeyGen, err.Error())
	}
	challenge = make([]byte, ChallengeSize)
	if _, err := io.ReadFull(h.p.rand, challenge); err != nil {
		return nil, nil, errors.Wrap(ddsauth.ErrKeyGen, err.Error())
	}
	challenge[0] |= 0x80
	return dh, challenge, nil
}

func (h *Handshake) sign(msg *ddsauth.DataHolder, names ...string) ([]byte, error) {
	payload, err := payloadOf(msg, names...)
	if err != nil {
		return nil, err
	}
	key, err := h.local.signer()
	if err != nil {
		return nil, err
	}
	return ddsauth.Sign(h.p.rand, key, payload)
}

func (h *Handshake) verify(msg *ddsauth.DataHolder, sig []byte, names ...string) error {
	payload, err := payloadOf(msg, names...)
	if err != nil {
		return err
	}
	return ddsauth.Verify(h.peerCert.PublicKey, payload, sig)
}

func (h *Handshake) complete(shared, challenge1, challenge2 []byte) {
	h.secret = newSharedSecret(shared, challenge1, challenge2)
	h.priv.Zero()
	h.state = StateCompleted
	h.remote.authenticated(h.peerCert, h.peerSign, h.peerKA)
}

func (h *Handshake) fail() {
	h.priv.Zero()
	h.state = StateFailed
}

func (h *Handshake) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.priv.Zero()
	if h.secret != nil {
		h.secret.Zero()
	}
	h.sent = ddsauth.DataHolder{}
	h.released = true
}

// payloadOf is the signed encoding of the named properties of msg.
func payloadOf(msg *ddsauth.DataHolder, names ...string) ([]byte, error) {
	values, err := lookup(msg, names...)
	if err != nil {
		return nil, err
	}
	props := make([]ddsauth.BinaryProperty, len(names))
	for i := range names {
		props[i] = ddsauth.NewBinaryProperty(names[i], values[i])
	}
	return signedPayload(props...), nil
}

func (h *Handshake) checkUsable() error {
	if h.released {
		return ddsauth.ErrBadState
	}
	if h.state == StateCompleted || h.state == StateFailed {
		return errors.Wrapf(ddsauth.ErrBadState, "handshake is %v", h.state)
	}
	return nil
}
