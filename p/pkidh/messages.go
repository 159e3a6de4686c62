package pkidh

import (
	"bytes"
	"crypto/sha256"

	"github.com/pkg/errors"

	"github.com/brendoncarroll/go-ddsauth"
	"github.com/brendoncarroll/go-ddsauth/crypto/dhke/dhke_modp"
	"github.com/brendoncarroll/go-ddsauth/f/x509"
)

const (
	ClassIdentity = "DDS:Auth:PKI-DH:1.0"
	ClassReq      = ClassIdentity + "+Req"
	ClassReply    = ClassIdentity + "+Reply"
	ClassFinal    = ClassIdentity + "+Final"
)

// Binary properties carried by handshake messages.
const (
	PropCID        = "c.id"
	PropDSignAlgo  = "c.dsign_algo"
	PropKAgreeAlgo = "c.kagree_algo"
	PropHashC1     = "hash_c1"
	PropHashC2     = "hash_c2"
	PropDH1        = "dh1"
	PropDH2        = "dh2"
	PropChallenge1 = "challenge1"
	PropChallenge2 = "challenge2"
	PropSignature  = "signature"
)

// Properties of the identity token.
const (
	PropCertSubject = "dds.cert.sn"
	PropCertAlgo    = "dds.cert.algo"
	PropCASubject   = "dds.ca.sn"
	PropCAAlgo      = "dds.ca.algo"
)

// Key agreement algorithms.
// Only KAgreeDH is implemented, KAgreeECDH is recognized and refused.
const (
	KAgreeDH   = dhke_modp.Name
	KAgreeECDH = "ECDH+prime256v1-CEUM"
)

// ChallengeSize is the size of a handshake challenge in bytes.
const ChallengeSize = 64

// hashProperties hashes the properties of msg which precede the property called limit.
func hashProperties(msg *ddsauth.DataHolder, limit string) [32]byte {
	return sha256.Sum256(ddsauth.AppendBinaryProperties(nil, msg.BinaryProperties, limit))
}

// checkHash compares the hash property called name with a hash of the properties before it.
func checkHash(msg *ddsauth.DataHolder, name string, have []byte) error {
	want := hashProperties(msg, name)
	if !bytes.Equal(want[:], have) {
		return errors.Wrapf(ddsauth.ErrHandshakeIntegrity, "%s does not match", name)
	}
	return nil
}

// signedPayload is the data covered by a handshake signature.
func signedPayload(props ...ddsauth.BinaryProperty) []byte {
	return ddsauth.AppendBinaryProperties(nil, props, "")
}

// lookup returns the values of the named binary properties, in order.
func lookup(msg *ddsauth.DataHolder, names ...string) ([][]byte, error) {
	ret := make([][]byte, len(names))
	for i, name := range names {
		v, err := msg.Binary(name)
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

// sameValues returns an error naming the first property of have that differs from want.
func sameValues(have, want *ddsauth.DataHolder, names ...string) error {
	for _, name := range names {
		x, err := have.Binary(name)
		if err != nil {
			return err
		}
		y, err := want.Binary(name)
		if err != nil {
			return err
		}
		if !bytes.Equal(x, y) {
			return errors.Wrapf(ddsauth.ErrHandshakeIntegrity, "%s does not match", name)
		}
	}
	return nil
}

func checkSignAlgo(algo []byte) error {
	switch string(algo) {
	case x509.AlgoRSASSAPSS, x509.AlgoECDSA:
		return nil
	default:
		return errors.Wrapf(ddsauth.ErrUnsupportedAlgorithm, "signature algorithm %q", algo)
	}
}

func checkKAgreeAlgo(algo []byte) error {
	switch string(algo) {
	case KAgreeDH:
		return nil
	case KAgreeECDH:
		return errors.Wrapf(ddsauth.ErrUnsupportedAlgorithm, "key agreement %q is not implemented", algo)
	default:
		return errors.Wrapf(ddsauth.ErrUnsupportedAlgorithm, "key agreement %q", algo)
	}
}
