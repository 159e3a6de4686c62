package ddsauth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	GUIDPrefixSize = 12
	EntityIDSize   = 4
	GUIDSize       = GUIDPrefixSize + EntityIDSize
)

type GUIDPrefix [GUIDPrefixSize]byte

type EntityID [EntityIDSize]byte

// EntityIDParticipant identifies the participant entity within a GUIDPrefix.
var EntityIDParticipant = EntityID{0x00, 0x00, 0x01, 0xc1}

// GUID identifies a participant: a 12 byte prefix followed by a 4 byte entity id.
type GUID struct {
	Prefix GUIDPrefix
	Entity EntityID
}

// NewCandidateGUID returns a participant GUID with a random prefix.
func NewCandidateGUID() GUID {
	id := uuid.New()
	var g GUID
	copy(g.Prefix[:], id[:GUIDPrefixSize])
	g.Entity = EntityIDParticipant
	return g
}

// ParseGUID parses 32 hex characters. '.' and '|' separators are ignored.
func ParseGUID(x string) (GUID, error) {
	x = strings.NewReplacer(".", "", "|", "").Replace(x)
	data, err := hex.DecodeString(x)
	if err != nil {
		return GUID{}, err
	}
	if len(data) != GUIDSize {
		return GUID{}, errors.Errorf("guid must be %d bytes, have %d", GUIDSize, len(data))
	}
	var g GUID
	copy(g.Prefix[:], data[:GUIDPrefixSize])
	copy(g.Entity[:], data[GUIDPrefixSize:])
	return g, nil
}

func (g GUID) Bytes() []byte {
	ret := make([]byte, 0, GUIDSize)
	ret = append(ret, g.Prefix[:]...)
	return append(ret, g.Entity[:]...)
}

func (g GUID) String() string {
	return hex.EncodeToString(g.Prefix[:]) + "|" + hex.EncodeToString(g.Entity[:])
}

// Compare orders GUIDs lexicographically over all 16 bytes.
func Compare(a, b GUID) int {
	return bytes.Compare(a.Bytes(), b.Bytes())
}

// AdjustParticipantKey derives the participant key bound to a certificate.
// subject is the DER encoded subject name of the certificate.
//
// The first 6 bytes of the prefix commit to the subject, with the top bit set to mark the
// key as authenticated. The next 6 commit to the candidate GUID. The entity id is unchanged.
func AdjustParticipantKey(subject []byte, candidate GUID) GUID {
	var adjusted GUID
	sh := SubjectHash(subject)
	copy(adjusted.Prefix[:6], sh[:])

	kh := sha256.Sum256(candidate.Bytes())
	copy(adjusted.Prefix[6:], kh[:6])

	adjusted.Entity = candidate.Entity
	return adjusted
}

// SubjectHash returns the 6 bytes of an adjusted key which commit to a certificate subject.
func SubjectHash(subject []byte) [6]byte {
	var ret [6]byte
	h := sha256.Sum256(subject)
	copy(ret[:], h[:6])
	ret[0] |= 0x80
	return ret
}

// BoundTo returns true if g was derived from a certificate with subject.
func (g GUID) BoundTo(subject []byte) bool {
	sh := SubjectHash(subject)
	return bytes.Equal(g.Prefix[:6], sh[:])
}
