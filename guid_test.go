package ddsauth

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdjustParticipantKey(t *testing.T) {
	subject := []byte("CN=alice")
	candidate := NewCandidateGUID()

	a := AdjustParticipantKey(subject, candidate)
	b := AdjustParticipantKey(subject, candidate)
	require.Equal(t, a, b)
	require.Equal(t, candidate.Entity, a.Entity)
	require.NotZero(t, a.Prefix[0]&0x80)
	require.True(t, a.BoundTo(subject))
	require.False(t, a.BoundTo([]byte("CN=bob")))

	sh := sha256.Sum256(subject)
	require.Equal(t, sh[0]|0x80, a.Prefix[0])
	require.Equal(t, sh[1:6], a.Prefix[1:6])
	kh := sha256.Sum256(candidate.Bytes())
	require.Equal(t, kh[:6], a.Prefix[6:])

	other := AdjustParticipantKey([]byte("CN=bob"), candidate)
	require.NotEqual(t, a.Prefix[:6], other.Prefix[:6])
	require.Equal(t, a.Prefix[6:], other.Prefix[6:])
}

func TestNewCandidateGUID(t *testing.T) {
	a, b := NewCandidateGUID(), NewCandidateGUID()
	require.NotEqual(t, a, b)
	require.Equal(t, EntityIDParticipant, a.Entity)
}

func TestParseGUID(t *testing.T) {
	g := NewCandidateGUID()
	g2, err := ParseGUID(g.String())
	require.NoError(t, err)
	require.Equal(t, g, g2)

	g3, err := ParseGUID("0102030405060708090a0b0c.000001c1")
	require.NoError(t, err)
	require.Equal(t, GUIDPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, g3.Prefix)
	require.Equal(t, EntityIDParticipant, g3.Entity)

	_, err = ParseGUID("0102")
	require.Error(t, err)
	_, err = ParseGUID("zz")
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	a := GUID{Prefix: GUIDPrefix{1}}
	b := GUID{Prefix: GUIDPrefix{2}}
	require.Equal(t, -1, Compare(a, b))
	require.Equal(t, 1, Compare(b, a))
	require.Equal(t, 0, Compare(a, a))

	c := GUID{Prefix: GUIDPrefix{1}, Entity: EntityID{0, 0, 0, 1}}
	require.Equal(t, -1, Compare(a, c))
}
