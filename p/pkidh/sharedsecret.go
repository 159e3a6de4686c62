package pkidh

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/brendoncarroll/go-ddsauth"
)

// Names of the values held by a SharedSecret.
const (
	SecretSharedSecret = "SharedSecret"
	SecretChallenge1   = "Challenge1"
	SecretChallenge2   = "Challenge2"
)

// SharedSecret is the result of a completed handshake.
// It is consumed by the cryptographic transform and is not modified after creation.
type SharedSecret struct {
	mu       sync.RWMutex
	entries  []ddsauth.BinaryProperty
	released bool
}

func newSharedSecret(secret, challenge1, challenge2 []byte) *SharedSecret {
	return &SharedSecret{
		entries: []ddsauth.BinaryProperty{
			{Name: SecretSharedSecret, Value: slices.Clone(secret)},
			{Name: SecretChallenge1, Value: slices.Clone(challenge1)},
			{Name: SecretChallenge2, Value: slices.Clone(challenge2)},
		},
	}
}

// Names lists the values held by s, in order.
func (s *SharedSecret) Names() []string {
	ret := make([]string, len(s.entries))
	for i := range s.entries {
		ret[i] = s.entries[i].Name
	}
	return ret
}

// Get returns a copy of the value called name.
func (s *SharedSecret) Get(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, ddsauth.ErrBadState
	}
	i := slices.IndexFunc(s.entries, func(e ddsauth.BinaryProperty) bool { return e.Name == name })
	if i < 0 {
		return nil, errors.Wrapf(ddsauth.ErrNotAvailable, "no secret named %q", name)
	}
	return slices.Clone(s.entries[i].Value), nil
}

func (s *SharedSecret) SharedSecret() ([]byte, error) {
	return s.Get(SecretSharedSecret)
}

func (s *SharedSecret) Challenge1() ([]byte, error) {
	return s.Get(SecretChallenge1)
}

func (s *SharedSecret) Challenge2() ([]byte, error) {
	return s.Get(SecretChallenge2)
}

func (s *SharedSecret) clone() *SharedSecret {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newSharedSecret(s.entries[0].Value, s.entries[1].Value, s.entries[2].Value)
}

// Zero overwrites the values held by s. Get fails afterwards.
func (s *SharedSecret) Zero() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		zero(e.Value)
	}
	s.released = true
}

func zero(x []byte) {
	for i := range x {
		x[i] = 0
	}
}
