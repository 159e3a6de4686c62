// package dhke provides an interface for Diffie-Hellman Key Exchanges
package dhke

import (
	"io"
)

// Scheme is a Diffie-Hellman key agreement scheme.
// Private keys never leave the process, so there is no way to marshal them.
type Scheme[Private, Public any] interface {
	// Name is the algorithm identifier announced during a handshake.
	Name() string

	Generate(rng io.Reader) (Public, Private, error)
	DerivePublic(*Private) Public

	// ComputeShared combines a local private key with a peer's public key.
	ComputeShared(priv *Private, pub *Public) ([]byte, error)

	// AppendPublic appends the wire encoding of pub to out.
	AppendPublic(out []byte, pub *Public) ([]byte, error)
	// ParsePublic parses and validates a peer's public key.
	ParsePublic([]byte) (Public, error)
}
