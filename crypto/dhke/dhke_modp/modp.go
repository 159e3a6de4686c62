// package dhke_modp implements finite field Diffie-Hellman over the RFC 5114 2048-bit MODP group
// with a 256-bit prime order subgroup.
package dhke_modp

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/brendoncarroll/go-ddsauth/crypto/dhke"
	"github.com/brendoncarroll/go-ddsauth/f/cdr"
)

// Name is the DDS key agreement algorithm identifier for this scheme.
const Name = "DH+MODP-2048-256"

// ErrInvalidPublic is returned for peer public keys which are not acceptable.
var ErrInvalidPublic = errors.Wrap(cdr.ErrMalformed, "dh: invalid public key")

// Group is a set of domain parameters.
type Group struct {
	P, G, Q *big.Int
}

// RFC5114_2048_256 is defined in RFC 5114 Section 2.3
var RFC5114_2048_256 = Group{
	P: mustHex(`
		87A8E61D B4B6663C FFBBD19C 65195999 8CEEF608 660DD0F2 5D2CEED4 435E3B00
		E00DF8F1 D61957D4 FAF7DF45 61B2AA30 16C3D911 34096FAA 3BF4296D 830E9A7C
		209E0C64 97517ABD 5A8A9D30 6BCF67ED 91F9E672 5B4758C0 22E0B1EF 4275BF7B
		6C5BFC11 D45F9088 B941F54E B1E59BB8 BC39A0BF 12307F5C 4FDB70C5 81B23F76
		B63ACAE1 CAA6B790 2D525267 35488A0E F13C6D9A 51BFA4AB 3AD83477 96524D8E
		F6A167B5 A41825D9 67E144E5 14056425 1CCACB83 E6B486F6 B3CA3F79 71506026
		C0B857F6 89962856 DED4010A BD0BE621 C3A3960A 54E710C3 75F26375 D7014103
		A4B54330 C198AF12 6116D227 6E11715F 693877FA D7EF09CA DB094AE9 1E1A1597`),
	G: mustHex(`
		3FB32C9B 73134D0B 2E775066 60EDBD48 4CA7B18F 21EF2054 07F4793A 1A0BA125
		10DBC150 77BE463F FF4FED4A AC0BB555 BE3A6C1B 0C6B47B1 BC3773BF 7E8C6F62
		901228F8 C28CBB18 A55AE313 41000A65 0196F931 C77A57F2 DDF463E5 E9EC144B
		777DE62A AAB8A862 8AC376D2 82D6ED38 64E67982 428EBC83 1D14348F 6F2F9193
		B5045AF2 767164E1 DFC967C1 FB3F2E55 A4BD1BFF E83B9C80 D052B985 D182EA0A
		DB2A3B73 13D3FE14 C8484B1E 052588B9 B7D2BBD2 DF016199 ECD06E15 57CD0915
		B3353BBB 64E0EC37 7FD02837 0DF92B52 C7891428 CDC67EB6 184B523D 1DB246C3
		2F630784 90F00EF8 D647D148 D4795451 5E2327CF EF98C582 664B4C0F 6CC41659`),
	Q: mustHex(`8CF83642 A709A097 B4479976 40129DA2 99B1A47D 1EB3750B A308B0FE 64F5FBD3`),
}

type PrivateKey struct {
	x *big.Int
}

// Zero overwrites the private exponent.
func (k *PrivateKey) Zero() {
	if k.x == nil {
		return
	}
	words := k.x.Bits()
	for i := range words {
		words[i] = 0
	}
	k.x.SetInt64(0)
}

type PublicKey struct {
	Y *big.Int
}

var _ dhke.Scheme[PrivateKey, PublicKey] = Scheme{}

type Scheme struct {
	group *Group
}

// New2048_256 returns the DH+MODP-2048-256 scheme.
func New2048_256() Scheme {
	return Scheme{group: &RFC5114_2048_256}
}

func (s Scheme) Name() string {
	return Name
}

func (s Scheme) Group() Group {
	return *s.group
}

func (s Scheme) Generate(rng io.Reader) (PublicKey, PrivateKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	// x is uniform in [2, q-1]
	max := new(big.Int).Sub(s.group.Q, big.NewInt(2))
	x, err := rand.Int(rng, max)
	if err != nil {
		return PublicKey{}, PrivateKey{}, errors.Wrap(err, "dh: generating private key")
	}
	x.Add(x, big.NewInt(2))
	priv := PrivateKey{x: x}
	return s.DerivePublic(&priv), priv, nil
}

func (s Scheme) DerivePublic(priv *PrivateKey) PublicKey {
	return PublicKey{Y: new(big.Int).Exp(s.group.G, priv.x, s.group.P)}
}

func (s Scheme) ComputeShared(priv *PrivateKey, pub *PublicKey) ([]byte, error) {
	if priv.x == nil || priv.x.Sign() == 0 {
		return nil, errors.New("dh: private key is not set")
	}
	if err := s.checkPublic(pub.Y); err != nil {
		return nil, err
	}
	z := new(big.Int).Exp(pub.Y, priv.x, s.group.P)
	if z.Cmp(big.NewInt(1)) <= 0 {
		return nil, errors.Wrap(ErrInvalidPublic, "degenerate shared secret")
	}
	return z.Bytes(), nil
}

// AppendPublic appends the prime, the generator and the public value as CDR integers.
func (s Scheme) AppendPublic(out []byte, pub *PublicKey) ([]byte, error) {
	return cdr.AppendBigInts(out, s.group.P, s.group.G, pub.Y)
}

// ParsePublic parses a public key produced by AppendPublic.
// The peer must use the same group as s.
func (s Scheme) ParsePublic(data []byte) (PublicKey, error) {
	xs, err := cdr.ParseBigInts(data, 3)
	if err != nil {
		return PublicKey{}, err
	}
	p, g, y := xs[0], xs[1], xs[2]
	if p.Cmp(s.group.P) != 0 || g.Cmp(s.group.G) != 0 {
		return PublicKey{}, errors.Wrap(ErrInvalidPublic, "unexpected group parameters")
	}
	if err := s.checkPublic(y); err != nil {
		return PublicKey{}, err
	}
	return PublicKey{Y: y}, nil
}

// checkPublic requires 1 < y < p-1
func (s Scheme) checkPublic(y *big.Int) error {
	if y == nil {
		return errors.Wrap(ErrInvalidPublic, "missing public value")
	}
	pMinus1 := new(big.Int).Sub(s.group.P, big.NewInt(1))
	if y.Cmp(big.NewInt(1)) <= 0 || y.Cmp(pMinus1) >= 0 {
		return errors.Wrap(ErrInvalidPublic, "public value out of range")
	}
	return nil
}

func mustHex(x string) *big.Int {
	x = strings.Join(strings.Fields(x), "")
	n, ok := new(big.Int).SetString(x, 16)
	if !ok {
		panic("invalid hex constant")
	}
	return n
}
