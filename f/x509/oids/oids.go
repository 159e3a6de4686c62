package oids

import (
	"encoding/asn1"
	"encoding/binary"
	"fmt"
	"strings"
)

// Signature algorithm identifiers which can appear in an identity certificate.
var (
	ECDSAWithSHA256 = New(1, 2, 840, 10045, 4, 3, 2)
	SHA256WithRSA   = New(1, 2, 840, 113549, 1, 1, 11)
	RSASSAPSS       = New(1, 2, 840, 113549, 1, 1, 10)
)

// OID is a comparable ASN.1 object identifier.
type OID struct {
	s string
}

func New(xs ...int) OID {
	sb := strings.Builder{}
	for _, x := range xs {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(x))
		sb.Write(buf[:])
	}
	return OID{s: sb.String()}
}

// FromASN1 converts an encoding/asn1 object identifier.
func FromASN1(x asn1.ObjectIdentifier) OID {
	return New(x...)
}

func (oid OID) Len() int {
	return len(oid.s) / 8
}

func (oid OID) At(i int) uint64 {
	begin := i * 8
	end := begin + 8
	return binary.BigEndian.Uint64([]byte(oid.s[begin:end]))
}

func (oid OID) String() string {
	sb := strings.Builder{}
	for i := 0; i < oid.Len(); i++ {
		if i > 0 {
			sb.WriteString(".")
		}
		fmt.Fprintf(&sb, "%d", oid.At(i))
	}
	return sb.String()
}
