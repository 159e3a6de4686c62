package ddsauth

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/brendoncarroll/go-ddsauth/f/cdr"
	"github.com/brendoncarroll/go-ddsauth/f/x509"
)

var (
	ErrConfiguration        = errors.New("missing identity configuration")
	ErrCryptoLoad           = x509.ErrLoad
	ErrCertificateInvalid   = x509.ErrCertificateInvalid
	ErrUnsupportedAlgorithm = x509.ErrUnsupportedAlgorithm
	ErrKeyMismatch          = x509.ErrKeyMismatch
	ErrHandshakeIntegrity   = errors.New("handshake hash mismatch")
	ErrSignatureInvalid     = errors.New("signature is invalid")
	ErrMalformedEncoding    = cdr.ErrMalformed
	ErrKeyGen               = errors.New("key generation failed")
	ErrNotAvailable         = errors.New("not available")
	ErrBadState             = errors.New("handle has been released or failed")
)

func IsErrConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsErrCertificateInvalid(err error) bool {
	return errors.Is(err, ErrCertificateInvalid)
}

func IsErrHandshakeIntegrity(err error) bool {
	return errors.Is(err, ErrHandshakeIntegrity)
}

func IsErrSignatureInvalid(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}

func IsErrMalformedEncoding(err error) bool {
	return errors.Is(err, ErrMalformedEncoding)
}

func IsErrNotAvailable(err error) bool {
	return errors.Is(err, ErrNotAvailable)
}

// ErrMissingProperty is returned when a message or configuration lacks a required property.
type ErrMissingProperty struct {
	Name string
}

func (e ErrMissingProperty) Error() string {
	return fmt.Sprintf("missing property %q", e.Name)
}

func (e ErrMissingProperty) Is(target error) bool {
	return target == ErrMalformedEncoding
}

// ErrUnexpectedClassID is returned when a token arrives out of order or is replayed.
type ErrUnexpectedClassID struct {
	Have, Want string
}

func (e ErrUnexpectedClassID) Error() string {
	return fmt.Sprintf("unexpected class id: have %q want %q", e.Have, e.Want)
}

// ErrValidationFailed is the error returned across the plugin boundary.
// Its message only names the operation. The cause is available to errors.Is and errors.As.
type ErrValidationFailed struct {
	Op    string
	Cause error
}

func (e ErrValidationFailed) Error() string {
	return e.Op + ": validation failed"
}

func (e ErrValidationFailed) Unwrap() error {
	return e.Cause
}
