package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/brendoncarroll/go-ddsauth"
)

func TestCause(t *testing.T) {
	tcs := []struct {
		Cause error
		Kind  string
	}{
		{errors.Wrap(ddsauth.ErrConfiguration, "dds.sec.auth.identity_ca"), "identity properties are incomplete"},
		{errors.Wrap(ddsauth.ErrCertificateInvalid, "expired"), "certificate rejected"},
		{ddsauth.ErrSignatureInvalid, "peer message failed verification"},
		{errors.Wrap(ddsauth.ErrHandshakeIntegrity, "hash_c1 does not match"), "peer message failed verification"},
		{ddsauth.ErrMissingProperty{Name: "c.id"}, "malformed message"},
		{ddsauth.ErrNotAvailable, "handshake did not complete"},
	}
	for _, tc := range tcs {
		err := cause(ddsauth.ErrValidationFailed{Op: "process_handshake", Cause: tc.Cause})
		require.ErrorIs(t, err, tc.Cause)
		require.Contains(t, err.Error(), tc.Kind)
		require.Contains(t, err.Error(), "process_handshake")
	}

	other := errors.New("something else")
	require.Equal(t, other, cause(other))
}
