package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/brendoncarroll/go-ddsauth"
	"github.com/brendoncarroll/go-ddsauth/p/pkidh"
)

var log = ddsauth.Logger

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ddsauthutil",
	Short: "DDS PKI-DH authentication diagnostics",
}

func newPlugin() *pkidh.Plugin {
	return pkidh.New(pkidh.Params{Logger: log})
}

// parseProps parses name=value pairs into a PropertyBag.
func parseProps(xs []string) (ddsauth.PropertyBag, error) {
	props := ddsauth.PropertyBag{}
	for _, x := range xs {
		parts := strings.SplitN(x, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Errorf("property %q is not name=value", x)
		}
		props[parts[0]] = parts[1]
	}
	return props, nil
}

func candidateGUID(x string) (ddsauth.GUID, error) {
	if x == "" {
		return ddsauth.NewCandidateGUID(), nil
	}
	return ddsauth.ParseGUID(x)
}

// cause unwraps the plugin's opaque error, the CLI runs locally and may show it.
// The result is prefixed with the kind of failure, when it is known.
func cause(err error) error {
	var vf ddsauth.ErrValidationFailed
	if errors.As(err, &vf) {
		err = errors.Wrap(vf.Cause, vf.Op)
	}
	if kind := failureKind(err); kind != "" {
		return errors.Wrap(err, kind)
	}
	return err
}

func failureKind(err error) string {
	switch {
	case ddsauth.IsErrConfiguration(err):
		return "identity properties are incomplete"
	case ddsauth.IsErrCertificateInvalid(err):
		return "certificate rejected"
	case ddsauth.IsErrHandshakeIntegrity(err), ddsauth.IsErrSignatureInvalid(err):
		return "peer message failed verification"
	case ddsauth.IsErrMalformedEncoding(err):
		return "malformed message"
	case ddsauth.IsErrNotAvailable(err):
		return "handshake did not complete"
	default:
		return ""
	}
}
