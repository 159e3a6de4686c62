package ddsauth

import (
	"strings"

	"github.com/pkg/errors"
)

// PropertyPrefix namespaces the configuration of the builtin PKI-DH plugin.
const PropertyPrefix = "dds.sec.auth.builtin.PKI-DH."

// Names of the configuration properties. They may be given with or without PropertyPrefix.
const (
	PropIdentityCA          = "identity_ca"
	PropIdentityCertificate = "identity_certificate"
	PropIdentityCRL         = "identity_crl"
	PropPrivateKey          = "private_key"
	PropPassword            = "password"
)

// PropertyBag is the configuration supplied for a participant.
type PropertyBag map[string]string

// Get looks up name under PropertyPrefix, then without it.
func (pb PropertyBag) Get(name string) (string, bool) {
	if v, ok := pb[PropertyPrefix+name]; ok {
		return v, true
	}
	v, ok := pb[name]
	return v, ok
}

// Require is like Get but returns an error wrapping ErrConfiguration if name is absent or empty.
func (pb PropertyBag) Require(name string) (string, error) {
	v, ok := pb.Get(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", errors.Wrapf(ErrConfiguration, "property %s%s is required", PropertyPrefix, name)
	}
	return v, nil
}
