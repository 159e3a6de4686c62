package main

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"github.com/brendoncarroll/go-ddsauth"
	"github.com/brendoncarroll/go-ddsauth/f/x509"
)

var (
	props []string
	guid  string
)

func init() {
	for _, c := range []*cobra.Command{validateCmd, identityTokenCmd} {
		c.Flags().StringArrayVar(&props, "prop", nil, "--prop identity_ca=file:///path/ca.pem")
		c.Flags().StringVar(&guid, "guid", "", "candidate GUID as 32 hex characters, random if empty")
		rootCmd.AddCommand(c)
	}
	adjustKeyCmd.Flags().StringVar(&guid, "guid", "", "candidate GUID as 32 hex characters, random if empty")
	rootCmd.AddCommand(adjustKeyCmd)
}

var adjustKeyCmd = &cobra.Command{
	Use:   "adjust-key <certificate uri>",
	Short: "derives the participant GUID bound to a certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cert, err := x509.LoadCertificate(args[0])
		if err != nil {
			return err
		}
		candidate, err := candidateGUID(guid)
		if err != nil {
			return err
		}
		cmd.Println("candidate:", candidate)
		cmd.Println("adjusted: ", ddsauth.AdjustParticipantKey(cert.RawSubject, candidate))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "validates a local identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		pb, err := parseProps(props)
		if err != nil {
			return err
		}
		candidate, err := candidateGUID(guid)
		if err != nil {
			return err
		}
		local, err := newPlugin().ValidateLocalIdentity(pb, candidate)
		if err != nil {
			return cause(err)
		}
		cmd.Println("subject:  ", local.Certificate().Subject)
		cmd.Println("issuer:   ", local.Certificate().Issuer)
		cmd.Println("dsign:    ", local.SignatureAlgorithm())
		cmd.Println("kagree:   ", local.KeyAgreementAlgorithm())
		cmd.Println("candidate:", candidate)
		cmd.Println("adjusted: ", local.GUID())
		return nil
	},
}

var identityTokenCmd = &cobra.Command{
	Use:   "identity-token",
	Short: "prints the identity token of a local identity and its wire encoding",
	RunE: func(cmd *cobra.Command, args []string) error {
		pb, err := parseProps(props)
		if err != nil {
			return err
		}
		candidate, err := candidateGUID(guid)
		if err != nil {
			return err
		}
		p := newPlugin()
		local, err := p.ValidateLocalIdentity(pb, candidate)
		if err != nil {
			return cause(err)
		}
		token, err := p.GetIdentityToken(local)
		if err != nil {
			return cause(err)
		}
		defer p.ReturnIdentityToken(token)
		cmd.Println("class_id:", token.ClassID)
		for _, prop := range token.Properties {
			cmd.Printf("%s: %s\n", prop.Name, prop.Value)
		}
		cmd.Println(hex.Dump(token.MarshalCDR(nil)))
		return nil
	},
}
