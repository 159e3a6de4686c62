package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/brendoncarroll/go-ddsauth"
	"github.com/brendoncarroll/go-ddsauth/p/pkidh"
)

var (
	peerProps []string
	count     int
)

func init() {
	handshakeCmd.Flags().StringArrayVar(&props, "prop", nil, "properties of the first participant")
	handshakeCmd.Flags().StringArrayVar(&peerProps, "peer-prop", nil, "properties of the second participant")
	handshakeCmd.Flags().IntVar(&count, "count", 1, "number of concurrent handshakes")
	rootCmd.AddCommand(handshakeCmd)
}

var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "runs handshakes between two local identities, passing messages through their wire encoding",
	RunE: func(cmd *cobra.Command, args []string) error {
		pbA, err := parseProps(props)
		if err != nil {
			return err
		}
		pbB, err := parseProps(peerProps)
		if err != nil {
			return err
		}
		p := newPlugin()
		a, err := p.ValidateLocalIdentity(pbA, ddsauth.NewCandidateGUID())
		if err != nil {
			return cause(err)
		}
		b, err := p.ValidateLocalIdentity(pbB, ddsauth.NewCandidateGUID())
		if err != nil {
			return cause(err)
		}

		var mu sync.Mutex
		eg := errgroup.Group{}
		for i := 0; i < count; i++ {
			i := i
			eg.Go(func() error {
				secret, err := loopback(p, a, b)
				if err != nil {
					return errors.Wrapf(cause(err), "handshake %d", i)
				}
				fp := sha256.Sum256(secret)
				mu.Lock()
				defer mu.Unlock()
				cmd.Printf("%d: secret=%s (%d bytes)\n", i, hex.EncodeToString(fp[:8]), len(secret))
				return nil
			})
		}
		return eg.Wait()
	},
}

// loopback authenticates a and b to each other and returns the secret they agree on.
func loopback(p *pkidh.Plugin, a, b *pkidh.LocalIdentity) ([]byte, error) {
	tokenA, err := p.GetIdentityToken(a)
	if err != nil {
		return nil, err
	}
	tokenB, err := p.GetIdentityToken(b)
	if err != nil {
		return nil, err
	}
	remoteB, res, err := p.ValidateRemoteIdentity(a, tokenB, b.GUID())
	if err != nil {
		return nil, err
	}
	remoteA, _, err := p.ValidateRemoteIdentity(b, tokenA, a.GUID())
	if err != nil {
		return nil, err
	}
	defer p.ReturnIdentityHandle(remoteA)
	defer p.ReturnIdentityHandle(remoteB)

	first, firstRemote, second, secondRemote := a, remoteB, b, remoteA
	if res != ddsauth.ValidationPendingHandshakeRequest {
		first, firstRemote, second, secondRemote = b, remoteA, a, remoteB
	}
	hi, req, err := p.BeginHandshakeRequest(first, firstRemote)
	if err != nil {
		return nil, err
	}
	defer p.ReturnHandshakeHandle(hi)
	if req, err = transmit(req); err != nil {
		return nil, err
	}
	hr, reply, err := p.BeginHandshakeReply(second, secondRemote, req)
	if err != nil {
		return nil, err
	}
	defer p.ReturnHandshakeHandle(hr)
	if reply, err = transmit(reply); err != nil {
		return nil, err
	}
	_, final, err := p.ProcessHandshake(hi, reply)
	if err != nil {
		return nil, err
	}
	if final, err = transmit(final); err != nil {
		return nil, err
	}
	if _, _, err := p.ProcessHandshake(hr, final); err != nil {
		return nil, err
	}

	secrets := make([][]byte, 2)
	for i, h := range []*pkidh.Handshake{hi, hr} {
		s, err := p.GetSharedSecret(h)
		if err != nil {
			return nil, err
		}
		secrets[i], err = s.SharedSecret()
		if err != nil {
			return nil, err
		}
		p.ReturnSharedSecretHandle(s)
	}
	if !bytes.Equal(secrets[0], secrets[1]) {
		return nil, errors.New("participants derived different secrets")
	}
	return secrets[0], nil
}

func transmit(msg *ddsauth.DataHolder) (*ddsauth.DataHolder, error) {
	dh, err := ddsauth.ParseDataHolder(msg.MarshalCDR(nil))
	if err != nil {
		return nil, err
	}
	return &dh, nil
}
