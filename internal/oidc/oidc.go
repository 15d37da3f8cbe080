package oidc

import (
	"context"
	"crypto"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/mutsasns/mutsasns/backend/go-services/pkg/middleware"
)

// Verifier checks tokens signed by one Keycloak realm. ID tokens must name
// the client in aud. Keycloak access tokens carry aud "account" instead, so
// the access-token form checks the authorized party (azp).
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	build    func(*oidc.Config) *oidc.IDTokenVerifier
	clientID string
	checkAZP bool
}

// NewVerifier discovers the realm at issuer and returns an ID token verifier
// for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", issuer, err)
	}
	return newVerifier(provider.Verifier, clientID), nil
}

// NewStaticVerifier verifies against fixed public keys without discovery.
func NewStaticVerifier(issuer, clientID string, keys ...crypto.PublicKey) *Verifier {
	ks := &oidc.StaticKeySet{PublicKeys: keys}
	return newVerifier(func(c *oidc.Config) *oidc.IDTokenVerifier {
		return oidc.NewVerifier(issuer, ks, c)
	}, clientID)
}

func newVerifier(build func(*oidc.Config) *oidc.IDTokenVerifier, clientID string) *Verifier {
	return &Verifier{
		verifier: build(&oidc.Config{ClientID: clientID}),
		build:    build,
		clientID: clientID,
	}
}

// ForAccessTokens returns a verifier for bearer access tokens of the same realm.
func (v *Verifier) ForAccessTokens() *Verifier {
	return &Verifier{
		verifier: v.build(&oidc.Config{SkipClientIDCheck: true}),
		build:    v.build,
		clientID: v.clientID,
		checkAZP: true,
	}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	if v.checkAZP {
		var c struct {
			AZP string `json:"azp"`
		}
		if err := tok.Claims(&c); err != nil {
			return nil, err
		}
		if c.AZP != v.clientID {
			return nil, fmt.Errorf("oidc: token issued to %q, want %q", c.AZP, v.clientID)
		}
	}
	return tok, nil
}
