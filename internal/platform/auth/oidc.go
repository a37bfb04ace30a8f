package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

type discoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// DiscoverJWKSURL reads the issuer's OpenID Connect discovery document and
// returns its jwks_uri.
func DiscoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	return discoverJWKSURL(ctx, newIdentityClient(), issuer)
}

func discoverJWKSURL(ctx context.Context, client *resty.Client, issuer string) (string, error) {
	var doc discoveryDocument
	resp, err := client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&doc).
		Get(strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration")
	if err != nil {
		return "", fmt.Errorf("fetching OIDC discovery document: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("OIDC discovery endpoint returned status %d", resp.StatusCode())
	}
	if doc.JWKSURI == "" {
		return "", fmt.Errorf("OIDC discovery document missing jwks_uri")
	}
	return doc.JWKSURI, nil
}
