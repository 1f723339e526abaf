package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// discoveryTimeout bounds the OIDC discovery fetch at startup.
const discoveryTimeout = 10 * time.Second

// oidcConfiguration is the subset of the OIDC discovery document we use.
type oidcConfiguration struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// DiscoverAuth fills the auth endpoints from the provider's OIDC discovery
// document. Explicitly configured endpoints are left untouched; only empty
// ones are populated. No-op when no discovery URL is configured.
func (c *Config) DiscoverAuth(ctx context.Context, client *http.Client) error {
	if c.Auth.OpenIDConfigurationURL == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Auth.OpenIDConfigurationURL, nil)
	if err != nil {
		return fmt.Errorf("building discovery request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching OIDC configuration: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching OIDC configuration: unexpected status %d", resp.StatusCode)
	}

	var doc oidcConfiguration
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decoding OIDC configuration: %w", err)
	}

	if c.Auth.AuthorizationEndpoint == "" {
		c.Auth.AuthorizationEndpoint = doc.AuthorizationEndpoint
	}
	if c.Auth.TokenEndpoint == "" {
		c.Auth.TokenEndpoint = doc.TokenEndpoint
	}
	if c.Auth.JWKSURI == "" {
		c.Auth.JWKSURI = doc.JWKSURI
	}

	return nil
}
