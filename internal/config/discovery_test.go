package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscoverAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"issuer": "https://issuer.example.com",
			"authorization_endpoint": "https://issuer.example.com/authorize",
			"token_endpoint": "https://issuer.example.com/token",
			"jwks_uri": "https://issuer.example.com/jwks"
		}`))
	}))
	t.Cleanup(srv.Close)

	t.Run("fills empty endpoints", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{Auth: AuthConfig{OpenIDConfigurationURL: srv.URL}}
		if err := cfg.DiscoverAuth(context.Background(), srv.Client()); err != nil {
			t.Fatalf("DiscoverAuth() error = %v", err)
		}
		if cfg.Auth.JWKSURI != "https://issuer.example.com/jwks" {
			t.Errorf("JWKSURI = %q", cfg.Auth.JWKSURI)
		}
		if cfg.Auth.TokenEndpoint != "https://issuer.example.com/token" {
			t.Errorf("TokenEndpoint = %q", cfg.Auth.TokenEndpoint)
		}
		if cfg.Auth.AuthorizationEndpoint != "https://issuer.example.com/authorize" {
			t.Errorf("AuthorizationEndpoint = %q", cfg.Auth.AuthorizationEndpoint)
		}
	})

	t.Run("explicit endpoints win", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{Auth: AuthConfig{
			OpenIDConfigurationURL: srv.URL,
			JWKSURI:                "https://other.example.com/jwks",
		}}
		if err := cfg.DiscoverAuth(context.Background(), srv.Client()); err != nil {
			t.Fatalf("DiscoverAuth() error = %v", err)
		}
		if cfg.Auth.JWKSURI != "https://other.example.com/jwks" {
			t.Errorf("JWKSURI = %q, want explicit value kept", cfg.Auth.JWKSURI)
		}
	})

	t.Run("no-op without discovery URL", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{}
		if err := cfg.DiscoverAuth(context.Background(), nil); err != nil {
			t.Errorf("DiscoverAuth() error = %v, want nil", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(bad.Close)

		cfg := &Config{Auth: AuthConfig{OpenIDConfigurationURL: bad.URL}}
		if err := cfg.DiscoverAuth(context.Background(), bad.Client()); err == nil {
			t.Error("DiscoverAuth() = nil error, want error")
		}
	})
}
