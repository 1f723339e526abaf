// Package auth verifies bearer tokens issued by an external OIDC provider.
//
// The provider's public signing keys are fetched from its JWKS endpoint on
// first use and cached for the lifetime of the process. A failed fetch is
// never cached: the next verification retries it. Tokens are validated for
// signature and structure only — the audience claim is deliberately ignored
// because the provider issues tokens for multiple audiences.
package auth

import (
	"errors"
)

// Sentinel errors for token verification.
// Handlers map these onto HTTP outcomes: ErrNoCredentials and
// ErrInvalidCredentials become 401, ErrKeySourceUnavailable becomes 503.
var (
	// ErrNoCredentials is returned when no bearer token was presented.
	ErrNoCredentials = errors.New("no credentials provided")
	// ErrInvalidCredentials is returned for malformed, expired or wrongly
	// signed tokens, and for tokens whose claims cannot form an Identity.
	ErrInvalidCredentials = errors.New("could not validate credentials")
	// ErrKeySourceUnavailable is returned when the JWKS endpoint cannot be
	// fetched. This is a dependency outage, not a bad credential.
	ErrKeySourceUnavailable = errors.New("signing key source unavailable")
)

// Identity is the verified caller identity derived from token claims.
// It exists only for the lifetime of one request and is never persisted.
type Identity struct {
	ID    string // "sub" claim
	Name  string // "name" claim
	Email string // "email" claim
}
