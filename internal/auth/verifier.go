package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a single JWKS fetch.
const fetchTimeout = 10 * time.Second

// rsaMethods are the accepted token signing algorithms.
var rsaMethods = []string{"RS256", "RS384", "RS512"}

// Verifier validates bearer tokens against the provider's JWKS endpoint.
//
// Verifier is safe for concurrent use by multiple goroutines. The key set is
// fetched lazily on first use and replaced atomically on success only; a
// fetch failure leaves the cache empty so the next request retries.
type Verifier struct {
	jwksURI string
	client  *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	keys  *keySet // nil until the first successful fetch
	group singleflight.Group
}

// NewVerifier creates a token verifier for the given JWKS endpoint.
// client and logger may be nil, in which case defaults are used.
func NewVerifier(jwksURI string, client *http.Client, logger *slog.Logger) *Verifier {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		jwksURI: jwksURI,
		client:  client,
		logger:  logger,
	}
}

// Verify checks the token signature and structure and maps its claims to an
// Identity. The audience claim is not validated; expiry and not-before are
// honored when present.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}

	ks, err := v.keySet(ctx)
	if err != nil {
		v.logger.Error("loading signing keys", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrKeySourceUnavailable, err)
	}

	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return ks.lookup(kid)
		},
		jwt.WithValidMethods(rsaMethods),
	)
	if err != nil {
		v.logger.Warn("failed to decode auth token", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	ident, err := identityFromClaims(parsed.Claims)
	if err != nil {
		v.logger.Error("auth token contains incompatible claims", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	return ident, nil
}

// Reset drops the cached key set, forcing a re-fetch on the next Verify.
// Exposed for tests and operational key-rotation hooks.
func (v *Verifier) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = nil
}

// keySet returns the cached key set, fetching it on first use.
// The cache lock is never held across the fetch; concurrent cold-cache
// requests are collapsed into a single GET via singleflight, and the result
// is stored only on success so the next request retries after a failure.
func (v *Verifier) keySet(ctx context.Context) (*keySet, error) {
	v.mu.RLock()
	ks := v.keys
	v.mu.RUnlock()
	if ks != nil {
		return ks, nil
	}

	result, err, _ := v.group.Do("jwks", func() (any, error) {
		v.mu.RLock()
		cached := v.keys
		v.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		v.logger.Info("loading public keys", "jwks_uri", v.jwksURI)

		fetched, err := v.fetchKeySet(ctx)
		if err != nil {
			return nil, err
		}

		v.mu.Lock()
		v.keys = fetched
		v.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*keySet), nil
}

func (v *Verifier) fetchKeySet(ctx context.Context) (*keySet, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURI, nil)
	if err != nil {
		return nil, fmt.Errorf("building JWKS request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching JWKS: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading JWKS response: %w", err)
	}

	return parseKeySet(body)
}

// identityFromClaims maps the required claims onto an Identity.
// A structurally valid signature with incompatible claims is still a
// rejection, not a server error.
func identityFromClaims(claims jwt.Claims) (*Identity, error) {
	m, ok := claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", claims)
	}

	sub, ok := m["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing required claim %q", "sub")
	}
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("missing required claim %q", "name")
	}
	email, ok := m["email"].(string)
	if !ok || email == "" {
		return nil, fmt.Errorf("missing required claim %q", "email")
	}

	return &Identity{ID: sub, Name: name, Email: email}, nil
}
