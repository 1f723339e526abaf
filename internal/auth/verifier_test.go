package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// genKey generates a small RSA key for test signing.
func genKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	return key
}

// jwksJSON builds a standard JWKS envelope for the given public keys.
func jwksJSON(t *testing.T, keys map[string]*rsa.PublicKey) []byte {
	t.Helper()
	var doc struct {
		Keys []map[string]string `json:"keys"`
	}
	for kid, pub := range keys {
		doc.Keys = append(doc.Keys, map[string]string{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshaling JWKS: %v", err)
	}
	return data
}

// signToken signs claims with the key, optionally setting a kid header.
func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// jwksServer serves the given document and counts fetches.
func jwksServer(t *testing.T, doc []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)
	return srv, &fetches
}

func fullClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-1",
		"name":  "Test User",
		"email": "user@example.com",
	}
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	key := genKey(t)
	otherKey := genKey(t)
	srv, _ := jwksServer(t, jwksJSON(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey}))

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
		wantID  string
	}{
		{
			name:   "valid token with kid",
			token:  func(t *testing.T) string { return signToken(t, key, "key-1", fullClaims()) },
			wantID: "user-1",
		},
		{
			name:   "valid token without kid falls back to sole key",
			token:  func(t *testing.T) string { return signToken(t, key, "", fullClaims()) },
			wantID: "user-1",
		},
		{
			name: "token without expiry is accepted",
			token: func(t *testing.T) string {
				claims := fullClaims()
				delete(claims, "exp")
				return signToken(t, key, "key-1", claims)
			},
			wantID: "user-1",
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				claims := fullClaims()
				claims["exp"] = time.Now().Add(-time.Hour).Unix()
				return signToken(t, key, "key-1", claims)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "token signed with unknown key",
			token:   func(t *testing.T) string { return signToken(t, otherKey, "key-1", fullClaims()) },
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "garbage token",
			token:   func(t *testing.T) string { return "not.a.token" },
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "empty token",
			token:   func(t *testing.T) string { return "" },
			wantErr: ErrNoCredentials,
		},
		{
			name: "missing sub claim",
			token: func(t *testing.T) string {
				claims := fullClaims()
				delete(claims, "sub")
				return signToken(t, key, "key-1", claims)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "missing name claim",
			token: func(t *testing.T) string {
				claims := fullClaims()
				delete(claims, "name")
				return signToken(t, key, "key-1", claims)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "missing email claim",
			token: func(t *testing.T) string {
				claims := fullClaims()
				delete(claims, "email")
				return signToken(t, key, "key-1", claims)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "empty sub claim",
			token: func(t *testing.T) string {
				claims := fullClaims()
				claims["sub"] = ""
				return signToken(t, key, "key-1", claims)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "symmetric algorithm rejected",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, fullClaims())
				signed, err := tok.SignedString([]byte("secret"))
				if err != nil {
					t.Fatalf("signing token: %v", err)
				}
				return signed
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := NewVerifier(srv.URL, srv.Client(), testLogger())
			ident, err := v.Verify(context.Background(), tt.token(t))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ident.ID != tt.wantID {
				t.Errorf("ident.ID = %q, want %q", ident.ID, tt.wantID)
			}
			if ident.Name == "" || ident.Email == "" {
				t.Errorf("ident = %+v, want all claims mapped", ident)
			}
		})
	}
}

func TestVerifier_FetchesKeysOnce(t *testing.T) {
	t.Parallel()

	key := genKey(t)
	srv, fetches := jwksServer(t, jwksJSON(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey}))
	v := NewVerifier(srv.URL, srv.Client(), testLogger())

	for range 3 {
		if _, err := v.Verify(context.Background(), signToken(t, key, "key-1", fullClaims())); err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
	}

	if got := fetches.Load(); got != 1 {
		t.Errorf("JWKS fetches = %d, want 1", got)
	}
}

func TestVerifier_ConcurrentColdCache(t *testing.T) {
	t.Parallel()

	key := genKey(t)
	doc := jwksJSON(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)

	v := NewVerifier(srv.URL, srv.Client(), testLogger())
	token := signToken(t, key, "key-1", fullClaims())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = v.Verify(context.Background(), token)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Verify() #%d error = %v", i, err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("JWKS fetches = %d, want 1 for concurrent first use", got)
	}
}

func TestVerifier_FetchFailureNotCached(t *testing.T) {
	t.Parallel()

	key := genKey(t)
	doc := jwksJSON(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)

	v := NewVerifier(srv.URL, srv.Client(), testLogger())
	token := signToken(t, key, "key-1", fullClaims())

	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrKeySourceUnavailable) {
		t.Fatalf("first Verify() error = %v, want %v", err, ErrKeySourceUnavailable)
	}
	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("second Verify() error = %v, want success after retry", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("JWKS fetches = %d, want 2", got)
	}
}

func TestVerifier_ResetForcesRefetch(t *testing.T) {
	t.Parallel()

	key := genKey(t)
	srv, fetches := jwksServer(t, jwksJSON(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey}))
	v := NewVerifier(srv.URL, srv.Client(), testLogger())

	token := signToken(t, key, "key-1", fullClaims())
	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	v.Reset()

	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify() after Reset error = %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Errorf("JWKS fetches = %d, want 2 after Reset", got)
	}
}

func TestParseKeySet(t *testing.T) {
	t.Parallel()

	key := genKey(t)
	n := base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes())

	tests := []struct {
		name     string
		doc      string
		wantErr  bool
		wantKeys int
	}{
		{
			name:     "standard envelope",
			doc:      `{"keys":[{"kty":"RSA","kid":"a","n":"` + n + `","e":"` + e + `"}]}`,
			wantKeys: 1,
		},
		{
			name:     "bare single key",
			doc:      `{"kty":"RSA","kid":"a","n":"` + n + `","e":"` + e + `"}`,
			wantKeys: 1,
		},
		{
			name:     "non-RSA keys are skipped",
			doc:      `{"keys":[{"kty":"EC","kid":"ec"},{"kty":"RSA","kid":"a","n":"` + n + `","e":"` + e + `"}]}`,
			wantKeys: 1,
		},
		{
			name:    "only non-RSA keys",
			doc:     `{"keys":[{"kty":"EC","kid":"ec"}]}`,
			wantErr: true,
		},
		{
			name:    "empty document",
			doc:     `{}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			doc:     `<html>`,
			wantErr: true,
		},
		{
			name:    "invalid modulus encoding",
			doc:     `{"keys":[{"kty":"RSA","kid":"a","n":"!!!","e":"` + e + `"}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ks, err := parseKeySet([]byte(tt.doc))
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseKeySet() = nil error, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseKeySet() error = %v", err)
			}
			if len(ks.keys) != tt.wantKeys {
				t.Errorf("len(keys) = %d, want %d", len(ks.keys), tt.wantKeys)
			}
		})
	}
}

func TestKeySetLookup(t *testing.T) {
	t.Parallel()

	k1 := &genKey(t).PublicKey
	k2 := &genKey(t).PublicKey

	single := &keySet{keys: []parsedKey{{kid: "a", key: k1}}}
	multi := &keySet{keys: []parsedKey{{kid: "a", key: k1}, {kid: "b", key: k2}}}

	if got, err := multi.lookup("b"); err != nil || got != k2 {
		t.Errorf("lookup(b) = %v, %v, want key b", got, err)
	}
	if got, err := single.lookup(""); err != nil || got != k1 {
		t.Errorf("lookup on single-key set without kid = %v, %v, want sole key", got, err)
	}
	if _, err := multi.lookup(""); err == nil {
		t.Error("lookup without kid on multi-key set = nil error, want error")
	}
	if _, err := multi.lookup("missing"); err == nil {
		t.Error("lookup(missing) = nil error, want error")
	}
}
