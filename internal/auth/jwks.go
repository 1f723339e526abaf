package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// jwk is a single JSON Web Key. Only RSA public key members are used.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// keySet holds the parsed RSA public keys from a JWKS document.
type keySet struct {
	keys []parsedKey
}

type parsedKey struct {
	kid string
	key *rsa.PublicKey
}

// parseKeySet decodes a JWKS document into usable RSA public keys.
// Accepts both the standard {"keys": [...]} envelope and a bare single-key
// object, matching what permissive JOSE implementations take as key input.
// Non-RSA entries are skipped; a document yielding no usable keys is an error.
func parseKeySet(data []byte) (*keySet, error) {
	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding JWKS document: %w", err)
	}

	candidates := doc.Keys
	if len(candidates) == 0 {
		var single jwk
		if err := json.Unmarshal(data, &single); err == nil && single.Kty != "" {
			candidates = []jwk{single}
		}
	}

	ks := &keySet{}
	for _, k := range candidates {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKey(k)
		if err != nil {
			return nil, fmt.Errorf("parsing JWK %q: %w", k.Kid, err)
		}
		ks.keys = append(ks.keys, parsedKey{kid: k.Kid, key: pub})
	}

	if len(ks.keys) == 0 {
		return nil, fmt.Errorf("JWKS document contains no usable RSA keys")
	}
	return ks, nil
}

// lookup selects the verification key for a token.
// A kid match wins; without a usable kid the sole key of a single-key set is
// used, mirroring providers that serve one unnamed key.
func (ks *keySet) lookup(kid string) (*rsa.PublicKey, error) {
	if kid != "" {
		for _, k := range ks.keys {
			if k.kid == kid {
				return k.key, nil
			}
		}
	}
	if len(ks.keys) == 1 {
		return ks.keys[0].key, nil
	}
	return nil, fmt.Errorf("no key found for kid %q", kid)
}

// rsaPublicKey builds an *rsa.PublicKey from base64url-encoded modulus and exponent.
func rsaPublicKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("exponent out of range")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
