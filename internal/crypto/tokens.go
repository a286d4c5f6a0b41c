package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TokenAuthority derives and verifies API bearer token digests. The server
// configuration stores only hex HMAC-SHA256 digests of tokens under a shared
// secret, so raw credentials never appear in config files or logs.
type TokenAuthority struct {
	secret []byte
}

// NewTokenAuthority creates a TokenAuthority from the shared secret.
func NewTokenAuthority(secret string) *TokenAuthority {
	return &TokenAuthority{secret: []byte(secret)}
}

// Digest returns the hex-encoded HMAC-SHA256 digest of token. Operators run
// this (via the hash-token CLI command) to produce config entries.
func (a *TokenAuthority) Digest(token string) string {
	return hmacSHA256Hex(a.secret, token)
}

// Match reports whether token's digest equals the stored hex digest. The
// comparison is constant time.
func (a *TokenAuthority) Match(token, storedHex string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(token))
	return hmac.Equal(mac.Sum(nil), stored)
}

// Fingerprint returns a short digest prefix for log correlation. It is not
// a verifier; use Match for authentication.
func (a *TokenAuthority) Fingerprint(token string) string {
	d := a.Digest(token)
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// String returns a redacted representation suitable for logging.
func (a *TokenAuthority) String() string {
	return fmt.Sprintf("TokenAuthority{secret=%d bytes}", len(a.secret))
}

// hmacSHA256Hex computes HMAC-SHA256 of message using key and returns the
// result as a hex-encoded string.
func hmacSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
