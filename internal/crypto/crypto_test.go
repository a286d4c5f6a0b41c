package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testPayload() ExecutionPayload {
	return ExecutionPayload{
		ID:        "a4f2c1e0-0000-0000-0000-000000000001",
		Pool:      "sui-main",
		RouteA:    "cetus-1",
		RouteB:    "turbos-1",
		AmountIn:  100_000,
		Fee:       1_000,
		Profit:    8_341,
		CreatedAt: 1_772_000_000,
	}
}

func TestSignExecutionRecoverRoundtrip(t *testing.T) {
	s, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	sig, err := s.SignExecution(testPayload())
	if err != nil {
		t.Fatalf("SignExecution: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+130 {
		t.Fatalf("signature format = %q (len %d)", sig, len(sig))
	}

	got, err := RecoverSigner(testPayload(), sig)
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
	if got != s.Address() {
		t.Fatalf("recovered %s, want %s", got.Hex(), s.Address().Hex())
	}
}

func TestRecoverSignerDetectsTampering(t *testing.T) {
	s, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	sig, err := s.SignExecution(testPayload())
	if err != nil {
		t.Fatalf("SignExecution: %v", err)
	}

	tampered := testPayload()
	tampered.Profit = 999_999

	got, err := RecoverSigner(tampered, sig)
	if err == nil && got == s.Address() {
		t.Fatal("tampered payload still recovered the signer address")
	}
}

func TestRecoverSignerRejectsMalformedSignature(t *testing.T) {
	if _, err := RecoverSigner(testPayload(), "0xzz"); err == nil {
		t.Fatal("expected error for non-hex signature")
	}
	if _, err := RecoverSigner(testPayload(), "0xdeadbeef"); err == nil {
		t.Fatal("expected error for short signature")
	}
}

func TestNewSignerRejectsInvalidKey(t *testing.T) {
	if _, err := NewSigner("not-hex"); err == nil {
		t.Fatal("expected error for invalid key")
	}
	if _, err := NewSigner(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestTokenAuthorityMatch(t *testing.T) {
	a := NewTokenAuthority("shared-secret")

	digest := a.Digest("tok_live_abc123")
	if len(digest) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(digest))
	}
	if !a.Match("tok_live_abc123", digest) {
		t.Fatal("Match: correct token rejected")
	}
	if a.Match("tok_live_wrong", digest) {
		t.Fatal("Match: wrong token accepted")
	}
	if a.Match("tok_live_abc123", "not-hex!") {
		t.Fatal("Match: malformed stored digest accepted")
	}

	other := NewTokenAuthority("different-secret")
	if other.Match("tok_live_abc123", digest) {
		t.Fatal("Match: digest verified under a different secret")
	}
}

func TestTokenAuthorityFingerprint(t *testing.T) {
	a := NewTokenAuthority("shared-secret")
	fp := a.Fingerprint("tok_live_abc123")
	if len(fp) != 12 {
		t.Fatalf("fingerprint length = %d, want 12", len(fp))
	}
	if !strings.HasPrefix(a.Digest("tok_live_abc123"), fp) {
		t.Fatal("fingerprint is not a digest prefix")
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testPrivateKey, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testPrivateKey {
		t.Fatalf("decrypted key = %q, want %q", got, testPrivateKey)
	}

	if _, err := DecryptKey(blob, "wrong-password"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestEncryptKeyValidation(t *testing.T) {
	if _, err := EncryptKey(testPrivateKey, ""); err == nil {
		t.Fatal("expected error for empty password")
	}
	if _, err := EncryptKey("xyz", "pw"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
	if _, err := EncryptKey("abcd", "pw"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestLoadKeyResolutionOrder(t *testing.T) {
	// Raw key wins and loses its 0x prefix.
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testPrivateKey})
	if err != nil {
		t.Fatalf("LoadKey raw: %v", err)
	}
	if got != testPrivateKey {
		t.Fatalf("LoadKey raw = %q, want %q", got, testPrivateKey)
	}

	// Encrypted file path.
	blob, err := EncryptKey(testPrivateKey, "pw")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "operator.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}
	got, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil {
		t.Fatalf("LoadKey encrypted: %v", err)
	}
	if got != testPrivateKey {
		t.Fatalf("LoadKey encrypted = %q, want %q", got, testPrivateKey)
	}

	// No source configured.
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Fatal("expected error when no key source is configured")
	}
}
