package auth

import (
	"bytes"
	"encoding/json"
	"testing"
)

func mintToken(t *testing.T, kr *KeyRing, payload map[string]any) string {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	token, err := kr.Encrypt(b, bytes.Repeat([]byte{0x07}, ivSize))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return token
}

func TestAuthenticator_DisabledAlwaysSucceeds(t *testing.T) {
	a := New(false, "auth_token", nil, nil)
	payload, err := a.Authenticate(map[string]any{"anything": "goes"})
	if err != nil {
		t.Fatalf("expected disabled auth to always succeed, got %v", err)
	}
	if payload != nil {
		t.Fatalf("expected nil payload when auth is disabled, got %v", payload)
	}
}

func TestAuthenticator_Success(t *testing.T) {
	kr, err := NewKeyRing([][]byte{testKey(1)})
	if err != nil {
		t.Fatalf("NewKeyRing: %v", err)
	}
	a := New(true, "auth_token", kr, PayloadRules{"tenant": "required"})
	token := mintToken(t, kr, map[string]any{"tenant": "acme"})

	payload, err := a.Authenticate(map[string]any{"auth_token": token})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if payload["tenant"] != "acme" {
		t.Fatalf("got %v", payload)
	}
}

func TestAuthenticator_MissingMetadataKey(t *testing.T) {
	kr, _ := NewKeyRing([][]byte{testKey(1)})
	a := New(true, "auth_token", kr, nil)
	if _, err := a.Authenticate(map[string]any{}); err == nil {
		t.Fatal("expected an error when the configured metadata key is absent")
	}
}

func TestAuthenticator_FailsPredicate(t *testing.T) {
	kr, _ := NewKeyRing([][]byte{testKey(1)})
	a := New(true, "auth_token", kr, PayloadRules{"tenant": "required"})
	token := mintToken(t, kr, map[string]any{"other_field": "value"})

	if _, err := a.Authenticate(map[string]any{"auth_token": token}); err == nil {
		t.Fatal("expected an error when the payload fails the configured predicate")
	}
}

func TestAuthenticator_InvalidToken(t *testing.T) {
	kr, _ := NewKeyRing([][]byte{testKey(1)})
	a := New(true, "auth_token", kr, nil)
	if _, err := a.Authenticate(map[string]any{"auth_token": "garbage"}); err == nil {
		t.Fatal("expected an error for an undecryptable token")
	}
}
