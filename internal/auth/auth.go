package auth

import (
	"encoding/json"
	"fmt"
)

// Authenticator implements spec.md §4.5: extract an opaque token from
// node.metadata under a configured key, decrypt it with a KeyRing, and
// require the plaintext to parse as a mapping whose fields satisfy
// operator-configured predicates.
type Authenticator struct {
	enabled    bool
	payloadKey string
	keys       *KeyRing
	rules      PayloadRules
}

// New builds an Authenticator. When enabled is false, Authenticate always
// succeeds — spec.md §6's auth_enabled toggle.
func New(enabled bool, payloadKey string, keys *KeyRing, rules PayloadRules) *Authenticator {
	return &Authenticator{enabled: enabled, payloadKey: payloadKey, keys: keys, rules: rules}
}

// Authenticate validates metadata (a discovery request's node.metadata map)
// and returns the decrypted payload on success. spec.md §4.5: "Auth MUST run
// before any source/template work on the request path" — callers must
// invoke this before touching the aggregator or template registry.
func (a *Authenticator) Authenticate(metadata map[string]any) (map[string]any, error) {
	if !a.enabled {
		return nil, nil
	}

	raw, ok := metadata[a.payloadKey]
	if !ok {
		return nil, fmt.Errorf("%w: metadata missing key %q", ErrInvalidToken, a.payloadKey)
	}
	token, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: metadata key %q is not a string", ErrInvalidToken, a.payloadKey)
	}

	plaintext, err := a.keys.Decrypt(token)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("%w: decrypted payload is not a JSON object", ErrInvalidToken)
	}

	if err := Check(payload, a.rules); err != nil {
		return nil, err
	}
	return payload, nil
}
