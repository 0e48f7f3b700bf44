package auth

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PayloadRules expresses spec.md §4.5's "the plaintext must parse as a
// mapping whose fields satisfy operator-configured predicates" as
// go-playground/validator tag strings keyed by payload field name, e.g.
// {"expires_at": "required", "tenant": "required,oneof=prod staging"}.
type PayloadRules map[string]string

var validate = validator.New()

// Check validates payload (the decrypted, JSON-decoded auth token body)
// against rules. Each configured field is checked independently via
// validator.Var so operators can configure predicates without declaring a
// Go struct — the payload shape is only known at configuration time.
func Check(payload map[string]any, rules PayloadRules) error {
	for field, tag := range rules {
		val, present := payload[field]
		if !present {
			val = nil
		}
		if err := validate.Var(val, tag); err != nil {
			return fmt.Errorf("auth: payload field %q failed validation %q: %w", field, tag, err)
		}
	}
	return nil
}
