package contextprovider

import (
	"context"

	"github.com/sovereign-xds/sovereign/internal/sourcing"
)

// NewStaticProvider wraps a value loaded once at startup from a
// config.Loadable (spec.md §6's `context: mapping name -> Loadable`) into a
// Provider that returns it unchanged on every request. This is the common
// case the reference implementation's operators lean on most: shared
// constants (datacenter name, default TLS settings, feature toggles) that
// don't vary per request — an operator wanting a per-request-computed value
// registers a Go-native Provider directly instead of through configuration.
func NewStaticProvider(name string, value any) Provider {
	return Func{
		ProviderName: name,
		Fn: func(ctx context.Context, matched []sourcing.Instance, req Request) (any, error) {
			return value, nil
		},
	}
}
