// Package contextprovider implements spec.md §4.3's context provider
// registry: a configured, ordered mapping of name -> provider, composed into
// the single mapping a template renders against.
package contextprovider

import (
	"context"

	"github.com/sovereign-xds/sovereign/internal/sourcing"
)

// Stable keys injected into every composed context, per spec.md §4.3.
const (
	KeyDiscoveryRequest = "discovery_request"
	KeyHostHeader       = "host_header"
	KeyResourceNames    = "resource_names"
	KeyInstances        = "instances"
)

// Request is the subset of a discovery request a provider needs — narrower
// than the full discovery.Request type to avoid an import cycle between
// internal/discovery and internal/contextprovider (the orchestrator in
// internal/discovery owns both).
type Request struct {
	Cluster      string
	EnvoyVersion string
	Metadata     map[string]any
	Resources    []string
	HostHeader   string
}

// Provider yields one named value, given the currently matched source view
// and the request being served. A provider that errors is logged and its
// key omitted from the composed context — it never fails the request
// (spec.md §4.3).
type Provider interface {
	Name() string
	Value(ctx context.Context, matched []sourcing.Instance, req Request) (any, error)
}

// Func adapts a plain function to the Provider interface.
type Func struct {
	ProviderName string
	Fn           func(ctx context.Context, matched []sourcing.Instance, req Request) (any, error)
}

func (f Func) Name() string { return f.ProviderName }
func (f Func) Value(ctx context.Context, matched []sourcing.Instance, req Request) (any, error) {
	return f.Fn(ctx, matched, req)
}
