package sourcing

import (
	"context"
	"fmt"
)

// Source is the capability set spec.md §3 requires of every source variant,
// built-in or operator-registered: "{init(config), get() -> sequence<instance>}".
type Source interface {
	// Get returns this source's current contribution to the aggregate.
	// A failing Get does not replace the aggregator's last-known-good
	// contribution for this source (spec.md §4.1).
	Get(ctx context.Context) ([]Instance, error)
}

// Factory constructs a Source from its provider-specific configuration blob.
type Factory func(config map[string]any) (Source, error)

// registry is the process-wide map of source type name -> Factory. Built-in
// variants register themselves via RegisterFactory in their package init();
// operators can register additional variants (spec.md §3: "plus any
// operator-registered variant").
var registry = map[string]Factory{}

// RegisterFactory adds a source variant under the given type name. Calling
// RegisterFactory twice for the same name replaces the previous factory —
// used by tests to install fakes.
func RegisterFactory(typeName string, f Factory) {
	registry[typeName] = f
}

// Build resolves a configured SourceSpec's type name to a registered
// Factory and constructs the Source.
func Build(typeName string, config map[string]any) (Source, error) {
	f, ok := registry[typeName]
	if !ok {
		return nil, fmt.Errorf("sourcing: unregistered source type %q", typeName)
	}
	return f(config)
}
