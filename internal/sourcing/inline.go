package sourcing

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

func init() {
	RegisterFactory("inline", newInlineSource)
}

// InlineSource serves a literal list of instances baked directly into the
// configuration. Grounded in test_sources.py's test_inline_source, which
// constructs Inline({'instances': [...]}) and asserts Get() echoes that list
// back unchanged.
type InlineSource struct {
	instances []Instance
}

func newInlineSource(config map[string]any) (Source, error) {
	raw, ok := config["instances"]
	if !ok {
		return nil, fmt.Errorf("sourcing: inline source config missing required key %q", "instances")
	}

	// config values originate from YAML/JSON decoding into map[string]any, so
	// round-trip through yaml to land on our typed Instance struct rather than
	// hand-walking the any tree.
	b, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("sourcing: inline source: %w", err)
	}
	var instances []Instance
	if err := yaml.Unmarshal(b, &instances); err != nil {
		return nil, fmt.Errorf("sourcing: inline source: decoding instances: %w", err)
	}
	return &InlineSource{instances: instances}, nil
}

func (s *InlineSource) Get(ctx context.Context) ([]Instance, error) {
	return s.instances, nil
}
