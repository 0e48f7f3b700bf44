package xdstemplate

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAMLDocument implements spec.md §4.4 step 4's deserialization of a
// text template's rendered bytes: "parse the bytes as a YAML-compatible
// document." The top-level document is expected to have a "resources" key
// holding a sequence of resource mappings, matching the reference
// implementation's discovery.py (yaml.safe_load(content), then
// content['resources']).
//
// A parse error is returned as-is; the caller (internal/discovery's
// orchestrator) is responsible for attaching it to an
// apperror.ConfigDeserializeError and logging its detail without leaking it
// to the client, per spec.md §7.
func ParseYAMLDocument(raw []byte) (*RenderedDocument, error) {
	var top struct {
		Resources []map[string]any `yaml:"resources"`
	}
	if err := yaml.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("parsing rendered template as YAML: %w", err)
	}

	resources := make([]any, len(top.Resources))
	for i, r := range top.Resources {
		resources[i] = r
	}
	return DocumentFromResources(resources)
}
