// Package xdstemplate implements spec.md §4.2's template registry: addressable,
// named renderables keyed by (envoy_version, xds_type), each with a stable
// checksum and a render(context) contract.
package xdstemplate

import "encoding/json"

// Context is the mapping a template is rendered against — produced by
// internal/contextprovider's SafeContext.
type Context = map[string]any

// ResourceEnvelope is one element of a rendered configuration's "resources"
// array. Its Raw bytes are preserved verbatim for the response body (spec.md
// §3: "the raw rendered bytes are preserved to avoid re-serialization
// cost"); Name is extracted once for filtering via resource_name(x).
type ResourceEnvelope struct {
	Raw  json.RawMessage
	Name string
}

// RenderedDocument is a template's output after step 4 of spec.md §4.4
// (deserialized if the template was text, already-structured if native).
type RenderedDocument struct {
	Resources []ResourceEnvelope
}

// Template is the contract spec.md §4.2 describes: a checksum, a native-code
// flag, and a render function that is pure with respect to ctx.
type Template interface {
	// Checksum is a stable, bytes-level fingerprint of the template's source,
	// captured once at load (spec.md §4.2).
	Checksum() string

	// IsNativeCode reports whether Render already returns a structured
	// document (true) or raw bytes requiring a YAML-compatible parse
	// (false) — spec.md §4.2 / §9's "Text(renderer) | Structured(renderer)"
	// tagged variant, modeled here as a bool discriminant on a single
	// interface rather than a runtime type probe.
	IsNativeCode() bool

	// RenderBytes renders to raw bytes. Only valid when IsNativeCode() is
	// false.
	RenderBytes(ctx Context) ([]byte, error)

	// RenderDocument renders directly to a structured document. Only valid
	// when IsNativeCode() is true.
	RenderDocument(ctx Context) (*RenderedDocument, error)
}

func nameOf(raw json.RawMessage) string {
	var probe struct {
		Name        string `json:"name"`
		ClusterName string `json:"cluster_name"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.Name != "" {
		return probe.Name
	}
	return probe.ClusterName
}

// DocumentFromResources builds a RenderedDocument from a slice of arbitrary
// values by marshaling each to JSON and extracting its resource name —
// shared by both the text-template YAML-parse path and native templates
// that assemble generic maps instead of protobuf messages.
func DocumentFromResources(resources []any) (*RenderedDocument, error) {
	doc := &RenderedDocument{Resources: make([]ResourceEnvelope, 0, len(resources))}
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		doc.Resources = append(doc.Resources, ResourceEnvelope{Raw: raw, Name: nameOf(raw)})
	}
	return doc, nil
}
