// Package discovery implements spec.md §4.4's discovery orchestrator: given
// a request and an xds_type, it resolves a template, builds a context,
// applies the configured cache strategy, renders, filters, and returns a
// sentinel-typed result (NotModified / Empty / Document) — spec.md §9's
// resolution of the "two discovery view implementations" open question.
package discovery

import "encoding/json"

// Node is an Envoy client identity, per spec.md §3.
type Node struct {
	Cluster      string         `json:"cluster"`
	BuildVersion string         `json:"build_version"`
	Metadata     map[string]any `json:"metadata"`
}

// Common projects Node down to the fields used for stable fingerprinting
// under the "context" cache strategy — everything except volatile fields
// (metadata, which may carry per-connection auth material or ephemeral
// values the caller doesn't want to bust the cache on).
type Common struct {
	Cluster      string `json:"cluster"`
	BuildVersion string `json:"build_version"`
}

// Request is spec.md §3's DiscoveryRequest.
type Request struct {
	VersionInfo string   `json:"version_info"`
	Node        Node     `json:"node"`
	Resources   []string `json:"resources"`

	// TypeURL is filled in by the server from (api_version, xds_type), not
	// supplied by the client.
	TypeURL string `json:"-"`

	// DesiredControlPlane echoes the Host header of the incoming HTTP
	// request.
	DesiredControlPlane string `json:"-"`
}

// Common returns the stable projection of Node used by the "context" cache
// strategy's fingerprint.
func (r Request) Common() Common {
	return Common{Cluster: r.Node.Cluster, BuildVersion: r.Node.BuildVersion}
}

// EnvoyVersion parses node.build_version into its Envoy release version,
// e.g. "<hash>/1.18.3/Clean/RELEASE/BoringSSL" -> "1.18.3" — grounded in
// the reference implementation's DiscoveryRequest.envoy_version property
// (SPEC_FULL.md's supplemented-feature #1). An unparseable build_version
// yields "", which only ever longest-prefix-matches the template registry's
// mandatory "default" group.
func (r Request) EnvoyVersion() string {
	return parseEnvoyVersion(r.Node.BuildVersion)
}

func parseEnvoyVersion(buildVersion string) string {
	parts := splitSlash(buildVersion)
	if len(parts) < 2 {
		return ""
	}
	version := parts[1]
	if !looksLikeVersion(version) {
		return ""
	}
	return version
}

func splitSlash(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func looksLikeVersion(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return dots >= 1
}

// MatchValue returns the node field named by key, used by the aggregator's
// node-matching step (spec.md §6's configurable source_match_key, default
// "cluster"). An empty key or the literal "cluster" reads node.cluster;
// anything else is looked up in node.metadata.
func (r Request) MatchValue(key string) string {
	if key == "" || key == "cluster" {
		return r.Node.Cluster
	}
	if v, ok := r.Node.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// IPv4 returns node.metadata["ipv4"] if present, else "".
func (r Request) IPv4() string {
	if v, ok := r.Node.Metadata["ipv4"].(string); ok {
		return v
	}
	return ""
}

// MarshalCanonical renders r to JSON for fingerprinting inputs that include
// the whole request shape (used by the "none" strategy's "fresh value"
// requirement and by tests).
func (r Request) MarshalCanonical() ([]byte, error) {
	return json.Marshal(r)
}
