package xdstemplate

import (
	"fmt"
	"strings"
)

// Registry holds templates indexed by (envoy_version_selector, xds_type), as
// described by spec.md §4.2. The selector resolves an Envoy build version to
// the best-matching group by longest-prefix match over configured version
// keys, always falling back to the mandatory "default" group.
type Registry struct {
	groups map[string]map[string]Template // envoy_version_selector -> xds_type -> Template
	// closedTypes is the set of xds_type names the router validates incoming
	// type path parameters against, computed once at load from the union of
	// every configured group (spec.md §4.2's "__any__" set).
	closedTypes map[string]bool
}

// NewRegistry builds a Registry from a fully-resolved set of groups. The
// caller (wiring code in cmd/sovereign) is responsible for turning
// config.Config.Templates' Loadables into concrete Template values before
// calling this constructor — template loading itself happens once, at
// startup, per spec.md §3.
func NewRegistry(groups map[string]map[string]Template) (*Registry, error) {
	if _, ok := groups["default"]; !ok {
		return nil, fmt.Errorf("xdstemplate: registry requires a %q group", "default")
	}

	closed := make(map[string]bool)
	for _, group := range groups {
		for xdsType := range group {
			closed[xdsType] = true
		}
	}

	return &Registry{groups: groups, closedTypes: closed}, nil
}

// IsKnownType reports whether xdsType is in the closed set derived from the
// configured templates — used by the HTTP router to 404 unknown types
// before auth runs (spec.md §4.2: "the server must not reveal auth behavior
// for invalid types").
func (r *Registry) IsKnownType(xdsType string) bool {
	return r.closedTypes[xdsType]
}

// Select resolves the best template group for envoyVersion by longest
// configured-key prefix match, falling back to "default" if no configured
// key is a prefix of envoyVersion (including when envoyVersion is empty,
// e.g. an unparseable build_version — see SPEC_FULL.md's ParseEnvoyVersion
// note).
func (r *Registry) Select(envoyVersion, xdsType string) (Template, error) {
	group := r.groups["default"]
	bestLen := -1

	for key, candidate := range r.groups {
		if key == "default" || key == "__any__" {
			continue
		}
		if strings.HasPrefix(envoyVersion, key) && len(key) > bestLen {
			group = candidate
			bestLen = len(key)
		}
	}

	tmpl, ok := group[xdsType]
	if !ok {
		return nil, fmt.Errorf("xdstemplate: no template for xds_type %q in selected group", xdsType)
	}
	return tmpl, nil
}
