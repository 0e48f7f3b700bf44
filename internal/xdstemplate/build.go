package xdstemplate

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sovereign-xds/sovereign/internal/config"
)

// nativeParams is the small YAML document a "native" Loadable's Source
// carries for the xds_types whose builder needs more than the matched
// instance view: spec.md §6's template configuration names only a Loadable
// per (envoy_version, xds_type), so route/listener-specific parameters
// (which route configuration a listener RDS's off of, which port it binds)
// travel as the Loadable's own content rather than as separate config keys.
type nativeParams struct {
	RouteConfigName string `yaml:"route_config_name"`
	ListenerName    string `yaml:"listener_name"`
	Port            uint32 `yaml:"port"`
}

// BuildTemplate resolves one (xds_type, Loadable) pair from
// config.Config.Templates into a concrete Template. loadable.Format ==
// "native" selects one of the go-control-plane-backed builders in
// native.go, keyed by xdsType; any other format builds a TextTemplate from
// the Loadable's raw bytes (spec.md §4.2).
func BuildTemplate(xdsType string, loadable config.Loadable, instances NativeInstanceSource) (Template, error) {
	raw, err := loadable.Load()
	if err != nil {
		return nil, fmt.Errorf("xdstemplate: loading %q template: %w", xdsType, err)
	}

	if loadable.Format != "native" {
		return NewTextTemplate(xdsType, string(raw), nil)
	}

	var params nativeParams
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("xdstemplate: parsing native template params for %q: %w", xdsType, err)
		}
	}

	switch xdsType {
	case "clusters":
		return NewNativeClusterTemplate(instances), nil
	case "endpoints":
		return NewNativeEndpointTemplate(instances), nil
	case "routes", "scoped-routes":
		routeConfigName := params.RouteConfigName
		if routeConfigName == "" {
			routeConfigName = "default"
		}
		return NewNativeRouteTemplate(routeConfigName, instances), nil
	case "listeners":
		listenerName := params.ListenerName
		if listenerName == "" {
			listenerName = "default"
		}
		routeConfigName := params.RouteConfigName
		if routeConfigName == "" {
			routeConfigName = "default"
		}
		return NewNativeListenerTemplate(listenerName, params.Port, routeConfigName), nil
	default:
		return nil, fmt.Errorf("xdstemplate: no native builder for xds_type %q", xdsType)
	}
}

// BuildRegistry resolves every (envoy_version, xds_type) Loadable in groups
// into concrete Templates and constructs a Registry, per spec.md §4.2.
func BuildRegistry(groups map[string]config.TemplateGroup, instances NativeInstanceSource) (*Registry, error) {
	built := make(map[string]map[string]Template, len(groups))
	for envoyVersion, group := range groups {
		builtGroup := make(map[string]Template, len(group))
		for xdsType, loadable := range group {
			tmpl, err := BuildTemplate(xdsType, loadable, instances)
			if err != nil {
				return nil, err
			}
			builtGroup[xdsType] = tmpl
		}
		built[envoyVersion] = builtGroup
	}
	return NewRegistry(built)
}
