package xdstemplate

// TypeURL resolves (apiVersion, xdsType) to Envoy's wire type_url, per
// spec.md §6's table. An unknown pair leaves type_url unset rather than
// erroring — spec.md §4.4 step 1: "If unknown for that api_version, continue
// with type_url unset (older api paths)."
func TypeURL(apiVersion, xdsType string) (string, bool) {
	group, ok := typeURLTable[apiVersion]
	if !ok {
		return "", false
	}
	url, ok := group[xdsType]
	return url, ok
}

var typeURLTable = map[string]map[string]string{
	"v2": {
		"listeners":     "type.googleapis.com/envoy.api.v2.Listener",
		"clusters":      "type.googleapis.com/envoy.api.v2.Cluster",
		"endpoints":     "type.googleapis.com/envoy.api.v2.ClusterLoadAssignment",
		"secrets":       "type.googleapis.com/envoy.api.v2.auth.Secret",
		"routes":        "type.googleapis.com/envoy.api.v2.RouteConfiguration",
		"scoped-routes": "type.googleapis.com/envoy.api.v2.ScopedRouteConfiguration",
	},
	"v3": {
		"listeners":     "type.googleapis.com/envoy.config.listener.v3.Listener",
		"clusters":      "type.googleapis.com/envoy.config.cluster.v3.Cluster",
		"routes":        "type.googleapis.com/envoy.config.route.v3.RouteConfiguration",
		"scoped-routes": "type.googleapis.com/envoy.config.route.v3.ScopedRouteConfiguration",
	},
}
