package sourcing

import "github.com/ryanuber/go-glob"

// matchesCluster implements spec.md §3's MatchedView rule: an instance
// matches a requesting node's cluster if service_clusters contains an exact
// match, or either side is "*". Grounded in dhiaayachi-consul's use of
// ryanuber/go-glob for the same "wildcard on either side" service-name
// matching ACLs and service discovery rely on.
func matchesCluster(serviceClusters []string, nodeCluster string) bool {
	for _, sc := range serviceClusters {
		if sc == "*" || nodeCluster == "*" {
			return true
		}
		if glob.Glob(sc, nodeCluster) || glob.Glob(nodeCluster, sc) {
			return true
		}
	}
	return false
}
