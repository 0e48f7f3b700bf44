// Package sourcing implements spec.md §4.1's source aggregator: a
// process-wide, read-mostly aggregate of instance records drawn from all
// configured sources, refreshed on a timer and queried per-request via
// Match.
package sourcing

// Endpoint is one upstream address of an Instance.
type Endpoint struct {
	Address string         `yaml:"address" json:"address"`
	Port    int             `yaml:"port" json:"port"`
	Region  string          `yaml:"region,omitempty" json:"region,omitempty"`
	Extra   map[string]any `yaml:"-" json:"-"`
}

// Instance is a single backend record as described by spec.md §3: a mapping
// with at least a name (or cluster_name), optionally service_clusters,
// domains, and endpoints. Operator-registered source variants may attach
// arbitrary additional fields in Extra; the core only ever reads the named
// fields below.
type Instance struct {
	Name            string     `yaml:"name,omitempty" json:"name,omitempty"`
	ClusterName     string     `yaml:"cluster_name,omitempty" json:"cluster_name,omitempty"`
	ServiceClusters []string   `yaml:"service_clusters,omitempty" json:"service_clusters,omitempty"`
	Domains         []string   `yaml:"domains,omitempty" json:"domains,omitempty"`
	Endpoints       []Endpoint `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`

	// Extra carries any source-specific fields not modeled above, so that
	// modifications and templates can still see them.
	Extra map[string]any `yaml:"-" json:"-"`
}

// ResourceName implements the "resource_name(x)" rule from spec.md §3: the
// name if present, else the cluster_name.
func (i Instance) ResourceName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ClusterName
}

// Clone returns a deep-enough copy of i safe to hand to a modification
// transform or a template without risking the aggregate being mutated
// out from under a concurrent reader.
func (i Instance) Clone() Instance {
	out := i
	out.ServiceClusters = append([]string(nil), i.ServiceClusters...)
	out.Domains = append([]string(nil), i.Domains...)
	out.Endpoints = append([]Endpoint(nil), i.Endpoints...)
	if i.Extra != nil {
		out.Extra = make(map[string]any, len(i.Extra))
		for k, v := range i.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
