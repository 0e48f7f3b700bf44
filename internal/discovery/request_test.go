package discovery

import "testing"

func TestEnvoyVersion_ParsesFromBuildVersion(t *testing.T) {
	r := Request{Node: Node{BuildVersion: "c5947efe9cba7c958f8c5c0cc214b1ec76f8a2c6/1.18.3/Clean/RELEASE/BoringSSL"}}
	if got := r.EnvoyVersion(); got != "1.18.3" {
		t.Fatalf("got %q, want 1.18.3", got)
	}
}

func TestEnvoyVersion_UnparseableYieldsEmpty(t *testing.T) {
	cases := []string{"", "not-a-build-version", "hash-only", "hash/not-digits"}
	for _, bv := range cases {
		r := Request{Node: Node{BuildVersion: bv}}
		if got := r.EnvoyVersion(); got != "" {
			t.Errorf("BuildVersion %q: got %q, want \"\"", bv, got)
		}
	}
}

func TestMatchValue_DefaultsToCluster(t *testing.T) {
	r := Request{Node: Node{Cluster: "httpbin-proxy"}}
	if got := r.MatchValue(""); got != "httpbin-proxy" {
		t.Fatalf("got %q", got)
	}
	if got := r.MatchValue("cluster"); got != "httpbin-proxy" {
		t.Fatalf("got %q", got)
	}
}

func TestMatchValue_CustomMetadataKey(t *testing.T) {
	r := Request{
		Node: Node{
			Cluster:  "httpbin-proxy",
			Metadata: map[string]any{"region": "us-east-1"},
		},
	}
	if got := r.MatchValue("region"); got != "us-east-1" {
		t.Fatalf("got %q", got)
	}
}

func TestCommon_ProjectsStableFields(t *testing.T) {
	r := Request{
		Node: Node{Cluster: "httpbin-proxy", BuildVersion: "x/1.18.3/y", Metadata: map[string]any{"ipv4": "10.0.0.1"}},
	}
	common := r.Common()
	if common.Cluster != "httpbin-proxy" || common.BuildVersion != "x/1.18.3/y" {
		t.Fatalf("got %+v", common)
	}
}
