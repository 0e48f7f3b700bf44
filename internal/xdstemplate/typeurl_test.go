package xdstemplate

import "testing"

func TestTypeURL_KnownPairs(t *testing.T) {
	url, ok := TypeURL("v2", "endpoints")
	if !ok || url != "type.googleapis.com/envoy.api.v2.ClusterLoadAssignment" {
		t.Fatalf("got (%q, %v)", url, ok)
	}
}

func TestTypeURL_V3HasNoEndpointsOrSecrets(t *testing.T) {
	if _, ok := TypeURL("v3", "endpoints"); ok {
		t.Fatal("v3 must not resolve an endpoints type_url per spec.md §6's table")
	}
	if _, ok := TypeURL("v3", "secrets"); ok {
		t.Fatal("v3 must not resolve a secrets type_url per spec.md §6's table")
	}
}

func TestTypeURL_UnknownApiVersion(t *testing.T) {
	if _, ok := TypeURL("v1", "clusters"); ok {
		t.Fatal("expected an unknown api_version to resolve to ok=false")
	}
}
