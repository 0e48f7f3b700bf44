package xdstemplate

import (
	"encoding/json"
	"testing"

	"github.com/sovereign-xds/sovereign/internal/sourcing"
)

func instancesOf(insts ...sourcing.Instance) NativeInstanceSource {
	return func(ctx Context) ([]sourcing.Instance, error) { return insts, nil }
}

func TestNativeClusterTemplate_RendersOnePerInstance(t *testing.T) {
	tmpl := NewNativeClusterTemplate(instancesOf(
		sourcing.Instance{Name: "t1", Endpoints: []sourcing.Endpoint{{Address: "10.0.0.1", Port: 80}}},
		sourcing.Instance{Name: "no-endpoints"},
	))
	if !tmpl.IsNativeCode() {
		t.Fatal("native template must report IsNativeCode")
	}

	doc, err := tmpl.RenderDocument(Context{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if len(doc.Resources) != 1 {
		t.Fatalf("expected instances without endpoints to be skipped, got %d resources", len(doc.Resources))
	}

	var probe struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(doc.Resources[0].Raw, &probe); err != nil {
		t.Fatalf("unmarshaling rendered resource: %v", err)
	}
	if probe.Name != "cluster_t1" {
		t.Fatalf("got cluster name %q, want cluster_t1", probe.Name)
	}
}

func TestNativeRouteTemplate_VirtualHostsPerDomain(t *testing.T) {
	tmpl := NewNativeRouteTemplate("default", instancesOf(
		sourcing.Instance{Name: "t1", Domains: []string{"t1.example.com"}},
	))
	doc, err := tmpl.RenderDocument(Context{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if len(doc.Resources) != 1 {
		t.Fatalf("expected one RouteConfiguration resource, got %d", len(doc.Resources))
	}

	var probe struct {
		VirtualHosts []struct {
			Domains []string `json:"domains"`
		} `json:"virtual_hosts"`
	}
	if err := json.Unmarshal(doc.Resources[0].Raw, &probe); err != nil {
		t.Fatalf("unmarshaling: %v", err)
	}
	if len(probe.VirtualHosts) != 1 || probe.VirtualHosts[0].Domains[0] != "t1.example.com" {
		t.Fatalf("got %+v", probe.VirtualHosts)
	}
}

func TestNativeListenerTemplate_Renders(t *testing.T) {
	tmpl := NewNativeListenerTemplate("default", 10000, "default")
	doc, err := tmpl.RenderDocument(Context{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if len(doc.Resources) != 1 || doc.Resources[0].Name != "default" {
		t.Fatalf("got %+v", doc.Resources)
	}
}

func TestNativeTemplate_RenderBytesUnsupported(t *testing.T) {
	tmpl := NewNativeClusterTemplate(instancesOf())
	if _, err := tmpl.RenderBytes(Context{}); err == nil {
		t.Fatal("expected an error: native templates don't support RenderBytes")
	}
}

func TestNativeTemplate_ChecksumDistinguishesResourceKind(t *testing.T) {
	clusters := NewNativeClusterTemplate(instancesOf())
	endpoints := NewNativeEndpointTemplate(instancesOf())
	if clusters.Checksum() == endpoints.Checksum() {
		t.Fatal("expected distinct checksums for distinct native template kinds")
	}
}
