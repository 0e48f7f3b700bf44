package xdstemplate

import (
	"fmt"
	"time"

	clusterpb "github.com/envoyproxy/go-control-plane/envoy/config/cluster/v3"
	corepb "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	endpointpb "github.com/envoyproxy/go-control-plane/envoy/config/endpoint/v3"
	listenerpb "github.com/envoyproxy/go-control-plane/envoy/config/listener/v3"
	routepb "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	routerpb "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/router/v3"
	hcmpb "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	"github.com/envoyproxy/go-control-plane/pkg/wellknown"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/sovereign-xds/sovereign/internal/sourcing"
)

// NativeInstanceSource is the contract a native template needs from its
// render context to reach the matched instance view: spec.md §4.3 says the
// matched source view is "injected under stable keys" into every context,
// and native templates read it the same way context providers and text
// templates do, just without a YAML round-trip.
type NativeInstanceSource func(ctx Context) ([]sourcing.Instance, error)

// nativeTemplate is the "Structured(renderer)" variant of spec.md §9's
// tagged template type. It builds real go-control-plane protobuf messages —
// the same resource types the teacher's SnapshotBuilder assembled for a
// push-based ADS cache — and marshals them with protojson so the discovery
// orchestrator's filter/version-info pipeline can treat every resource
// uniformly regardless of which template variant produced it.
type nativeTemplate struct {
	checksumSeed string
	build        func(ctx Context, instances []sourcing.Instance) ([]proto.Message, error)
	instances    NativeInstanceSource
}

func (t *nativeTemplate) Checksum() string   { return checksum([]byte(t.checksumSeed)) }
func (t *nativeTemplate) IsNativeCode() bool { return true }

func (t *nativeTemplate) RenderBytes(ctx Context) ([]byte, error) {
	return nil, fmt.Errorf("xdstemplate: %s is a native template, not text", t.checksumSeed)
}

func (t *nativeTemplate) RenderDocument(ctx Context) (*RenderedDocument, error) {
	instances, err := t.instances(ctx)
	if err != nil {
		return nil, fmt.Errorf("xdstemplate: native template: %w", err)
	}

	msgs, err := t.build(ctx, instances)
	if err != nil {
		return nil, fmt.Errorf("xdstemplate: native template: %w", err)
	}

	doc := &RenderedDocument{Resources: make([]ResourceEnvelope, 0, len(msgs))}
	marshaler := protojson.MarshalOptions{UseProtoNames: true}
	for _, m := range msgs {
		raw, err := marshaler.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("xdstemplate: native template: marshaling resource: %w", err)
		}
		doc.Resources = append(doc.Resources, ResourceEnvelope{Raw: raw, Name: nameOf(raw)})
	}
	return doc, nil
}

// NewNativeClusterTemplate returns a native template producing one v3
// Cluster per matched instance, STRICT_DNS-discovered against the instance's
// first endpoint — adapted from the teacher's makeCluster, generalized from
// a single-service registry to arbitrary matched instances.
func NewNativeClusterTemplate(instances NativeInstanceSource) Template {
	return &nativeTemplate{
		checksumSeed: "native:clusters:v3",
		instances:    instances,
		build: func(ctx Context, insts []sourcing.Instance) ([]proto.Message, error) {
			out := make([]proto.Message, 0, len(insts))
			for _, inst := range insts {
				if len(inst.Endpoints) == 0 {
					continue
				}
				name := "cluster_" + inst.ResourceName()
				out = append(out, &clusterpb.Cluster{
					Name: name,
					ClusterDiscoveryType: &clusterpb.Cluster_Type{
						Type: clusterpb.Cluster_STRICT_DNS,
					},
					ConnectTimeout: durationpb.New(5 * time.Second),
					LoadAssignment: clusterLoadAssignment(name, inst.Endpoints),
				})
			}
			return out, nil
		},
	}
}

// NewNativeEndpointTemplate returns a native template producing one v3
// ClusterLoadAssignment per matched instance — spec.md's EDS resource type,
// split out from clusters so a CDS-only and an EDS-only discovery request
// can each be served their own resource type.
func NewNativeEndpointTemplate(instances NativeInstanceSource) Template {
	return &nativeTemplate{
		checksumSeed: "native:endpoints:v3",
		instances:    instances,
		build: func(ctx Context, insts []sourcing.Instance) ([]proto.Message, error) {
			out := make([]proto.Message, 0, len(insts))
			for _, inst := range insts {
				if len(inst.Endpoints) == 0 {
					continue
				}
				name := "cluster_" + inst.ResourceName()
				out = append(out, clusterLoadAssignment(name, inst.Endpoints))
			}
			return out, nil
		},
	}
}

// NewNativeRouteTemplate returns a single v3 RouteConfiguration whose virtual
// hosts map each matched instance's domains to its cluster — adapted from
// the teacher's makeVirtualHost/makeRouteConfig.
func NewNativeRouteTemplate(routeConfigName string, instances NativeInstanceSource) Template {
	return &nativeTemplate{
		checksumSeed: "native:routes:v3:" + routeConfigName,
		instances:    instances,
		build: func(ctx Context, insts []sourcing.Instance) ([]proto.Message, error) {
			var vhosts []*routepb.VirtualHost
			for _, inst := range insts {
				if len(inst.Domains) == 0 {
					continue
				}
				clusterName := "cluster_" + inst.ResourceName()
				vhosts = append(vhosts, &routepb.VirtualHost{
					Name:    inst.ResourceName(),
					Domains: inst.Domains,
					Routes: []*routepb.Route{{
						Match: &routepb.RouteMatch{
							PathSpecifier: &routepb.RouteMatch_Prefix{Prefix: "/"},
						},
						Action: &routepb.Route_Route{
							Route: &routepb.RouteAction{
								ClusterSpecifier: &routepb.RouteAction_Cluster{Cluster: clusterName},
							},
						},
					}},
				})
			}
			return []proto.Message{&routepb.RouteConfiguration{
				Name:         routeConfigName,
				VirtualHosts: vhosts,
			}}, nil
		},
	}
}

// NewNativeListenerTemplate returns a single v3 Listener bound to port with
// an HTTP connection manager routed via RDS to routeConfigName — adapted
// from the teacher's makeHTTPListener.
func NewNativeListenerTemplate(name string, port uint32, routeConfigName string) Template {
	return &nativeTemplate{
		checksumSeed: fmt.Sprintf("native:listeners:v3:%s:%d", name, port),
		instances:    func(ctx Context) ([]sourcing.Instance, error) { return nil, nil },
		build: func(ctx Context, _ []sourcing.Instance) ([]proto.Message, error) {
			routerAny, err := anypb.New(&routerpb.Router{})
			if err != nil {
				return nil, fmt.Errorf("marshaling router config: %w", err)
			}

			hcm := &hcmpb.HttpConnectionManager{
				StatPrefix: "ingress_http",
				RouteSpecifier: &hcmpb.HttpConnectionManager_Rds{
					Rds: &hcmpb.Rds{
						ConfigSource: &corepb.ConfigSource{
							ConfigSourceSpecifier: &corepb.ConfigSource_Ads{Ads: &corepb.AggregatedConfigSource{}},
							ResourceApiVersion:    corepb.ApiVersion_V3,
						},
						RouteConfigName: routeConfigName,
					},
				},
				HttpFilters: []*hcmpb.HttpFilter{{
					Name:       wellknown.Router,
					ConfigType: &hcmpb.HttpFilter_TypedConfig{TypedConfig: routerAny},
				}},
			}
			hcmAny, err := anypb.New(hcm)
			if err != nil {
				return nil, fmt.Errorf("marshaling HCM: %w", err)
			}

			return []proto.Message{&listenerpb.Listener{
				Name: name,
				Address: &corepb.Address{
					Address: &corepb.Address_SocketAddress{
						SocketAddress: &corepb.SocketAddress{
							Protocol:      corepb.SocketAddress_TCP,
							Address:       "0.0.0.0",
							PortSpecifier: &corepb.SocketAddress_PortValue{PortValue: port},
						},
					},
				},
				FilterChains: []*listenerpb.FilterChain{{
					Filters: []*listenerpb.Filter{{
						Name:       wellknown.HTTPConnectionManager,
						ConfigType: &listenerpb.Filter_TypedConfig{TypedConfig: hcmAny},
					}},
				}},
			}}, nil
		},
	}
}

func clusterLoadAssignment(clusterName string, endpoints []sourcing.Endpoint) *endpointpb.ClusterLoadAssignment {
	lbEndpoints := make([]*endpointpb.LbEndpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		lbEndpoints = append(lbEndpoints, &endpointpb.LbEndpoint{
			HostIdentifier: &endpointpb.LbEndpoint_Endpoint{
				Endpoint: &endpointpb.Endpoint{
					Address: &corepb.Address{
						Address: &corepb.Address_SocketAddress{
							SocketAddress: &corepb.SocketAddress{
								Protocol:      corepb.SocketAddress_TCP,
								Address:       ep.Address,
								PortSpecifier: &corepb.SocketAddress_PortValue{PortValue: uint32(ep.Port)},
							},
						},
					},
				},
			},
		})
	}
	return &endpointpb.ClusterLoadAssignment{
		ClusterName: clusterName,
		Endpoints: []*endpointpb.LocalityLbEndpoints{{
			LbEndpoints: lbEndpoints,
		}},
	}
}
