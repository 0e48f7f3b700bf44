// Docker-label-based service discovery, adapted from an event-driven
// Docker-socket watcher into a pull Source: spec.md §3 allows "any
// operator-registered variant conforming to the source capability set", and
// a labeled-container inventory is a natural one to offer alongside
// inline/file/service_broker.
package sourcing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
)

func init() {
	RegisterFactory("docker", newDockerSource)
}

// Label keys the source looks for on containers.
const (
	dockerLabelEnable  = "sovereign.enable"
	dockerLabelCluster = "sovereign.service_clusters" // comma-separated
	dockerLabelDomain  = "sovereign.domain"
	dockerLabelPort    = "sovereign.port"
	dockerLabelName    = "sovereign.name"

	// Docker Compose sets this automatically on every container it manages;
	// used as a fallback name when sovereign.name is absent.
	dockerLabelComposeSvc = "com.docker.compose.service"

	// dockerNetworkHint, if present in a network's name, is preferred when a
	// container is attached to more than one network.
	dockerNetworkHint = "sovereign"
)

// DockerSource lists running containers carrying the sovereign.enable label
// and turns each into an Instance on every Get call.
type DockerSource struct {
	client *dockerclient.Client
}

func newDockerSource(cfg map[string]any) (Source, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("sourcing: docker: connecting to daemon: %w", err)
	}
	return &DockerSource{client: cli}, nil
}

func (s *DockerSource) Get(ctx context.Context) ([]Instance, error) {
	containers, err := s.client.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("sourcing: docker: listing containers: %w", err)
	}

	var instances []Instance
	for _, c := range containers {
		if c.Labels[dockerLabelEnable] != "true" {
			continue
		}
		inst, err := instanceFromLabels(c.Labels, c.ID, c.Names)
		if err != nil {
			// One malformed container's labels don't abort the whole Get;
			// the aggregator's modification pipeline has the same
			// per-item-failure semantics (spec.md §4.1).
			continue
		}
		info, err := s.client.ContainerInspect(ctx, c.ID)
		if err != nil {
			continue
		}
		ip, err := containerIP(info.NetworkSettings.Networks)
		if err != nil {
			continue
		}
		for i := range inst.Endpoints {
			inst.Endpoints[i].Address = ip
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func instanceFromLabels(labels map[string]string, id string, names []string) (Instance, error) {
	domain := labels[dockerLabelDomain]
	if domain == "" {
		return Instance{}, fmt.Errorf("missing required label %q", dockerLabelDomain)
	}
	portStr := labels[dockerLabelPort]
	if portStr == "" {
		return Instance{}, fmt.Errorf("missing required label %q", dockerLabelPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Instance{}, fmt.Errorf("invalid label %q=%q: %w", dockerLabelPort, portStr, err)
	}

	name := labels[dockerLabelName]
	if name == "" {
		name = labels[dockerLabelComposeSvc]
	}
	if name == "" && len(names) > 0 {
		name = strings.TrimPrefix(names[0], "/")
	}
	if name == "" {
		name = shortID(id)
	}

	var clusters []string
	if raw := labels[dockerLabelCluster]; raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				clusters = append(clusters, c)
			}
		}
	}

	return Instance{
		Name:            name,
		ServiceClusters: clusters,
		Domains:         []string{domain},
		Endpoints:       []Endpoint{{Port: port}},
	}, nil
}

// containerIP picks the best address among a container's attached networks:
// the dedicated sovereign mesh network if present, else the first network
// with a non-empty address.
func containerIP(networks map[string]*network.EndpointSettings) (string, error) {
	if len(networks) == 0 {
		return "", fmt.Errorf("container has no attached networks")
	}

	for name, net := range networks {
		if strings.Contains(strings.ToLower(name), dockerNetworkHint) && net.IPAddress != "" {
			return net.IPAddress, nil
		}
	}
	for _, net := range networks {
		if net.IPAddress != "" {
			return net.IPAddress, nil
		}
	}
	return "", fmt.Errorf("no IP address found in any attached network")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
