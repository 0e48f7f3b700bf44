package sourcing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func init() {
	RegisterFactory("service_broker", newServiceBrokerSource)
}

// ServiceBrokerSource pulls instances from an HTTP endpoint on every Get —
// spec.md §3's "service_broker (HTTP pull)" variant.
type ServiceBrokerSource struct {
	url    string
	client *http.Client
}

func newServiceBrokerSource(cfg map[string]any) (Source, error) {
	raw, ok := cfg["url"]
	if !ok {
		return nil, fmt.Errorf("sourcing: service_broker config missing required key %q", "url")
	}
	url, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("sourcing: service_broker %q must be a string", "url")
	}
	timeout := 10 * time.Second
	if t, ok := cfg["timeout_seconds"].(int); ok {
		timeout = time.Duration(t) * time.Second
	}
	return &ServiceBrokerSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *ServiceBrokerSource) Get(ctx context.Context) ([]Instance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("sourcing: service_broker: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sourcing: service_broker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sourcing: service_broker: %s returned status %d", s.url, resp.StatusCode)
	}

	var doc struct {
		Instances []Instance `json:"instances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("sourcing: service_broker: decoding response from %s: %w", s.url, err)
	}
	return doc.Instances, nil
}
