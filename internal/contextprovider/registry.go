package contextprovider

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/sovereign-xds/sovereign/internal/sourcing"
)

// Registry is the ordered, configured name -> provider mapping of spec.md
// §4.3.
type Registry struct {
	log       *slog.Logger
	ordered   []Provider
}

func NewRegistry(log *slog.Logger, providers []Provider) *Registry {
	return &Registry{log: log, ordered: providers}
}

// SafeContext composes the registered providers into a single mapping for
// one request, per spec.md §4.3.
//
// templateSource, if non-empty, is the raw source text of the template about
// to be rendered. When present, only providers whose name appears as a
// substring of the template source are evaluated — SPEC_FULL.md's clarified
// open question #2's "cheap detection" rule. When absent (native templates,
// which have no source text to scan) every provider is always evaluated.
//
// A provider that panics or returns an error is logged and its key omitted;
// it never fails the request.
func (r *Registry) SafeContext(ctx context.Context, matched []sourcing.Instance, req Request, templateSource string) map[string]any {
	out := make(map[string]any, len(r.ordered)+4)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, p := range r.ordered {
		if templateSource != "" && !strings.Contains(templateSource, p.Name()) {
			continue
		}
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("context provider panicked, omitting key", "provider", p.Name(), "recover", rec)
				}
			}()
			v, err := p.Value(ctx, matched, req)
			if err != nil {
				r.log.Error("context provider failed, omitting key", "provider", p.Name(), "error", err)
				return
			}
			mu.Lock()
			out[p.Name()] = v
			mu.Unlock()
		}()
	}
	wg.Wait()

	out[KeyDiscoveryRequest] = req
	out[KeyHostHeader] = req.HostHeader
	out[KeyResourceNames] = req.Resources
	out[KeyInstances] = matched
	return out
}
