package discovery

import (
	"context"
	"fmt"

	"github.com/sovereign-xds/sovereign/internal/apperror"
	"github.com/sovereign-xds/sovereign/internal/config"
	"github.com/sovereign-xds/sovereign/internal/contextprovider"
	"github.com/sovereign-xds/sovereign/internal/fingerprint"
	"github.com/sovereign-xds/sovereign/internal/sourcing"
	"github.com/sovereign-xds/sovereign/internal/xdstemplate"
)

// sourceText is implemented by template variants with raw source text to
// scan for context-provider references (xdstemplate.TextTemplate).
type sourceText interface {
	Source() string
}

// Aggregator is the subset of *sourcing.Aggregator the orchestrator needs —
// narrowed to ease testing with a fake.
type Aggregator interface {
	Match(nodeCluster string) []sourcing.Instance
}

// Orchestrator is spec.md §4.4's discovery orchestrator, the heart of the
// core: given (request, xds_type), it resolves a template, builds a
// context, applies the cache strategy, renders, filters, and returns a
// sentinel Result.
type Orchestrator struct {
	aggregator     Aggregator
	templates      *xdstemplate.Registry
	contexts       *contextprovider.Registry
	cacheStrategy  config.CacheStrategy
	sourceMatchKey string
}

func NewOrchestrator(aggregator Aggregator, templates *xdstemplate.Registry, contexts *contextprovider.Registry, cacheStrategy config.CacheStrategy, sourceMatchKey string) *Orchestrator {
	return &Orchestrator{
		aggregator:     aggregator,
		templates:      templates,
		contexts:       contexts,
		cacheStrategy:  cacheStrategy,
		sourceMatchKey: sourceMatchKey,
	}
}

// Discover implements spec.md §4.4 steps 2-6, 8-9. apiVersion/xdsType
// resolve type_url (step 1); the caller (internal/httpapi) has already
// validated xdsType against the template registry's closed set and run
// authentication, per spec.md §4.2 and §4.5.
func (o *Orchestrator) Discover(ctx context.Context, req Request, apiVersion, xdsType string) (Result, error) {
	req.TypeURL, _ = xdstemplate.TypeURL(apiVersion, xdsType)

	tmpl, err := o.templates.Select(req.EnvoyVersion(), xdsType)
	if err != nil {
		return nil, apperror.UnknownXdsType(xdsType)
	}

	matched := o.aggregator.Match(req.MatchValue(o.sourceMatchKey))

	cpReq := contextprovider.Request{
		Cluster:      req.Node.Cluster,
		EnvoyVersion: req.EnvoyVersion(),
		Metadata:     req.Node.Metadata,
		Resources:    req.Resources,
		HostHeader:   req.DesiredControlPlane,
	}

	var templateSource string
	if st, ok := tmpl.(sourceText); ok {
		templateSource = st.Source()
	}
	renderCtx := o.contexts.SafeContext(ctx, matched, cpReq, templateSource)

	priorVersionKnown := req.VersionInfo != "" && req.VersionInfo != "0"

	var versionInfo string
	if o.cacheStrategy == config.CacheStrategyContext {
		versionInfo = fingerprint.Of(renderCtx, tmpl.Checksum(), req.Common(), req.Resources)
		if priorVersionKnown && versionInfo == req.VersionInfo {
			return NotModified{VersionInfo: versionInfo}, nil
		}
	}

	doc, contentBytes, err := render(tmpl, renderCtx)
	if err != nil {
		return nil, err
	}

	switch o.cacheStrategy {
	case config.CacheStrategyContext:
		// versionInfo already computed above from pre-render inputs.
	case config.CacheStrategyContent:
		versionInfo = fingerprint.OfBytes(contentBytes)
		if priorVersionKnown && versionInfo == req.VersionInfo {
			return NotModified{VersionInfo: versionInfo}, nil
		}
	case config.CacheStrategyNone:
		versionInfo = fingerprint.OfBytes(contentBytes)
	default:
		return nil, fmt.Errorf("discovery: unrecognized cache strategy %q", o.cacheStrategy)
	}

	filtered := filterResources(doc.Resources, req.Resources)
	if len(filtered) == 0 {
		return Empty{VersionInfo: versionInfo}, nil
	}
	return Document{VersionInfo: versionInfo, Resources: filtered}, nil
}

// render runs the template's variant-appropriate render path and returns
// both the structured document (for filtering) and a byte representation
// (for the "content"/"none" cache strategies' fingerprint input). For text
// templates contentBytes is the literal rendered bytes, pre-YAML-parse
// (spec.md §4.4 step 3 "content: render first" / step 4 "then parse"). For
// native templates, which have no raw-bytes stage, contentBytes is the
// concatenation of each resource's marshaled JSON — a deterministic,
// documented substitution (SPEC_FULL.md's clarified open questions).
func render(tmpl xdstemplate.Template, renderCtx xdstemplate.Context) (*xdstemplate.RenderedDocument, []byte, error) {
	if tmpl.IsNativeCode() {
		doc, err := tmpl.RenderDocument(renderCtx)
		if err != nil {
			return nil, nil, apperror.TemplateRenderError(err)
		}
		return doc, concatResources(doc), nil
	}

	raw, err := tmpl.RenderBytes(renderCtx)
	if err != nil {
		return nil, nil, apperror.TemplateRenderError(err)
	}
	doc, err := xdstemplate.ParseYAMLDocument(raw)
	if err != nil {
		return nil, nil, apperror.ConfigDeserializeError(err)
	}
	return doc, raw, nil
}

func concatResources(doc *xdstemplate.RenderedDocument) []byte {
	var out []byte
	for _, r := range doc.Resources {
		out = append(out, r.Raw...)
		out = append(out, 0)
	}
	return out
}

// filterResources implements spec.md §3's resource_name filtering rule:
// empty requested means keep all; otherwise keep only resources whose name
// is in requested.
func filterResources(resources []xdstemplate.ResourceEnvelope, requested []string) []xdstemplate.ResourceEnvelope {
	if len(requested) == 0 {
		return resources
	}
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[r] = true
	}
	out := make([]xdstemplate.ResourceEnvelope, 0, len(resources))
	for _, r := range resources {
		if want[r.Name] {
			out = append(out, r)
		}
	}
	return out
}
