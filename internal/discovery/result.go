package discovery

import "github.com/sovereign-xds/sovereign/internal/xdstemplate"

// Result is the sentinel-typed outcome of Orchestrator.Discover, per
// spec.md §9's resolution of the two-implementations open question: "the
// former (sentinel-typed) ... encodes the 304/404/200 decision explicitly."
//
// Exactly one of the three concrete types below is ever returned; the HTTP
// layer switches on the concrete type to pick a status code, never on a
// dict shape.
type Result interface {
	isResult()
}

// NotModified means the computed fingerprint matched the caller's
// version_info — the HTTP layer maps this to 304 (or config.NoChangesResponseCode).
type NotModified struct {
	VersionInfo string
}

// Empty means rendering succeeded but the filtered resource set is empty
// and the version_info changed — the HTTP layer maps this to 404, per
// spec.md §4.4: "If the template renders an empty resource list but
// version_info differs from the caller's, the HTTP layer emits 404."
type Empty struct {
	VersionInfo string
}

// Document is a successful, non-empty, version-changed response — the HTTP
// layer maps this to 200.
type Document struct {
	VersionInfo string
	Resources   []xdstemplate.ResourceEnvelope
}

func (NotModified) isResult() {}
func (Empty) isResult()       {}
func (Document) isResult()    {}
