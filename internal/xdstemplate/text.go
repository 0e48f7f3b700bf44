package xdstemplate

import (
	"bytes"
	"fmt"
	"text/template"
)

// TextTemplate is the "Text(renderer)" variant of spec.md §9's tagged
// template type: operator-authored source text evaluated with text/template,
// whose output is later parsed as a YAML-compatible document.
//
// The custom-delimiter and FuncMap support mirrors
// stolostron-go-template-utils's pkg/templates/templates.go, which wraps
// text/template the same way for rendering Kubernetes manifests.
type TextTemplate struct {
	name     string
	source   string
	tmpl     *template.Template
	checksum string
}

// DefaultFuncs are available to every TextTemplate unless overridden.
// Kept intentionally small: string/list helpers an operator-authored
// template plausibly needs when emitting YAML, nothing domain-specific.
func DefaultFuncs() template.FuncMap {
	return template.FuncMap{
		"join": func(sep string, items []string) string {
			out := ""
			for i, it := range items {
				if i > 0 {
					out += sep
				}
				out += it
			}
			return out
		},
		"default": func(def, val any) any {
			if val == nil || val == "" {
				return def
			}
			return val
		},
	}
}

// NewTextTemplate parses source (operator-authored template text) with the
// given name and additional funcs merged over DefaultFuncs.
func NewTextTemplate(name, source string, funcs template.FuncMap) (*TextTemplate, error) {
	merged := DefaultFuncs()
	for k, v := range funcs {
		merged[k] = v
	}

	t, err := template.New(name).Funcs(merged).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("xdstemplate: parsing %q: %w", name, err)
	}

	return &TextTemplate{
		name:     name,
		source:   source,
		tmpl:     t,
		checksum: checksum([]byte(source)),
	}, nil
}

func (t *TextTemplate) Checksum() string   { return t.checksum }
func (t *TextTemplate) IsNativeCode() bool { return false }

func (t *TextTemplate) RenderBytes(ctx Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("xdstemplate: rendering %q: %w", t.name, err)
	}
	return buf.Bytes(), nil
}

func (t *TextTemplate) RenderDocument(ctx Context) (*RenderedDocument, error) {
	return nil, fmt.Errorf("xdstemplate: %q is a text template, not native code", t.name)
}

// Source returns the template's raw source text, used by
// internal/contextprovider's cheap-reference-detection heuristic (spec.md
// §4.3 / SPEC_FULL.md's clarified open question #2).
func (t *TextTemplate) Source() string { return t.source }
