package config

import (
	"fmt"
	"os"
	"strings"
)

// Loadable is an addressable configuration value. spec.md §1 treats the
// mechanics of loading configuration from disk/http/s3/env as an external
// collaborator and asks us to model only its result type; we go one step
// further and implement the two schemes the reference implementation's own
// tests exercise (file://, and bare env-var lookups) since templates and
// context providers are themselves configured as Loadables (spec.md §6:
// "templates: mapping envoy_version -> {xds_type -> Loadable}").
//
// http:// and s3:// schemes are recognized but return an error — wiring a
// real HTTP or S3 client is exactly the kind of outer-surface concern spec.md
// §1 excludes ("configuration file loading from disk/http/s3/env").
type Loadable struct {
	// Source is the raw configured value, e.g. "file://templates/default.yaml"
	// or "env://SOVEREIGN_AUTH_KEY", or a literal string/inline value when no
	// scheme prefix is present.
	Source string `yaml:"source" json:"source"`

	// Format is the serialization tag the consumer should use to interpret
	// the loaded bytes: "yaml" | "json" | "string". Defaults to "string".
	Format string `yaml:"format" json:"format"`
}

// NewLoadable builds a Loadable from its wire form (a bare "scheme://value"
// string, with an optional "#format" fragment, e.g.
// "file://templates/cds.yaml#yaml").
func NewLoadable(raw string) Loadable {
	source, format, found := strings.Cut(raw, "#")
	if !found {
		format = "string"
	}
	return Loadable{Source: source, Format: format}
}

// Load resolves the Loadable to its underlying bytes.
func (l Loadable) Load() ([]byte, error) {
	switch {
	case strings.HasPrefix(l.Source, "file://"):
		path := strings.TrimPrefix(l.Source, "file://")
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", l.Source, err)
		}
		return b, nil

	case strings.HasPrefix(l.Source, "env://"):
		key := strings.TrimPrefix(l.Source, "env://")
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil, fmt.Errorf("loading %q: environment variable not set", l.Source)
		}
		return []byte(v), nil

	case strings.HasPrefix(l.Source, "http://"), strings.HasPrefix(l.Source, "https://"):
		return nil, fmt.Errorf("loading %q: http(s) Loadables are not implemented by this core; "+
			"wire an HTTP-fetching Loadable at the configuration-loading layer", l.Source)

	case strings.HasPrefix(l.Source, "s3://"):
		return nil, fmt.Errorf("loading %q: s3 Loadables are not implemented by this core; "+
			"wire an S3-fetching Loadable at the configuration-loading layer", l.Source)

	default:
		// No recognized scheme: treat the source itself as literal inline data.
		return []byte(l.Source), nil
	}
}
