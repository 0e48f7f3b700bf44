package sourcing

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sovereign-xds/sovereign/internal/config"
)

func init() {
	RegisterFactory("file", newFileSource)
}

// FileSource loads instances from a Loadable, re-reading it on every Get —
// grounded in test_sources.py's test_file_source, which points a File source
// at "file://test/config/config.yaml" and expects fresh content each load.
type FileSource struct {
	loadable config.Loadable
}

func newFileSource(cfg map[string]any) (Source, error) {
	raw, ok := cfg["path"]
	if !ok {
		return nil, fmt.Errorf("sourcing: file source config missing required key %q", "path")
	}
	path, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("sourcing: file source %q must be a string", "path")
	}
	return &FileSource{loadable: config.NewLoadable(path)}, nil
}

func (s *FileSource) Get(ctx context.Context) ([]Instance, error) {
	b, err := s.loadable.Load()
	if err != nil {
		return nil, fmt.Errorf("sourcing: file source: %w", err)
	}

	var doc struct {
		Instances []Instance `yaml:"instances"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("sourcing: file source: decoding %s: %w", s.loadable.Source, err)
	}
	return doc.Instances, nil
}
