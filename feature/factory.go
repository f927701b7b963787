package feature

import (
	"fmt"

	"github.com/terminus-geospatial/timage"
)

// Generator recognizes configurations and constructs the matching detector.
// Driver packages provide one generator each.
type Generator interface {
	// Recognizes reports whether the generator can build a detector for
	// the configuration.
	Recognizes(cfg Config) bool

	// NewDetector constructs a detector for the configuration.
	NewDetector(cfg Config) (Detector, error)
}

// Factory selects a detector driver for a configuration. Generators are
// consulted in registration order; the first that recognizes the
// configuration wins.
type Factory struct {
	generators []Generator
}

// NewFactory creates a factory over the given generators.
func NewFactory(gens ...Generator) *Factory {
	return &Factory{generators: gens}
}

// Register appends a generator to the factory.
func (f *Factory) Register(g Generator) {
	f.generators = append(f.generators, g)
}

// CreateDetector builds a detector for the configuration.
func (f *Factory) CreateDetector(cfg Config) (Detector, error) {
	for _, g := range f.generators {
		if g.Recognizes(cfg) {
			return g.NewDetector(cfg)
		}
	}
	return nil, fmt.Errorf("%w: no detector driver recognizes %T", timage.ErrDriverNotFound, cfg)
}

// CreateExtractor builds a detector for a configuration that advertises
// descriptor support.
func (f *Factory) CreateExtractor(cfg Config) (Detector, error) {
	if !cfg.SupportsDescriptors() {
		return nil, fmt.Errorf("%w: %T does not support descriptors", timage.ErrNotImplemented, cfg)
	}
	return f.CreateDetector(cfg)
}
