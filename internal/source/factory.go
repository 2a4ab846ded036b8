package source

import (
	"fmt"
	"sync"

	"github.com/owlcms/recorder/internal/config"
)

// Constructor builds a source from a player configuration.
type Constructor func(cfg config.PlayerConfig) (FrameSource, error)

// Factory maps backend kinds to constructors.
type Factory struct {
	mu           sync.RWMutex
	constructors map[Kind]Constructor
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{constructors: make(map[Kind]Constructor)}
}

// Register installs the constructor used for kind, replacing any previous one.
func (f *Factory) Register(kind Kind, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[kind] = c
}

// New builds a source for cfg.
func (f *Factory) New(cfg config.PlayerConfig) (FrameSource, error) {
	kind, err := ParseKind(cfg.Backend)
	if err != nil {
		return nil, err
	}
	f.mu.RLock()
	c, ok := f.constructors[kind]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backend %s is not available in this build", kind)
	}
	return c(cfg)
}
