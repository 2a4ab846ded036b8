package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/owlcms/recorder/internal/config"
	"golang.org/x/sync/errgroup"
)

// Registry holds the controllers of the application, in creation order.
type Registry struct {
	opts Options

	mu          sync.RWMutex
	controllers []*Controller
}

// NewRegistry returns an empty registry whose controllers share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts}
}

// Add creates a controller for cfg. Names must be unique.
func (r *Registry) Add(cfg config.PlayerConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.controllers {
		if c.name == cfg.Name {
			return nil, fmt.Errorf("player %q already exists", cfg.Name)
		}
	}
	c := NewController(cfg, r.opts)
	r.controllers = append(r.controllers, c)
	return c, nil
}

// Remove stops the controller with the given id or name and forgets it, then waits
// for its capture and record goroutines to end. The stop always goes through; ctx only
// bounds the wait, so a cancelled ctx may return before the controller reached None.
func (r *Registry) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	var c *Controller
	for i, candidate := range r.controllers {
		if candidate.id == key || candidate.name == key {
			c = candidate
			r.controllers = append(r.controllers[:i:i], r.controllers[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	if c == nil {
		return fmt.Errorf("no player %q", key)
	}
	c.StopAll(false)
	return c.Wait(ctx)
}

// List returns the controllers in creation order.
func (r *Registry) List() []*Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Controller(nil), r.controllers...)
}

// Get finds a controller by id or by name.
func (r *Registry) Get(key string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.controllers {
		if c.id == key || c.name == key {
			return c, true
		}
	}
	return nil, false
}

// IsAnyActive reports whether some controller is playing or recording.
func (r *Registry) IsAnyActive() bool {
	for _, c := range r.List() {
		c.mu.Lock()
		active := c.playState != PlayNone || c.recordState != RecordNone
		c.mu.Unlock()
		if active {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of every controller.
func (r *Registry) Stats() []Stats {
	list := r.List()
	stats := make([]Stats, 0, len(list))
	for _, c := range list {
		stats = append(stats, c.Stats())
	}
	return stats
}

// Configs returns the player configurations with their current increments, for saving.
func (r *Registry) Configs() []config.PlayerConfig {
	list := r.List()
	cfgs := make([]config.PlayerConfig, 0, len(list))
	for _, c := range list {
		cfgs = append(cfgs, c.Config())
	}
	return cfgs
}

// Shutdown stops every controller and waits for all of them, or for ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range r.List() {
		c := c
		g.Go(func() error {
			c.StopAll(false)
			return c.Wait(gctx)
		})
	}
	return g.Wait()
}
