package app

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/response"
)

type entry struct {
	meta   Metadata
	module Module
}

// Registry keeps modules in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	names   map[string]struct{}
	log     *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{names: make(map[string]struct{}), log: log}
}

// Register adds a module. A nil module is recorded as disabled so it still
// shows up in discovery.
func (r *Registry) Register(name, description string, m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("module name is required")
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("module %s already registered", name)
	}

	status := StatusActive
	if m == nil {
		status = StatusDisabled
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, entry{
		meta:   Metadata{Name: name, Description: description, Status: status},
		module: m,
	})
	return nil
}

// MustRegister is Register for wiring code where a duplicate is a bug.
func (r *Registry) MustRegister(name, description string, m Module) {
	if err := r.Register(name, description, m); err != nil {
		panic(err)
	}
}

// Mount registers every active module's routes on router.
func (r *Registry) Mount(router gin.IRouter, g middleware.Guards) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.module == nil {
			r.log.Info("Module disabled", zap.String("module", e.meta.Name))
			continue
		}
		e.module.RegisterRoutes(router, g)
		r.log.Debug("Module mounted", zap.String("module", e.meta.Name))
	}
}

// List returns module metadata in registration order.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.meta
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Endpoint serves the module list for discovery.
func (r *Registry) Endpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		modules := r.List()
		response.OK(c, "", gin.H{"modules": modules, "count": len(modules)})
	}
}
