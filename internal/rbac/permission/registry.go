package permission

import (
	"sort"
	"sync"
	"time"

	"rolegate/internal/rbac/model"
)

// Registry holds the system-wide permissions, create-permission types
// included. One instance is built at startup and passed to the services that
// need it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*model.SystemPermission
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*model.SystemPermission)}
}

// Register declares a permission type with its default expression. An
// existing entry is left alone so stored overrides survive re-registration.
func (r *Registry) Register(name, description string, def *model.MangoPermission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return
	}
	if def == nil {
		def = model.EmptyPermission()
	}
	r.entries[name] = &model.SystemPermission{
		Name:        name,
		Description: description,
		Permission:  def,
		UpdatedAt:   time.Now(),
	}
}

// Set replaces the entry for sp.Name.
func (r *Registry) Set(sp *model.SystemPermission) {
	if sp == nil {
		return
	}
	c := *sp
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[c.Name]; ok && c.Description == "" {
		c.Description = existing.Description
	}
	r.entries[c.Name] = &c
}

func (r *Registry) Get(name string) (*model.SystemPermission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	c := *sp
	return &c, true
}

// Lookup returns the expression registered under name.
func (r *Registry) Lookup(name string) (*model.MangoPermission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return sp.Permission, true
}

func (r *Registry) List() []*model.SystemPermission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.SystemPermission, 0, len(r.entries))
	for _, sp := range r.entries {
		c := *sp
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
