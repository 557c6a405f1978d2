package theme

import (
	"fmt"
	"strings"
	"sync"
)

// Registry keeps palettes in registration order with one of them active.
// The first palette registered is active until Use picks another.
type Registry struct {
	mu     sync.RWMutex
	names  []string
	themes map[string]Theme
	active int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{themes: make(map[string]Theme), active: -1}
}

// Register adds t under name. Names are case-insensitive and must be unique.
func (r *Registry) Register(name string, t Theme) error {
	key := normalizeName(name)
	if key == "" || t == nil {
		return fmt.Errorf("theme: register %q: name and palette are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.themes[key]; dup {
		return fmt.Errorf("theme: %q already registered", key)
	}
	r.themes[key] = t
	r.names = append(r.names, key)
	if r.active < 0 {
		r.active = 0
	}
	return nil
}

// Use activates the palette called name and reports whether it exists.
func (r *Registry) Use(name string) bool {
	key := normalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.names {
		if n == key {
			r.active = i
			return true
		}
	}
	return false
}

// Active returns the active palette and its name. Both are zero when the
// registry is empty.
func (r *Registry) Active() (string, Theme) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active < 0 {
		return "", nil
	}
	name := r.names[r.active]
	return name, r.themes[name]
}

// Names lists the registered palettes in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Next activates the palette after the active one, wrapping around.
func (r *Registry) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.names) == 0 {
		return ""
	}
	r.active = (r.active + 1) % len(r.names)
	return r.names[r.active]
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// palettes backs the package-level helpers used by the UI.
var palettes = NewRegistry()

// RegisterTheme adds a palette to the UI registry and panics on a bad or
// duplicate name; it is meant for init.
func RegisterTheme(name string, t Theme) {
	if err := palettes.Register(name, t); err != nil {
		panic(err)
	}
}

// SetTheme activates a registered palette.
func SetTheme(name string) bool { return palettes.Use(name) }

// Current returns the active palette.
func Current() Theme {
	_, t := palettes.Active()
	return t
}

// CurrentName returns the name of the active palette.
func CurrentName() string {
	name, _ := palettes.Active()
	return name
}

// Available lists the palettes in registration order.
func Available() []string { return palettes.Names() }

// CycleTheme activates the next palette and returns its name.
func CycleTheme() string { return palettes.Next() }
