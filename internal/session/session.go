// Package session plans which Skiff components a run should start,
// driven by the configuration registry. Every component is gated by its
// section's reserved enabled key; the plan resolves startup order from
// declared requirements. The components themselves live elsewhere and
// are never instantiated here.
package session

import (
	"errors"
	"fmt"

	"github.com/skiffnet/skiff/internal/config"
)

// Common errors returned by session planning.
var (
	ErrDuplicateComponent = errors.New("component already registered")
	ErrUnknownComponent   = errors.New("unknown component")
	ErrRequirementCycle   = errors.New("component requirements form a cycle")
)

// RequirementError reports an enabled component whose requirement is
// disabled or unregistered.
type RequirementError struct {
	// Component is the component that cannot start.
	Component string

	// Requires is the missing requirement.
	Requires string
}

// Error implements the error interface.
func (e *RequirementError) Error() string {
	return fmt.Sprintf("component %s requires %s, which is not enabled", e.Component, e.Requires)
}

// ComponentSpec describes one startable component.
type ComponentSpec struct {
	// Name identifies the component.
	Name string

	// Section is the configuration section gating the component.
	Section string

	// Requires lists components that must start first.
	Requires []string

	// Description documents the component for operators.
	Description string
}

// Registry holds the known components in registration order.
type Registry struct {
	specs []ComponentSpec
	index map[string]int
}

// NewRegistry returns an empty component registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a component. The registration order is the tie-breaker
// for startup order among independent components.
func (reg *Registry) Register(spec ComponentSpec) error {
	if spec.Name == "" {
		return errors.New("component name must not be empty")
	}
	if _, exists := reg.index[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, spec.Name)
	}
	reg.index[spec.Name] = len(reg.specs)
	reg.specs = append(reg.specs, spec)
	return nil
}

// MustRegister adds a component and panics on error. For wiring the
// built-in component set at startup.
func (reg *Registry) MustRegister(spec ComponentSpec) {
	if err := reg.Register(spec); err != nil {
		panic(err)
	}
}

// Lookup returns the spec for a component name.
func (reg *Registry) Lookup(name string) (ComponentSpec, bool) {
	i, ok := reg.index[name]
	if !ok {
		return ComponentSpec{}, false
	}
	return reg.specs[i], true
}

// Specs returns all registered components in registration order.
func (reg *Registry) Specs() []ComponentSpec {
	out := make([]ComponentSpec, len(reg.specs))
	copy(out, reg.specs)
	return out
}

// Plan is an ordered list of components to start: every requirement
// precedes its dependents.
type Plan struct {
	components []ComponentSpec
}

// Components returns the planned components in startup order.
func (p *Plan) Components() []ComponentSpec {
	out := make([]ComponentSpec, len(p.components))
	copy(out, p.components)
	return out
}

// Names returns the planned component names in startup order.
func (p *Plan) Names() []string {
	out := make([]string, len(p.components))
	for i, spec := range p.components {
		out[i] = spec.Name
	}
	return out
}

// Has reports whether the plan includes a component.
func (p *Plan) Has(name string) bool {
	for _, spec := range p.components {
		if spec.Name == name {
			return true
		}
	}
	return false
}

// Plan consults the configuration for every registered component and
// returns the enabled ones in startup order. An enabled component whose
// requirement is disabled fails the plan; disabling a component quietly
// drops it and everything it alone would have justified is unaffected.
func (reg *Registry) Plan(cfg *config.Registry) (*Plan, error) {
	enabled := make(map[string]bool, len(reg.specs))
	for _, spec := range reg.specs {
		on, err := cfg.IsEnabled(spec.Section)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", spec.Name, err)
		}
		enabled[spec.Name] = on
	}

	for _, spec := range reg.specs {
		if !enabled[spec.Name] {
			continue
		}
		for _, req := range spec.Requires {
			if _, known := reg.index[req]; !known {
				return nil, fmt.Errorf("component %s: %w: %s", spec.Name, ErrUnknownComponent, req)
			}
			if !enabled[req] {
				return nil, &RequirementError{Component: spec.Name, Requires: req}
			}
		}
	}

	// Emit components whose requirements are already planned, repeating
	// until nothing moves. Registration order breaks ties, so the plan
	// is deterministic.
	plan := &Plan{}
	planned := make(map[string]bool, len(reg.specs))
	remaining := 0
	for _, spec := range reg.specs {
		if enabled[spec.Name] {
			remaining++
		}
	}
	for remaining > 0 {
		progressed := false
		for _, spec := range reg.specs {
			if !enabled[spec.Name] || planned[spec.Name] {
				continue
			}
			ready := true
			for _, req := range spec.Requires {
				if !planned[req] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			plan.components = append(plan.components, spec)
			planned[spec.Name] = true
			remaining--
			progressed = true
		}
		if !progressed {
			return nil, ErrRequirementCycle
		}
	}
	return plan, nil
}

// Default returns the built-in Skiff component set: one component per
// gated configuration section, with the requirements the subsystems
// actually have. Overlay networks ride on ipv8; download-adjacent
// components ride on libtorrent.
func Default() *Registry {
	reg := NewRegistry()
	reg.MustRegister(ComponentSpec{Name: "upgrader", Section: "upgrader",
		Description: "state directory upgrades from older releases"})
	reg.MustRegister(ComponentSpec{Name: "ipv8", Section: "ipv8",
		Description: "peer-to-peer overlay networking"})
	reg.MustRegister(ComponentSpec{Name: "libtorrent", Section: "libtorrent",
		Description: "download engine"})
	reg.MustRegister(ComponentSpec{Name: "dht", Section: "dht", Requires: []string{"ipv8"},
		Description: "distributed hash table discovery"})
	reg.MustRegister(ComponentSpec{Name: "trustchain", Section: "trustchain", Requires: []string{"ipv8"},
		Description: "tamper-proof bandwidth accounting ledger"})
	reg.MustRegister(ComponentSpec{Name: "tunnel_community", Section: "tunnel_community", Requires: []string{"ipv8"},
		Description: "anonymizing tunnel overlay"})
	reg.MustRegister(ComponentSpec{Name: "bootstrap", Section: "bootstrap", Requires: []string{"libtorrent"},
		Description: "initial peer bootstrap payload"})
	reg.MustRegister(ComponentSpec{Name: "torrent_checking", Section: "torrent_checking", Requires: []string{"libtorrent"},
		Description: "periodic tracker and swarm health checks"})
	reg.MustRegister(ComponentSpec{Name: "metadata", Section: "metadata", Requires: []string{"ipv8", "libtorrent"},
		Description: "channel metadata store and gossip"})
	reg.MustRegister(ComponentSpec{Name: "popularity_community", Section: "popularity_community", Requires: []string{"ipv8", "torrent_checking"},
		Description: "swarm popularity gossip"})
	reg.MustRegister(ComponentSpec{Name: "credit_mining", Section: "credit_mining", Requires: []string{"libtorrent"},
		Description: "automatic seeding of community swarms"})
	reg.MustRegister(ComponentSpec{Name: "watch_folder", Section: "watch_folder", Requires: []string{"libtorrent"},
		Description: "directory scanned for new torrent files"})
	reg.MustRegister(ComponentSpec{Name: "video_server", Section: "video_server", Requires: []string{"libtorrent"},
		Description: "local HTTP video streaming endpoint"})
	reg.MustRegister(ComponentSpec{Name: "resource_monitor", Section: "resource_monitor",
		Description: "CPU and memory usage history"})
	reg.MustRegister(ComponentSpec{Name: "http_api", Section: "http_api",
		Description: "local REST control surface"})
	return reg
}
