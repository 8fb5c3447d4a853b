// Package registry maps module type names to their stable numeric IDs and
// port signatures. The mapping is loaded once from a JSON descriptor at
// startup and is read-only afterwards; only the compiler consults it.
package registry

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ErrUnknownModule is returned for a name the descriptor does not declare.
var ErrUnknownModule = errors.New("unknown module")

// ModuleInfo lists a module's port names. Order is significant: it is the
// canonical port indexing used by the compiler and the VM.
type ModuleInfo struct {
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// Registry is the name → (id, ports) mapping.
type Registry struct {
	ids   map[string]uint32
	infos map[string]*ModuleInfo
}

type descriptorJSON struct {
	Modules []moduleJSON `json:"modules"`
}

type moduleJSON struct {
	Name string      `json:"name"`
	ID   uint32      `json:"id"`
	Info *ModuleInfo `json:"info"`
}

// Load reads and parses a descriptor file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open module registry file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from descriptor bytes. Entries missing a name or
// port info are skipped.
func Parse(data []byte) (*Registry, error) {
	var d descriptorJSON
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse module registry: %w", err)
	}
	if d.Modules == nil {
		return nil, errors.New("invalid module registry format: modules array not found")
	}
	r := &Registry{
		ids:   make(map[string]uint32, len(d.Modules)),
		infos: make(map[string]*ModuleInfo, len(d.Modules)),
	}
	for _, m := range d.Modules {
		if m.Name == "" || m.Info == nil {
			continue
		}
		r.ids[m.Name] = m.ID
		r.infos[m.Name] = m.Info
	}
	return r, nil
}

// IDOf returns the stable numeric ID for a module name.
func (r *Registry) IDOf(name string) (uint32, error) {
	id, ok := r.ids[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return id, nil
}

// InfoOf returns the port signature for a module name.
func (r *Registry) InfoOf(name string) (*ModuleInfo, error) {
	info, ok := r.infos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return info, nil
}
