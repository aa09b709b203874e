package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownAgent is returned when an agent id is not registered.
var ErrUnknownAgent = errors.New("unknown agent")

// Registry holds validated definitions by name. It is read-only after construction.
type Registry struct {
	defs  map[string]Definition
	names []string
}

// NewRegistry validates defs and indexes them by name.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}

	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate agent %q", d.Name)
		}
		r.defs[d.Name] = d
		r.names = append(r.names, d.Name)
	}

	sort.Strings(r.names)

	return r, nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (Definition, error) {
	d, ok := r.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	return d, nil
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	out := make([]Definition, len(r.names))
	for i, n := range r.names {
		out[i] = r.defs[n]
	}
	return out
}

// Require checks that every id is registered.
func (r *Registry) Require(ids ...string) error {
	var missing []string
	for _, id := range ids {
		if _, ok := r.defs[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, strings.Join(missing, ", "))
	}
	return nil
}

// LoadDefinitions parses every *.yaml / *.yml file directly inside dir.
// Files are read in lexical order; each holds exactly one definition.
func LoadDefinitions(fsys fs.FS, dir string) ([]Definition, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read agent definitions: %w", err)
	}

	var defs []Definition
	for _, e := range entries {
		ext := strings.ToLower(path.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		p := path.Join(dir, e.Name())

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		var d Definition
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}

		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}

		defs = append(defs, d)
	}

	return defs, nil
}
