// Package definitions embeds the declarative agent definitions of both
// workflow projects.
package definitions

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/hupe1980/researchflow/agent"
)

// Project directories.
const (
	DeepResearch = "deep-research"
	AgenticRAG   = "agentic-rag"
)

//go:embed deep-research/*.yaml agentic-rag/*.yaml
var files embed.FS

// FS returns the embedded definition tree.
func FS() fs.FS { return files }

// Project is one workflow project holding agent definition files.
type Project struct {
	Name string
	Dir  string
	// Files is the number of definition files in Dir.
	Files int
}

// Projects lists the embedded workflow projects.
func Projects() ([]Project, error) {
	return Detect(files)
}

// Detect lists the top-level directories of fsys that contain at least one
// YAML file, sorted by name.
func Detect(fsys fs.FS) ([]Project, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("detect projects: %w", err)
	}

	var projects []Project
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		n, err := countYAML(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}

		projects = append(projects, Project{Name: e.Name(), Dir: e.Name(), Files: n})
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })

	return projects, nil
}

func countYAML(fsys fs.FS, dir string) (int, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	n := 0
	for _, e := range entries {
		ext := strings.ToLower(path.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			n++
		}
	}
	return n, nil
}

// Load returns the definitions of the named embedded projects. Without
// arguments every project is loaded.
func Load(projects ...string) ([]agent.Definition, error) {
	return LoadFrom(files, projects...)
}

// LoadFrom is Load over an arbitrary definition tree.
func LoadFrom(fsys fs.FS, projects ...string) ([]agent.Definition, error) {
	if len(projects) == 0 {
		found, err := Detect(fsys)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			projects = append(projects, p.Dir)
		}
	}

	var defs []agent.Definition
	for _, p := range projects {
		d, err := agent.LoadDefinitions(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p, err)
		}
		defs = append(defs, d...)
	}

	return defs, nil
}

// Registry builds an agent registry from the named embedded projects.
func Registry(projects ...string) (*agent.Registry, error) {
	defs, err := Load(projects...)
	if err != nil {
		return nil, err
	}
	return agent.NewRegistry(defs...)
}
