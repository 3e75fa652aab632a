package cli

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/project"
)

// projectManifest is the on-disk shape of forgebuild.yaml: a minimal,
// single-project manifest good enough to exercise the build engine from
// the CLI. Parsing a real multi-package project manifest (package.json,
// workspace graphs, and so on) is the project-manifest parser's concern,
// explicitly out of this engine's scope (spec §1); this is the thin,
// good-enough stand-in the CLI needs to be runnable at all.
type projectManifest struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Type         string   `yaml:"type"`
	Namespace    string   `yaml:"namespace"`
	Dependencies []string `yaml:"dependencies"`
}

// LoadProject reads dir/forgebuild.yaml and returns the single project it
// describes, with SourceDir set to dir and RootProject set to true.
func LoadProject(dir string) (*project.Project, error) {
	path := filepath.Join(dir, "forgebuild.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engerr.Wrap(engerr.InvalidArgument, "cli.LoadProject", err)
	}

	var m projectManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, engerr.Wrap(engerr.InvalidArgument, "cli.LoadProject", err)
	}
	if m.Name == "" {
		return nil, engerr.New(engerr.InvalidArgument, "cli.LoadProject", "forgebuild.yaml is missing a name")
	}
	if m.Type == "" {
		m.Type = "application"
	}
	if m.Namespace == "" {
		m.Namespace = strings.ReplaceAll(m.Name, ".", "/")
	}

	return &project.Project{
		Name:         m.Name,
		Version:      m.Version,
		Type:         m.Type,
		Namespace:    m.Namespace,
		SourceDir:    dir,
		Dependencies: m.Dependencies,
		RootProject:  true,
	}, nil
}
