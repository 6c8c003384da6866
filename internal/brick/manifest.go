package brick

import (
	"fmt"
	"os"
	"path/filepath"

	"brickgen/internal/dart"

	"gopkg.in/yaml.v3"
)

const (
	ManifestFile  = "brick.yaml"
	SourceDirName = "__brick__"

	// NameVar is the single input variable every manifest declares.
	NameVar = "name"

	masonConstraint = ">=0.1.0-dev.50 <0.1.0"
)

// Manifest is the brick.yaml document describing a template artifact.
type Manifest struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Version     string         `yaml:"version"`
	Environment Environment    `yaml:"environment"`
	Vars        map[string]Var `yaml:"vars"`
}

type Environment struct {
	Mason string `yaml:"mason"`
}

// Var is a manifest input variable expanded by the template renderer.
type Var struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
	Prompt      string `yaml:"prompt"`
}

// NewManifest describes the component with one "name" input variable whose
// default is the component name.
func NewManifest(component, repoName, version string) Manifest {
	desc := fmt.Sprintf("%s component template", dart.Pascal(component))
	if repoName != "" {
		desc += " extracted from " + repoName
	}
	return Manifest{
		Name:        component,
		Description: desc,
		Version:     version,
		Environment: Environment{Mason: masonConstraint},
		Vars: map[string]Var{
			NameVar: {
				Type:        "string",
				Description: "Name of the generated component",
				Default:     component,
				Prompt:      "What is the component name?",
			},
		},
	}
}

func writeManifest(dir string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644)
}

// ReadManifest loads brick.yaml from an artifact directory.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode %s: %w", ManifestFile, err)
	}
	return m, nil
}
